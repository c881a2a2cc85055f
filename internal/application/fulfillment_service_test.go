package application

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DFCPagro/DFCP-sub001/internal/domain"
	"github.com/DFCPagro/DFCP-sub001/internal/packing"
	"github.com/DFCPagro/DFCP-sub001/pkg/errors"
	"github.com/DFCPagro/DFCP-sub001/pkg/logging"
	"github.com/DFCPagro/DFCP-sub001/pkg/metrics"
)

// fakeTaskRepository is an in-memory TaskRepository with the same uniqueness
// and claim semantics as the mongo implementation.
type fakeTaskRepository struct {
	mu    sync.Mutex
	tasks map[string]*domain.FulfillmentTask
}

func newFakeTaskRepository() *fakeTaskRepository {
	return &fakeTaskRepository{tasks: map[string]*domain.FulfillmentTask{}}
}

func scopeKey(wc, shift, date, orderID string) string {
	return wc + "|" + shift + "|" + date + "|" + orderID
}

func (r *fakeTaskRepository) CreateIfAbsent(_ context.Context, task *domain.FulfillmentTask) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := scopeKey(task.WorkCenter, task.Shift, task.ShiftDate, task.OrderID)
	if _, exists := r.tasks[key]; exists {
		task.ClearEvents()
		return false, nil
	}
	copied := *task
	r.tasks[key] = &copied
	task.ClearEvents()
	return true, nil
}

func (r *fakeTaskRepository) Save(_ context.Context, task *domain.FulfillmentTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.RecomputeTotals()
	copied := *task
	r.tasks[scopeKey(task.WorkCenter, task.Shift, task.ShiftDate, task.OrderID)] = &copied
	task.ClearEvents()
	return nil
}

func (r *fakeTaskRepository) FindByTaskID(_ context.Context, taskID string) (*domain.FulfillmentTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		if task.TaskID == taskID {
			copied := *task
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeTaskRepository) OrderIDsWithTasks(_ context.Context, scope domain.Scope) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[string]bool{}
	for _, task := range r.tasks {
		if task.WorkCenter == scope.WorkCenter && task.Shift == scope.Shift && task.ShiftDate == scope.ShiftDate {
			ids[task.OrderID] = true
		}
	}
	return ids, nil
}

func (r *fakeTaskRepository) ReleaseOpenTasks(_ context.Context, scope domain.Scope, actor string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var released int64
	for _, task := range r.tasks {
		if task.WorkCenter == scope.WorkCenter && task.Shift == scope.Shift &&
			task.ShiftDate == scope.ShiftDate && task.Status == domain.TaskStatusOpen {
			if err := task.Release(actor); err != nil {
				return released, err
			}
			task.ClearEvents()
			released++
		}
	}
	return released, nil
}

func (r *fakeTaskRepository) ClaimNextReady(_ context.Context, scope domain.Scope, pickerID, _ string) (*domain.FulfillmentTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []*domain.FulfillmentTask
	for _, task := range r.tasks {
		if task.WorkCenter == scope.WorkCenter && task.Shift == scope.Shift &&
			task.ShiftDate == scope.ShiftDate &&
			task.Status == domain.TaskStatusReady && task.AssignedPicker == "" {
			candidates = append(candidates, task)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	winner := candidates[0]
	if err := winner.Claim(pickerID); err != nil {
		return nil, err
	}
	winner.ClearEvents()
	copied := *winner
	return &copied, nil
}

func (r *fakeTaskRepository) List(_ context.Context, query domain.TaskListQuery) (*domain.TaskPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page := &domain.TaskPage{
		CountsByStatus: map[domain.TaskStatus]int64{},
		CountsByPicker: map[string]int64{},
	}
	for _, task := range r.tasks {
		if task.WorkCenter != query.Scope.WorkCenter || task.Shift != query.Scope.Shift || task.ShiftDate != query.Scope.ShiftDate {
			continue
		}
		page.CountsByStatus[task.Status]++
		if task.AssignedPicker != "" {
			page.CountsByPicker[task.AssignedPicker]++
		}
		if query.Status != "" && task.Status != query.Status {
			continue
		}
		if query.AssignedPicker != "" && task.AssignedPicker != query.AssignedPicker {
			continue
		}
		copied := *task
		page.Items = append(page.Items, &copied)
		page.TotalItems++
	}
	return page, nil
}

type fakeOrderSource struct {
	orders []domain.Order
}

func (s *fakeOrderSource) OrdersForShift(context.Context, domain.Scope) ([]domain.Order, error) {
	return s.orders, nil
}

type fakeItemCatalog struct {
	items map[string]packing.Item
}

func (c *fakeItemCatalog) ItemsByID(_ context.Context, ids []string) (map[string]packing.Item, error) {
	out := map[string]packing.Item{}
	for _, id := range ids {
		if item, ok := c.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

type fakeContainerCatalog struct {
	containers []packing.ContainerType
}

func (c *fakeContainerCatalog) ContainerTypes(context.Context) ([]packing.ContainerType, error) {
	return c.containers, nil
}

type fakeOverrideSource struct{}

func (fakeOverrideSource) OverridesByID(context.Context, []string) (map[string]*packing.Override, error) {
	return map[string]*packing.Override{}, nil
}

type fakeShiftResolver struct {
	scope domain.Scope
}

func (r *fakeShiftResolver) CurrentShift(context.Context, string) (domain.Scope, error) {
	return r.scope, nil
}

type fakeActorDirectory struct {
	actors map[string]*domain.Actor
}

func (d *fakeActorDirectory) FindActor(_ context.Context, id string) (*domain.Actor, error) {
	return d.actors[id], nil
}

type fixture struct {
	service *FulfillmentService
	repo    *fakeTaskRepository
	orders  *fakeOrderSource
}

func newFixture(t *testing.T, orders []domain.Order) *fixture {
	t.Helper()

	repo := newFakeTaskRepository()
	orderSource := &fakeOrderSource{orders: orders}
	logger := logging.New(&logging.Config{ServiceName: "test", Output: io.Discard})

	service := NewFulfillmentService(
		repo,
		orderSource,
		&fakeItemCatalog{items: map[string]packing.Item{
			"carrot-1":  {ID: "carrot-1", Category: "vegetable", Type: "carrot"},
			"lettuce-1": {ID: "lettuce-1", Category: "vegetable", Type: "lettuce"},
		}},
		&fakeContainerCatalog{containers: []packing.ContainerType{
			{Key: "medium", UsableLiters: 20, MaxWeightKg: 10, Vented: true},
		}},
		fakeOverrideSource{},
		&fakeShiftResolver{scope: domain.Scope{WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31"}},
		&fakeActorDirectory{actors: map[string]*domain.Actor{
			"picker-7": {ID: "picker-7", DisplayName: "Dana", Role: "picker"},
		}},
		metrics.New("test"),
		logger,
	)
	return &fixture{service: service, repo: repo, orders: orderSource}
}

func generateCmd() GenerateTasksCommand {
	return GenerateTasksCommand{
		WorkCenter:  "wc-1",
		Shift:       "morning",
		ShiftDate:   "2026-08-31",
		Actor:       "scheduler",
		AutoRelease: true,
	}
}

func TestGenerateTasksForShift_CreatesOneTaskPerOrder(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-1", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 3}}},
		{ID: "ord-2", Priority: 5, Lines: []packing.OrderLine{{ItemID: "lettuce-1", QuantityKg: 1}}},
	})

	result, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)

	assert.Equal(t, 2, result.OrdersSeen)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, int64(2), result.Released)
}

func TestGenerateTasksForShift_Idempotent(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-1", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 3}}},
	})

	first, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	second, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Skipped)
}

func TestGenerateTasksForShift_FillsGapsOnRerun(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-1", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 3}}},
	})

	_, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)

	fx.orders.orders = append(fx.orders.orders, domain.Order{
		ID: "ord-late", Priority: 2, Lines: []packing.OrderLine{{ItemID: "lettuce-1", QuantityKg: 1}},
	})

	rerun, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)
	assert.Equal(t, 1, rerun.Created)
	assert.Equal(t, 1, rerun.Skipped)
}

func TestGenerateTasksForShift_EmptyOrderCountedNotCreated(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-empty", Priority: 1, Lines: []packing.OrderLine{{ItemID: "unknown-item", QuantityKg: 2}}},
	})

	result, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Empty)
	assert.NotEmpty(t, result.Warnings)
}

func TestGenerateTasksForShift_NoContainersAborts(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-1", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 3}}},
	})
	fx.service.containers = &fakeContainerCatalog{}

	_, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeServiceUnavailable, appErr.Code)
}

func TestGenerateTasksForShift_ResolvesCurrentShift(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-1", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 3}}},
	})

	result, err := fx.service.GenerateTasksForShift(context.Background(), GenerateTasksCommand{
		WorkCenter: "wc-1",
		Actor:      "scheduler",
	})
	require.NoError(t, err)
	assert.Equal(t, "morning", result.Shift)
	assert.Equal(t, "2026-08-31", result.ShiftDate)
}

func TestClaimNextTask_PriorityThenFIFO(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-low", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 1}}},
		{ID: "ord-high", Priority: 9, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 1}}},
	})

	_, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)

	claimed, err := fx.service.ClaimNextTask(context.Background(), ClaimTaskCommand{
		WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31", PickerID: "picker-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-high", claimed.OrderID)
	assert.Equal(t, "picker-7", claimed.AssignedPicker)
	assert.Equal(t, string(domain.TaskStatusClaimed), claimed.Status)
}

func TestClaimNextTask_ConcurrentClaimsGetDistinctTasks(t *testing.T) {
	orders := make([]domain.Order, 0, 4)
	for i := 0; i < 4; i++ {
		orders = append(orders, domain.Order{
			ID:       fmt.Sprintf("ord-%d", i),
			Priority: i,
			Lines:    []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 1}},
		})
	}
	fx := newFixture(t, orders)
	_, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(picker int) {
			defer wg.Done()
			dto, err := fx.service.ClaimNextTask(context.Background(), ClaimTaskCommand{
				WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31",
				PickerID: fmt.Sprintf("picker-%d", picker),
			})
			if err == nil {
				results <- dto.OrderID
			}
		}(i)
	}
	wg.Wait()
	close(results)

	claimed := map[string]bool{}
	for orderID := range results {
		assert.False(t, claimed[orderID], "order %s claimed twice", orderID)
		claimed[orderID] = true
	}
	assert.Len(t, claimed, 4)
}

func TestClaimNextTask_ResolvesCurrentShift(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-1", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 1}}},
	})
	_, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)

	claimed, err := fx.service.ClaimNextTask(context.Background(), ClaimTaskCommand{
		WorkCenter: "wc-1", PickerID: "picker-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "morning", claimed.Shift)
	assert.Equal(t, "2026-08-31", claimed.ShiftDate)
}

func TestClaimNextTask_NothingClaimable(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.service.ClaimNextTask(context.Background(), ClaimTaskCommand{
		WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31", PickerID: "picker-7",
	})
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}

func TestTaskLifecycle_ThroughService(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-1", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 3}}},
	})
	_, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)

	claimed, err := fx.service.ClaimNextTask(context.Background(), ClaimTaskCommand{
		WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31", PickerID: "picker-7",
	})
	require.NoError(t, err)

	started, err := fx.service.StartTask(context.Background(), StartTaskCommand{
		TaskID: claimed.TaskID, PickerID: "picker-7",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskStatusInProgress), started.Status)

	progressed, err := fx.service.UpdateProgress(context.Background(), UpdateProgressCommand{
		TaskID: claimed.TaskID, PickerID: "picker-7",
		CurrentIndex: 1, Placed: map[string]float64{"carrot-1": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, progressed.Progress.CurrentIndex)

	done, err := fx.service.CompleteTask(context.Background(), CompleteTaskCommand{
		TaskID: claimed.TaskID, PickerID: "picker-7",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.TaskStatusDone), done.Status)
	assert.NotNil(t, done.Progress.FinishedAt)
}

func TestStartTask_WrongPickerIsConflict(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-1", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 3}}},
	})
	_, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)

	claimed, err := fx.service.ClaimNextTask(context.Background(), ClaimTaskCommand{
		WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31", PickerID: "picker-7",
	})
	require.NoError(t, err)

	_, err = fx.service.StartTask(context.Background(), StartTaskCommand{
		TaskID: claimed.TaskID, PickerID: "someone-else",
	})
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeConflict, appErr.Code)
}

func TestGetTask_NotFound(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.service.GetTask(context.Background(), GetTaskQuery{TaskID: "FT-deadbeef"})
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNotFound, appErr.Code)
}

func TestListTasks_CountsAndFilters(t *testing.T) {
	fx := newFixture(t, []domain.Order{
		{ID: "ord-1", Priority: 1, Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 3}}},
		{ID: "ord-2", Priority: 2, Lines: []packing.OrderLine{{ItemID: "lettuce-1", QuantityKg: 1}}},
	})
	_, err := fx.service.GenerateTasksForShift(context.Background(), generateCmd())
	require.NoError(t, err)

	_, err = fx.service.ClaimNextTask(context.Background(), ClaimTaskCommand{
		WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31", PickerID: "picker-7",
	})
	require.NoError(t, err)

	page, err := fx.service.ListTasks(context.Background(), ListTasksQuery{
		WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)
	assert.Equal(t, int64(1), page.CountsByStatus[string(domain.TaskStatusReady)])
	assert.Equal(t, int64(1), page.CountsByStatus[string(domain.TaskStatusClaimed)])
	assert.Equal(t, int64(1), page.CountsByPicker["picker-7"])

	claimedOnly, err := fx.service.ListTasks(context.Background(), ListTasksQuery{
		WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31",
		Status: string(domain.TaskStatusClaimed),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimedOnly.TotalItems)
}

func TestPreviewPlan(t *testing.T) {
	fx := newFixture(t, nil)

	preview, err := fx.service.PreviewPlan(context.Background(), PreviewPlanCommand{
		Lines: []packing.OrderLine{{ItemID: "carrot-1", QuantityKg: 3}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, preview.Plan.Boxes)
	assert.Equal(t, 1, preview.Plan.Summary.BoxCount)

	_, err = fx.service.PreviewPlan(context.Background(), PreviewPlanCommand{})
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeValidationError, appErr.Code)
}
