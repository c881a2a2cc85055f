package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DFCPagro/DFCP-sub001/internal/domain"
	"github.com/DFCPagro/DFCP-sub001/internal/packing"
	"github.com/DFCPagro/DFCP-sub001/pkg/errors"
	"github.com/DFCPagro/DFCP-sub001/pkg/logging"
	"github.com/DFCPagro/DFCP-sub001/pkg/metrics"
)

// FulfillmentService handles task generation, claiming and the picker
// lifecycle for one work center shift at a time.
type FulfillmentService struct {
	tasks      domain.TaskRepository
	orders     domain.OrderSource
	items      domain.ItemCatalog
	containers domain.ContainerCatalog
	overrides  domain.OverrideSource
	shifts     domain.ShiftResolver
	actors     domain.ActorDirectory
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(
	tasks domain.TaskRepository,
	orders domain.OrderSource,
	items domain.ItemCatalog,
	containers domain.ContainerCatalog,
	overrides domain.OverrideSource,
	shifts domain.ShiftResolver,
	actors domain.ActorDirectory,
	m *metrics.Metrics,
	logger *logging.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		tasks:      tasks,
		orders:     orders,
		items:      items,
		containers: containers,
		overrides:  overrides,
		shifts:     shifts,
		actors:     actors,
		metrics:    m,
		logger:     logger,
	}
}

// GenerateTasksForShift creates one task per order in the scope that does not
// have one yet. The run is idempotent: re-running over the same scope only
// fills gaps, it never duplicates or mutates existing tasks.
func (s *FulfillmentService) GenerateTasksForShift(ctx context.Context, cmd GenerateTasksCommand) (*GenerationResultDTO, error) {
	scope, err := s.resolveScope(ctx, cmd)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.OrdersForShift(ctx, scope)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load orders", "workCenter", scope.WorkCenter, "shift", scope.Shift)
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	existing, err := s.tasks.OrderIDsWithTasks(ctx, scope)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load existing task order ids", "workCenter", scope.WorkCenter)
		return nil, fmt.Errorf("failed to load existing tasks: %w", err)
	}

	containerTypes, err := s.containers.ContainerTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load container types: %w", err)
	}

	itemsByID, overridesByID, err := s.preloadCatalogs(ctx, orders)
	if err != nil {
		return nil, err
	}

	result := &GenerationResultDTO{
		WorkCenter: scope.WorkCenter,
		Shift:      scope.Shift,
		ShiftDate:  scope.ShiftDate,
		OrdersSeen: len(orders),
	}

	for _, order := range orders {
		if existing[order.ID] {
			result.Skipped++
			continue
		}

		start := time.Now()
		plan, err := packing.ComputePlan(order.Lines, itemsByID, containerTypes, overridesByID)
		if err != nil {
			// Missing container catalog aborts the whole run; nothing else does
			return nil, planError(err)
		}
		s.metrics.RecordPlan(len(plan.Boxes), droppedCount(plan.Summary.Warnings), time.Since(start))

		task, err := domain.NewFulfillmentTask(scope.WorkCenter, scope.Shift, scope.ShiftDate, order.ID, *plan, order.Priority, cmd.Actor)
		if err != nil {
			if err == domain.ErrEmptyPlan {
				result.Empty++
				result.Warnings = append(result.Warnings, fmt.Sprintf("order %s produced no packable contents", order.ID))
				continue
			}
			s.logger.WithError(err).Error("Failed to build task", "orderId", order.ID)
			result.Failed++
			continue
		}

		created, err := s.tasks.CreateIfAbsent(ctx, task)
		if err != nil {
			s.logger.WithError(err).Error("Failed to persist task", "orderId", order.ID, "taskId", task.TaskID)
			result.Failed++
			continue
		}
		if !created {
			result.Skipped++
			continue
		}

		result.Created++
		result.Warnings = append(result.Warnings, plan.Summary.Warnings...)
	}

	if cmd.AutoRelease {
		released, err := s.tasks.ReleaseOpenTasks(ctx, scope, cmd.Actor)
		if err != nil {
			s.logger.WithError(err).Error("Failed to release open tasks", "workCenter", scope.WorkCenter)
			return nil, fmt.Errorf("failed to release open tasks: %w", err)
		}
		result.Released = released
	}

	if result.Created > 0 {
		s.metrics.RecordTasksGenerated(scope.WorkCenter, scope.Shift, result.Created)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "fulfillment.tasks_generated",
		EntityType: "shift",
		EntityID:   fmt.Sprintf("%s/%s/%s", scope.WorkCenter, scope.Shift, scope.ShiftDate),
		Action:     "generated",
		RelatedIDs: map[string]string{
			"created": fmt.Sprintf("%d", result.Created),
			"skipped": fmt.Sprintf("%d", result.Skipped),
		},
	})

	return result, nil
}

// ClaimNextTask atomically claims the best available task for a picker:
// highest priority first, oldest first among equals. When the shift is not
// given the work center's currently active shift is resolved.
func (s *FulfillmentService) ClaimNextTask(ctx context.Context, cmd ClaimTaskCommand) (*TaskDTO, error) {
	if cmd.PickerID == "" {
		return nil, errors.ErrValidation("pickerId is required")
	}
	if cmd.WorkCenter == "" {
		return nil, errors.ErrValidation("workCenter is required")
	}

	scope := domain.Scope{WorkCenter: cmd.WorkCenter, Shift: cmd.Shift, ShiftDate: cmd.ShiftDate}
	if cmd.Shift == "" || cmd.ShiftDate == "" {
		resolved, err := s.shifts.CurrentShift(ctx, cmd.WorkCenter)
		if err != nil {
			s.logger.WithError(err).Error("Failed to resolve current shift", "workCenter", cmd.WorkCenter)
			return nil, errors.ErrBadRequest(fmt.Sprintf("cannot resolve active shift: %v", err))
		}
		scope = resolved
	}

	pickerName := cmd.PickerID
	if actor, err := s.actors.FindActor(ctx, cmd.PickerID); err != nil {
		s.logger.WithError(err).Warn("Actor lookup failed, continuing with id", "pickerId", cmd.PickerID)
	} else if actor != nil {
		pickerName = actor.DisplayName
	}

	task, err := s.tasks.ClaimNextReady(ctx, scope, cmd.PickerID, pickerName)
	if err != nil {
		s.logger.WithError(err).Error("Failed to claim task", "pickerId", cmd.PickerID)
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}
	if task == nil {
		return nil, errors.ErrNotFound("claimable task")
	}

	s.metrics.RecordTaskClaimed(scope.WorkCenter, scope.Shift)
	s.logger.Info("Claimed task", "taskId", task.TaskID, "pickerId", cmd.PickerID, "priority", task.Priority)
	return ToTaskDTO(task), nil
}

// GetTask retrieves a task by its public id
func (s *FulfillmentService) GetTask(ctx context.Context, query GetTaskQuery) (*TaskDTO, error) {
	task, err := s.loadTask(ctx, query.TaskID)
	if err != nil {
		return nil, err
	}
	return ToTaskDTO(task), nil
}

// ListTasks returns a filtered, paginated view of a scope's tasks
func (s *FulfillmentService) ListTasks(ctx context.Context, query ListTasksQuery) (*TaskPageDTO, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	result, err := s.tasks.List(ctx, domain.TaskListQuery{
		Scope:          query.scope(),
		Status:         domain.TaskStatus(query.Status),
		AssignedPicker: query.AssignedPicker,
		Page:           page,
		PageSize:       pageSize,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to list tasks", "workCenter", query.WorkCenter)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return ToTaskPageDTO(result, page, pageSize), nil
}

// ReleaseTask makes a single open task claimable
func (s *FulfillmentService) ReleaseTask(ctx context.Context, cmd ReleaseTaskCommand) (*TaskDTO, error) {
	return s.mutateTask(ctx, cmd.TaskID, func(task *domain.FulfillmentTask) error {
		return task.Release(cmd.Actor)
	})
}

// ReleaseClaim returns a claimed task to the ready pool
func (s *FulfillmentService) ReleaseClaim(ctx context.Context, cmd ReleaseClaimCommand) (*TaskDTO, error) {
	return s.mutateTask(ctx, cmd.TaskID, func(task *domain.FulfillmentTask) error {
		return task.ReleaseClaim(cmd.Actor, cmd.Note)
	})
}

// StartTask moves a claimed task into active picking
func (s *FulfillmentService) StartTask(ctx context.Context, cmd StartTaskCommand) (*TaskDTO, error) {
	return s.mutateTask(ctx, cmd.TaskID, func(task *domain.FulfillmentTask) error {
		return task.Start(cmd.PickerID)
	})
}

// UpdateProgress records placed quantities for the assigned picker
func (s *FulfillmentService) UpdateProgress(ctx context.Context, cmd UpdateProgressCommand) (*TaskDTO, error) {
	return s.mutateTask(ctx, cmd.TaskID, func(task *domain.FulfillmentTask) error {
		return task.UpdateProgress(cmd.PickerID, cmd.CurrentIndex, cmd.Placed)
	})
}

// CompleteTask finishes a task
func (s *FulfillmentService) CompleteTask(ctx context.Context, cmd CompleteTaskCommand) (*TaskDTO, error) {
	return s.mutateTask(ctx, cmd.TaskID, func(task *domain.FulfillmentTask) error {
		return task.Complete(cmd.PickerID)
	})
}

// ReportProblem flags a task for operator attention
func (s *FulfillmentService) ReportProblem(ctx context.Context, cmd ReportProblemCommand) (*TaskDTO, error) {
	return s.mutateTask(ctx, cmd.TaskID, func(task *domain.FulfillmentTask) error {
		return task.ReportProblem(cmd.Actor, cmd.Note)
	})
}

// CancelTask removes a task from the work pool without deleting it
func (s *FulfillmentService) CancelTask(ctx context.Context, cmd CancelTaskCommand) (*TaskDTO, error) {
	return s.mutateTask(ctx, cmd.TaskID, func(task *domain.FulfillmentTask) error {
		return task.Cancel(cmd.Actor, cmd.Note)
	})
}

// PreviewPlan computes a packing plan for ad-hoc lines without persisting it
func (s *FulfillmentService) PreviewPlan(ctx context.Context, cmd PreviewPlanCommand) (*PlanPreviewDTO, error) {
	if len(cmd.Lines) == 0 {
		return nil, errors.ErrValidation("at least one order line is required")
	}

	containerTypes, err := s.containers.ContainerTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load container types: %w", err)
	}

	itemsByID, overridesByID, err := s.preloadCatalogs(ctx, []domain.Order{{Lines: cmd.Lines}})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	plan, err := packing.ComputePlan(cmd.Lines, itemsByID, containerTypes, overridesByID)
	if err != nil {
		return nil, planError(err)
	}
	s.metrics.RecordPlan(len(plan.Boxes), droppedCount(plan.Summary.Warnings), time.Since(start))

	return &PlanPreviewDTO{Plan: *plan}, nil
}

func (s *FulfillmentService) resolveScope(ctx context.Context, cmd GenerateTasksCommand) (domain.Scope, error) {
	if cmd.WorkCenter == "" {
		return domain.Scope{}, errors.ErrValidation("workCenter is required")
	}
	if cmd.Shift != "" && cmd.ShiftDate != "" {
		return domain.Scope{WorkCenter: cmd.WorkCenter, Shift: cmd.Shift, ShiftDate: cmd.ShiftDate}, nil
	}
	if cmd.Shift != "" || cmd.ShiftDate != "" {
		return domain.Scope{}, errors.ErrValidation("shift and shiftDate must be provided together")
	}

	scope, err := s.shifts.CurrentShift(ctx, cmd.WorkCenter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to resolve current shift", "workCenter", cmd.WorkCenter)
		return domain.Scope{}, errors.ErrBadRequest(fmt.Sprintf("cannot resolve active shift: %v", err))
	}
	return scope, nil
}

// preloadCatalogs fetches items and overrides for every line across all
// orders in two batched queries.
func (s *FulfillmentService) preloadCatalogs(ctx context.Context, orders []domain.Order) (map[string]packing.Item, map[string]*packing.Override, error) {
	seen := map[string]bool{}
	ids := []string{}
	for _, order := range orders {
		for _, line := range order.Lines {
			if !seen[line.ItemID] {
				seen[line.ItemID] = true
				ids = append(ids, line.ItemID)
			}
		}
	}

	itemsByID, err := s.items.ItemsByID(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load items: %w", err)
	}
	overridesByID, err := s.overrides.OverridesByID(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load packing overrides: %w", err)
	}
	return itemsByID, overridesByID, nil
}

func (s *FulfillmentService) loadTask(ctx context.Context, taskID string) (*domain.FulfillmentTask, error) {
	task, err := s.tasks.FindByTaskID(ctx, taskID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load task", "taskId", taskID)
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return nil, errors.ErrNotFoundWithID("task", taskID)
	}
	return task, nil
}

// mutateTask is the shared load, apply, save path for lifecycle transitions
func (s *FulfillmentService) mutateTask(ctx context.Context, taskID string, apply func(*domain.FulfillmentTask) error) (*TaskDTO, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	from := string(task.Status)
	if err := apply(task); err != nil {
		return nil, mapTaskError(err)
	}

	if err := s.tasks.Save(ctx, task); err != nil {
		s.logger.WithError(err).Error("Failed to save task", "taskId", taskID)
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	if to := string(task.Status); to != from {
		s.metrics.RecordTaskTransition(from, to)
	}
	return ToTaskDTO(task), nil
}

// mapTaskError translates domain guard failures into transport-level errors
func mapTaskError(err error) error {
	switch {
	case stderrors.Is(err, domain.ErrInvalidTransition),
		stderrors.Is(err, domain.ErrTaskTerminal),
		stderrors.Is(err, domain.ErrNotAssigned),
		stderrors.Is(err, domain.ErrWrongPicker):
		return errors.ErrConflict(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrMissingActor):
		return errors.ErrValidation(err.Error())
	default:
		return errors.MapDomainError(err)
	}
}

func planError(err error) error {
	return errors.NewAppError(errors.CodeServiceUnavailable, err.Error(), http.StatusServiceUnavailable).Wrap(err)
}

func droppedCount(warnings []string) int {
	dropped := 0
	for _, warning := range warnings {
		if strings.Contains(warning, "dropped") {
			dropped++
		}
	}
	return dropped
}
