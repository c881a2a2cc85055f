package mongodb

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/DFCPagro/DFCP-sub001/internal/domain"
	"github.com/DFCPagro/DFCP-sub001/internal/packing"
	"github.com/DFCPagro/DFCP-sub001/pkg/cloudevents"
	"github.com/DFCPagro/DFCP-sub001/pkg/logging"
	sharedtesting "github.com/DFCPagro/DFCP-sub001/pkg/testing"
)

func testPlan() packing.Plan {
	pieces := []packing.Piece{
		{ItemID: "carrot-1", Kind: packing.PieceBag, Mode: packing.ModeKg, QuantityKg: 3, EstWeightKg: 3, EstLiters: 3.95, Fragility: packing.Sturdy, MixAllowed: true},
		{ItemID: "carrot-1", Kind: packing.PieceBag, Mode: packing.ModeKg, QuantityKg: 3, EstWeightKg: 3, EstLiters: 3.95, Fragility: packing.Sturdy, MixAllowed: true},
	}
	return packing.Plan{
		Boxes: []packing.Box{
			{Number: 1, ContainerKey: "medium", UsableLiters: 20, MaxWeightKg: 10, FillLiters: 7.9, WeightKg: 6, FillPct: 39.5, Pieces: pieces},
		},
		Summary: packing.Summary{
			BoxCount: 1,
			Items: []packing.ItemRollup{
				{ItemID: "carrot-1", Bags: 2, TotalKg: 6, TotalLiters: 7.9},
			},
		},
	}
}

func newTestTask(t *testing.T, orderID string, priority int) *domain.FulfillmentTask {
	t.Helper()
	task, err := domain.NewFulfillmentTask("wc-1", "morning", "2026-08-31", orderID, testPlan(), priority, "tester")
	require.NoError(t, err)
	return task
}

func testScope() domain.Scope {
	return domain.Scope{WorkCenter: "wc-1", Shift: "morning", ShiftDate: "2026-08-31"}
}

func setupRepository(t *testing.T) (*FulfillmentTaskRepository, *mongo.Database) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := sharedtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	client, err := container.GetClient(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("test_fulfillment_db")
	logger := logging.New(&logging.Config{ServiceName: "test", Output: io.Discard})
	repo := NewFulfillmentTaskRepository(db, cloudevents.NewEventFactory("/fulfillment-service"), logger)
	return repo, db
}

func TestFulfillmentTaskRepository_CreateIfAbsent(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, newTestTask(t, "ord-1", 1))
	require.NoError(t, err)
	assert.True(t, created)

	// Same scope+order from another generation run is a no-op
	created, err = repo.CreateIfAbsent(ctx, newTestTask(t, "ord-1", 1))
	require.NoError(t, err)
	assert.False(t, created)

	ids, err := repo.OrderIDsWithTasks(ctx, testScope())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ord-1": true}, ids)
}

func TestFulfillmentTaskRepository_CreateIfAbsent_Concurrent(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := repo.CreateIfAbsent(ctx, newTestTask(t, "ord-race", 1))
			if err == nil {
				results <- created
			}
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	total := 0
	for created := range results {
		total++
		if created {
			winners++
		}
	}
	assert.Equal(t, 8, total)
	assert.Equal(t, 1, winners)
}

func TestFulfillmentTaskRepository_FindByTaskID(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	task := newTestTask(t, "ord-1", 3)
	_, err := repo.CreateIfAbsent(ctx, task)
	require.NoError(t, err)

	found, err := repo.FindByTaskID(ctx, task.TaskID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "ord-1", found.OrderID)
	assert.Equal(t, domain.TaskStatusOpen, found.Status)
	assert.Equal(t, 6.0, found.TotalEstKg)

	missing, err := repo.FindByTaskID(ctx, "FT-00000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFulfillmentTaskRepository_ReleaseAndClaim(t *testing.T) {
	repo, db := setupRepository(t)
	ctx := context.Background()

	low := newTestTask(t, "ord-low", 1)
	high := newTestTask(t, "ord-high", 9)
	for _, task := range []*domain.FulfillmentTask{low, high} {
		_, err := repo.CreateIfAbsent(ctx, task)
		require.NoError(t, err)
	}

	released, err := repo.ReleaseOpenTasks(ctx, testScope(), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)

	// Bulk release queues one event per task, same as individual releases
	releasedEvents, err := db.Collection("outbox_events").CountDocuments(ctx, bson.M{"eventType": cloudevents.TaskReleased})
	require.NoError(t, err)
	assert.Equal(t, int64(2), releasedEvents)

	claimed, err := repo.ClaimNextReady(ctx, testScope(), "picker-1", "Dana")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "ord-high", claimed.OrderID)
	assert.Equal(t, "picker-1", claimed.AssignedPicker)
	assert.Equal(t, domain.TaskStatusClaimed, claimed.Status)

	claimedEvents, err := db.Collection("outbox_events").CountDocuments(ctx, bson.M{"eventType": cloudevents.TaskClaimed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimedEvents)

	claimed, err = repo.ClaimNextReady(ctx, testScope(), "picker-2", "Noa")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "ord-low", claimed.OrderID)

	// Pool exhausted
	claimed, err = repo.ClaimNextReady(ctx, testScope(), "picker-3", "Avi")
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestFulfillmentTaskRepository_ClaimNextReady_Concurrent(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	task := newTestTask(t, "ord-1", 1)
	_, err := repo.CreateIfAbsent(ctx, task)
	require.NoError(t, err)
	_, err = repo.ReleaseOpenTasks(ctx, testScope(), "scheduler")
	require.NoError(t, err)

	var wg sync.WaitGroup
	winners := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(picker int) {
			defer wg.Done()
			claimed, err := repo.ClaimNextReady(ctx, testScope(), fmt.Sprintf("picker-%d", picker), "")
			if err == nil && claimed != nil {
				winners <- claimed.AssignedPicker
			}
		}(i)
	}
	wg.Wait()
	close(winners)

	count := 0
	for range winners {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestFulfillmentTaskRepository_SaveAndOutbox(t *testing.T) {
	repo, db := setupRepository(t)
	ctx := context.Background()

	task := newTestTask(t, "ord-1", 1)
	_, err := repo.CreateIfAbsent(ctx, task)
	require.NoError(t, err)

	loaded, err := repo.FindByTaskID(ctx, task.TaskID)
	require.NoError(t, err)
	require.NoError(t, loaded.Release("scheduler"))
	require.NoError(t, repo.Save(ctx, loaded))
	assert.Empty(t, loaded.DomainEvents)

	reloaded, err := repo.FindByTaskID(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusReady, reloaded.Status)

	count, err := db.Collection("outbox_events").CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Greater(t, count, int64(0))
}

func TestFulfillmentTaskRepository_List(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	for i, orderID := range []string{"ord-1", "ord-2", "ord-3"} {
		_, err := repo.CreateIfAbsent(ctx, newTestTask(t, orderID, i))
		require.NoError(t, err)
	}
	_, err := repo.ReleaseOpenTasks(ctx, testScope(), "scheduler")
	require.NoError(t, err)
	_, err = repo.ClaimNextReady(ctx, testScope(), "picker-1", "Dana")
	require.NoError(t, err)

	page, err := repo.List(ctx, domain.TaskListQuery{Scope: testScope(), Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, int64(2), page.CountsByStatus[domain.TaskStatusReady])
	assert.Equal(t, int64(1), page.CountsByStatus[domain.TaskStatusClaimed])
	assert.Equal(t, int64(1), page.CountsByPicker["picker-1"])

	// Ready tasks sort before claimed ones
	require.NotEmpty(t, page.Items)
	assert.Equal(t, domain.TaskStatusReady, page.Items[0].Status)

	claimedOnly, err := repo.List(ctx, domain.TaskListQuery{
		Scope:  testScope(),
		Status: domain.TaskStatusClaimed,
		Page:   1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimedOnly.TotalItems)
	assert.Equal(t, "picker-1", claimedOnly.Items[0].AssignedPicker)
}
