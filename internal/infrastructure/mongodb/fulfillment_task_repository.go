package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DFCPagro/DFCP-sub001/internal/domain"
	"github.com/DFCPagro/DFCP-sub001/pkg/cloudevents"
	"github.com/DFCPagro/DFCP-sub001/pkg/kafka"
	"github.com/DFCPagro/DFCP-sub001/pkg/logging"
	"github.com/DFCPagro/DFCP-sub001/pkg/outbox"
	outboxMongo "github.com/DFCPagro/DFCP-sub001/pkg/outbox/mongodb"
)

// FulfillmentTaskRepository implements domain.TaskRepository on MongoDB
type FulfillmentTaskRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	logger       *logging.Logger
}

// NewFulfillmentTaskRepository creates the repository and ensures its indexes
func NewFulfillmentTaskRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, logger *logging.Logger) *FulfillmentTaskRepository {
	repo := &FulfillmentTaskRepository{
		collection:   db.Collection("fulfillment_tasks"),
		db:           db,
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
		logger:       logger.WithComponent("task_repository"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)
	_ = repo.outboxRepo.EnsureIndexes(ctx)

	return repo
}

// GetOutboxRepository exposes the outbox store for the publisher loop
func (r *FulfillmentTaskRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}

func (r *FulfillmentTaskRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			// One task per order per shift scope. Creation relies on this
			// index plus insert-only upserts for exactly-once semantics.
			Keys: bson.D{
				{Key: "workCenter", Value: 1},
				{Key: "shift", Value: 1},
				{Key: "shiftDate", Value: 1},
				{Key: "orderId", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_scope_order"),
		},
		{Keys: bson.D{{Key: "taskId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			// Claim path: scope + status + assignment, ordered by priority/age
			Keys: bson.D{
				{Key: "workCenter", Value: 1},
				{Key: "shift", Value: 1},
				{Key: "shiftDate", Value: 1},
				{Key: "status", Value: 1},
				{Key: "priority", Value: -1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_claim_scan"),
		},
		{Keys: bson.D{{Key: "assignedPicker", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// CreateIfAbsent inserts the task unless its scope+order tuple already has
// one. A losing concurrent writer observes UpsertedCount == 0 and no error.
func (r *FulfillmentTaskRepository) CreateIfAbsent(ctx context.Context, task *domain.FulfillmentTask) (bool, error) {
	task.RecomputeTotals()

	filter := bson.M{
		"workCenter": task.WorkCenter,
		"shift":      task.Shift,
		"shiftDate":  task.ShiftDate,
		"orderId":    task.OrderID,
	}
	update := bson.M{"$setOnInsert": task}
	opts := options.Update().SetUpsert(true)

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		// A duplicate-key race between the filter check and the insert is
		// the same outcome as losing the upsert: the task already exists.
		if mongo.IsDuplicateKeyError(err) {
			task.ClearEvents()
			return false, nil
		}
		return false, fmt.Errorf("failed to create task: %w", err)
	}

	if result.UpsertedCount == 0 {
		task.ClearEvents()
		return false, nil
	}

	if err := r.saveEvents(ctx, task); err != nil {
		return true, err
	}
	task.ClearEvents()
	return true, nil
}

// Save persists the aggregate and its pending events in one transaction
func (r *FulfillmentTaskRepository) Save(ctx context.Context, task *domain.FulfillmentTask) error {
	task.RecomputeTotals()
	task.UpdatedAt = time.Now().UTC()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		filter := bson.M{"taskId": task.TaskID}
		update := bson.M{"$set": task}
		opts := options.Update().SetUpsert(true)

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return nil, fmt.Errorf("failed to save task: %w", err)
		}

		if err := r.saveEvents(sessCtx, task); err != nil {
			return nil, err
		}

		task.ClearEvents()
		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

func (r *FulfillmentTaskRepository) saveEvents(ctx context.Context, task *domain.FulfillmentTask) error {
	if len(task.DomainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(task.DomainEvents))
	for _, event := range task.DomainEvents {
		cloudEvent := r.eventFactory.CreateTaskEvent(
			ctx,
			event.EventType(),
			task.TaskID,
			task.WorkCenter,
			task.Shift,
			task.OrderID,
			event,
		)

		outboxEvent, err := outbox.NewOutboxEvent(task.TaskID, "FulfillmentTask", kafka.Topics.FulfillmentEvents, cloudEvent)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := r.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

// FindByTaskID returns the task or (nil, nil) when absent
func (r *FulfillmentTaskRepository) FindByTaskID(ctx context.Context, taskID string) (*domain.FulfillmentTask, error) {
	var task domain.FulfillmentTask
	err := r.collection.FindOne(ctx, bson.M{"taskId": taskID}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// OrderIDsWithTasks returns the order ids that already have a task in scope
func (r *FulfillmentTaskRepository) OrderIDsWithTasks(ctx context.Context, scope domain.Scope) (map[string]bool, error) {
	filter := scopeFilter(scope)
	opts := options.Find().SetProjection(bson.M{"orderId": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing tasks: %w", err)
	}
	defer cursor.Close(ctx)

	ids := make(map[string]bool)
	for cursor.Next(ctx) {
		var doc struct {
			OrderID string `bson:"orderId"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		ids[doc.OrderID] = true
	}
	return ids, cursor.Err()
}

// ReleaseOpenTasks bulk-transitions open tasks in scope to ready, queueing
// one released event per task in the same transaction so consumers see
// auto-released tasks exactly like individually released ones.
func (r *FulfillmentTaskRepository) ReleaseOpenTasks(ctx context.Context, scope domain.Scope, actor string) (int64, error) {
	now := time.Now().UTC()

	filter := scopeFilter(scope)
	filter["status"] = domain.TaskStatusOpen

	update := bson.M{
		"$set": bson.M{
			"status":    domain.TaskStatusReady,
			"updatedAt": now,
		},
		"$push": bson.M{
			"audit": domain.AuditEntry{Action: "released", Actor: actor, At: now},
		},
	}

	session, err := r.db.Client().StartSession()
	if err != nil {
		return 0, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	released, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		cursor, err := r.collection.Find(sessCtx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to query open tasks: %w", err)
		}
		var tasks []*domain.FulfillmentTask
		if err := cursor.All(sessCtx, &tasks); err != nil {
			return nil, fmt.Errorf("failed to decode open tasks: %w", err)
		}
		if len(tasks) == 0 {
			return int64(0), nil
		}

		result, err := r.collection.UpdateMany(sessCtx, filter, update)
		if err != nil {
			return nil, fmt.Errorf("failed to release open tasks: %w", err)
		}

		outboxEvents := make([]*outbox.OutboxEvent, 0, len(tasks))
		for _, task := range tasks {
			task.Status = domain.TaskStatusReady
			cloudEvent := r.eventFactory.CreateTaskEvent(
				sessCtx,
				cloudevents.TaskReleased,
				task.TaskID,
				task.WorkCenter,
				task.Shift,
				task.OrderID,
				domain.NewTaskReleasedEvent(task),
			)
			outboxEvent, err := outbox.NewOutboxEvent(task.TaskID, "FulfillmentTask", kafka.Topics.FulfillmentEvents, cloudEvent)
			if err != nil {
				return nil, fmt.Errorf("failed to create outbox event: %w", err)
			}
			outboxEvents = append(outboxEvents, outboxEvent)
		}
		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return nil, fmt.Errorf("failed to save outbox events: %w", err)
		}

		return result.ModifiedCount, nil
	})
	if err != nil {
		return 0, fmt.Errorf("transaction failed: %w", err)
	}
	return released.(int64), nil
}

// ClaimNextReady atomically claims the best available task. The filter
// re-checks "ready and unassigned" at the moment of mutation, so concurrent
// callers can never both win the same task.
func (r *FulfillmentTaskRepository) ClaimNextReady(ctx context.Context, scope domain.Scope, pickerID, pickerName string) (*domain.FulfillmentTask, error) {
	now := time.Now().UTC()

	filter := scopeFilter(scope)
	filter["status"] = domain.TaskStatusReady
	filter["$or"] = []bson.M{
		{"assignedPicker": ""},
		{"assignedPicker": nil},
		{"assignedPicker": bson.M{"$exists": false}},
	}

	note := ""
	if pickerName != "" {
		note = "claimed by " + pickerName
	}

	update := bson.M{
		"$set": bson.M{
			"status":             domain.TaskStatusClaimed,
			"assignedPicker":     pickerID,
			"progress.startedAt": now,
			"updatedAt":          now,
		},
		"$push": bson.M{
			"audit": domain.AuditEntry{Action: "claimed", Actor: pickerID, At: now, Note: note},
		},
	}

	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	var task domain.FulfillmentTask
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	// Event delivery is best-effort relative to the claim itself; the claim
	// has already committed.
	claimed := &task
	cloudEvent := r.eventFactory.CreateTaskEvent(ctx, cloudevents.TaskClaimed, claimed.TaskID, claimed.WorkCenter, claimed.Shift, claimed.OrderID, domain.NewTaskClaimedEvent(claimed))
	outboxEvent, queueErr := outbox.NewOutboxEvent(claimed.TaskID, "FulfillmentTask", kafka.Topics.FulfillmentEvents, cloudEvent)
	if queueErr == nil {
		queueErr = r.outboxRepo.Save(ctx, outboxEvent)
	}
	if queueErr != nil {
		r.logger.WithError(queueErr).Warn("claim event not queued",
			"taskId", claimed.TaskID,
			"orderId", claimed.OrderID,
		)
	}

	return claimed, nil
}

// statusRankBranches orders listings: claimable work first, finished last
func statusRankBranches() bson.M {
	return bson.M{
		"$switch": bson.M{
			"branches": []bson.M{
				{"case": bson.M{"$eq": []interface{}{"$status", domain.TaskStatusReady}}, "then": 0},
				{"case": bson.M{"$eq": []interface{}{"$status", domain.TaskStatusClaimed}}, "then": 1},
				{"case": bson.M{"$eq": []interface{}{"$status", domain.TaskStatusInProgress}}, "then": 2},
				{"case": bson.M{"$eq": []interface{}{"$status", domain.TaskStatusOpen}}, "then": 3},
				{"case": bson.M{"$eq": []interface{}{"$status", domain.TaskStatusProblem}}, "then": 4},
				{"case": bson.M{"$eq": []interface{}{"$status", domain.TaskStatusCancelled}}, "then": 5},
			},
			"default": 6,
		},
	}
}

// List returns a filtered page of tasks plus scope-wide status and
// assignment counts, computed in one aggregation round trip.
func (r *FulfillmentTaskRepository) List(ctx context.Context, query domain.TaskListQuery) (*domain.TaskPage, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = 20
	}

	itemFilter := bson.M{}
	if query.Status != "" {
		itemFilter["status"] = query.Status
	}
	if query.AssignedPicker != "" {
		itemFilter["assignedPicker"] = query.AssignedPicker
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: scopeFilter(query.Scope)}},
		{{Key: "$addFields", Value: bson.M{"statusRank": statusRankBranches()}}},
		{{Key: "$facet", Value: bson.M{
			"items": []bson.M{
				{"$match": itemFilter},
				{"$sort": bson.D{
					{Key: "statusRank", Value: 1},
					{Key: "priority", Value: -1},
					{Key: "createdAt", Value: 1},
				}},
				{"$skip": (query.Page - 1) * query.PageSize},
				{"$limit": query.PageSize},
			},
			"total": []bson.M{
				{"$match": itemFilter},
				{"$count": "count"},
			},
			"byStatus": []bson.M{
				{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"byPicker": []bson.M{
				{"$match": bson.M{"assignedPicker": bson.M{"$nin": []interface{}{"", nil}}}},
				{"$group": bson.M{"_id": "$assignedPicker", "count": bson.M{"$sum": 1}}},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Items []*domain.FulfillmentTask `bson:"items"`
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
		ByStatus []struct {
			ID    domain.TaskStatus `bson:"_id"`
			Count int64             `bson:"count"`
		} `bson:"byStatus"`
		ByPicker []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"byPicker"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode task listing: %w", err)
	}

	page := &domain.TaskPage{
		CountsByStatus: make(map[domain.TaskStatus]int64),
		CountsByPicker: make(map[string]int64),
	}
	if len(results) == 0 {
		return page, nil
	}

	result := results[0]
	page.Items = result.Items
	if len(result.Total) > 0 {
		page.TotalItems = result.Total[0].Count
	}
	for _, entry := range result.ByStatus {
		page.CountsByStatus[entry.ID] = entry.Count
	}
	for _, entry := range result.ByPicker {
		page.CountsByPicker[entry.ID] = entry.Count
	}
	return page, nil
}

func scopeFilter(scope domain.Scope) bson.M {
	return bson.M{
		"workCenter": scope.WorkCenter,
		"shift":      scope.Shift,
		"shiftDate":  scope.ShiftDate,
	}
}
