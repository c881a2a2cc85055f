package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DFCPagro/DFCP-sub001/internal/domain"
	"github.com/DFCPagro/DFCP-sub001/internal/packing"
)

// OrderRepository reads orders scoped to a work center shift
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates a read-only order source
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection("orders")}
}

type orderDoc struct {
	ID       string              `bson:"_id"`
	Priority int                 `bson:"priority"`
	Lines    []packing.OrderLine `bson:"lines"`
}

// OrdersForShift returns every order in the scope. No pipeline-stage
// filtering happens here: every order in scope gets a task.
func (r *OrderRepository) OrdersForShift(ctx context.Context, scope domain.Scope) ([]domain.Order, error) {
	filter := bson.M{
		"workCenter": scope.WorkCenter,
		"shift":      scope.Shift,
		"shiftDate":  scope.ShiftDate,
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, domain.Order{
			ID:       doc.ID,
			Priority: doc.Priority,
			Lines:    doc.Lines,
		})
	}
	return orders, nil
}
