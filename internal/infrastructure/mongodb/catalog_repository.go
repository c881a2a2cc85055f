package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/DFCPagro/DFCP-sub001/internal/packing"
)

// ItemCatalogRepository reads item classification data
type ItemCatalogRepository struct {
	collection *mongo.Collection
}

// NewItemCatalogRepository creates a read-only item catalog
func NewItemCatalogRepository(db *mongo.Database) *ItemCatalogRepository {
	return &ItemCatalogRepository{collection: db.Collection("items")}
}

// ItemsByID fetches all requested items in one batched query. Missing ids
// are simply absent from the result; the engine warns about them.
func (r *ItemCatalogRepository) ItemsByID(ctx context.Context, ids []string) (map[string]packing.Item, error) {
	items := make(map[string]packing.Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var item packing.Item
		if err := cursor.Decode(&item); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		items[item.ID] = item
	}
	return items, cursor.Err()
}

// ContainerCatalogRepository reads the available box types
type ContainerCatalogRepository struct {
	collection *mongo.Collection
}

// NewContainerCatalogRepository creates a read-only container catalog
func NewContainerCatalogRepository(db *mongo.Database) *ContainerCatalogRepository {
	return &ContainerCatalogRepository{collection: db.Collection("container_types")}
}

// ContainerTypes lists every container type
func (r *ContainerCatalogRepository) ContainerTypes(ctx context.Context) ([]packing.ContainerType, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to query container types: %w", err)
	}
	defer cursor.Close(ctx)

	var containers []packing.ContainerType
	if err := cursor.All(ctx, &containers); err != nil {
		return nil, fmt.Errorf("failed to decode container types: %w", err)
	}
	return containers, nil
}

// OverrideRepository reads per-item packing overrides
type OverrideRepository struct {
	collection *mongo.Collection
}

// NewOverrideRepository creates a read-only override source
func NewOverrideRepository(db *mongo.Database) *OverrideRepository {
	return &OverrideRepository{collection: db.Collection("packing_overrides")}
}

// OverridesByID fetches overrides for the requested items in one query
func (r *OverrideRepository) OverridesByID(ctx context.Context, ids []string) (map[string]*packing.Override, error) {
	overrides := make(map[string]*packing.Override, len(ids))
	if len(ids) == 0 {
		return overrides, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query packing overrides: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var override packing.Override
		if err := cursor.Decode(&override); err != nil {
			return nil, fmt.Errorf("failed to decode packing override: %w", err)
		}
		o := override
		overrides[o.ItemID] = &o
	}
	return overrides, cursor.Err()
}
