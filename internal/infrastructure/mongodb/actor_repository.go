package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/DFCPagro/DFCP-sub001/internal/domain"
)

// ActorRepository resolves actor ids to directory entries
type ActorRepository struct {
	collection *mongo.Collection
}

// NewActorRepository creates a read-only actor directory
func NewActorRepository(db *mongo.Database) *ActorRepository {
	return &ActorRepository{collection: db.Collection("actors")}
}

type actorDoc struct {
	ID          string `bson:"_id"`
	DisplayName string `bson:"displayName"`
	Role        string `bson:"role"`
}

// FindActor returns the actor or (nil, nil) when unknown
func (r *ActorRepository) FindActor(ctx context.Context, actorID string) (*domain.Actor, error) {
	var doc actorDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": actorID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find actor: %w", err)
	}

	return &domain.Actor{
		ID:          doc.ID,
		DisplayName: doc.DisplayName,
		Role:        doc.Role,
	}, nil
}
