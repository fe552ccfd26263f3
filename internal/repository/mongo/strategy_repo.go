package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"pacekeeper/run-tracker/internal/domain"
	"pacekeeper/run-tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const strategyCollectionName = "progression_strategies"

// mongoStrategyRepository implements repository.StrategyRepository
type mongoStrategyRepository struct {
	collection *mongo.Collection
}

// NewMongoStrategyRepository creates a new ProgressionStrategy repository.
func NewMongoStrategyRepository(db *mongo.Database) repository.StrategyRepository {
	return &mongoStrategyRepository{
		collection: db.Collection(strategyCollectionName),
	}
}

// Create inserts a new strategy. The partial unique index on (userId,
// active=true) rejects a second active strategy; the service deactivates
// existing ones first.
func (r *mongoStrategyRepository) Create(ctx context.Context, strategy *domain.ProgressionStrategy) (primitive.ObjectID, error) {
	if strategy.UserID == primitive.NilObjectID || strategy.Name == "" {
		return primitive.NilObjectID, errors.New("strategy requires userId and name")
	}
	if strategy.AnchorDate.IsZero() {
		return primitive.NilObjectID, errors.New("strategy requires an anchor date")
	}

	strategy.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	strategy.CreatedAt = now
	strategy.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, strategy)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted strategy ID")
	}
	return insertedID, nil
}

// GetActive retrieves the user's active strategy. Sorted by createdAt so the
// most recently created one wins if more than one is somehow active.
func (r *mongoStrategyRepository) GetActive(ctx context.Context, userID primitive.ObjectID) (*domain.ProgressionStrategy, error) {
	var strategy domain.ProgressionStrategy
	filter := bson.M{"userId": userID, "active": true}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&strategy)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &strategy, nil
}

// CountActive reports how many active strategies the user has.
func (r *mongoStrategyRepository) CountActive(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"userId": userID, "active": true})
}

// DeactivateAll clears the active flag on every strategy of the user.
func (r *mongoStrategyRepository) DeactivateAll(ctx context.Context, userID primitive.ObjectID) error {
	updateDoc := bson.M{
		"$set": bson.M{
			"active":    false,
			"updatedAt": time.Now().UTC(),
		},
	}
	_, err := r.collection.UpdateMany(ctx, bson.M{"userId": userID, "active": true}, updateDoc)
	return err
}

// EnsureStrategyIndexes creates necessary indexes. Call during startup.
func EnsureStrategyIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Single-active-strategy invariant, enforced by the store rather
			// than relied on as a silent most-recent-wins recovery.
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
