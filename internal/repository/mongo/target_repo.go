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

const targetCollectionName = "weekly_targets"

// mongoTargetRepository implements repository.TargetRepository
type mongoTargetRepository struct {
	collection *mongo.Collection
}

// NewMongoTargetRepository creates a new WeeklyTarget repository.
func NewMongoTargetRepository(db *mongo.Database) repository.TargetRepository {
	return &mongoTargetRepository{
		collection: db.Collection(targetCollectionName),
	}
}

// Create inserts a new weekly target. Two concurrent rollover calls can both
// pass the "no existing target" check; the partial unique index on
// (userId, weekStart, source=auto) makes the losing insert fail with
// ErrDuplicate so the caller can re-read the winning row.
func (r *mongoTargetRepository) Create(ctx context.Context, target *domain.WeeklyTarget) (primitive.ObjectID, error) {
	if target.UserID == primitive.NilObjectID || target.Source == "" || target.WeekStart.IsZero() {
		return primitive.NilObjectID, errors.New("target requires userId, source, and weekStart")
	}
	if target.ActiveSeconds <= 0 {
		return primitive.NilObjectID, errors.New("target activeSeconds must be positive")
	}

	target.ID = primitive.NewObjectID()
	target.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, target)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted target ID")
	}
	return insertedID, nil
}

// GetLatestSince retrieves the most recently created target at or after the
// given instant. A manual target inserted later in the week supersedes an
// earlier auto one because of the createdAt sort.
func (r *mongoTargetRepository) GetLatestSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (*domain.WeeklyTarget, error) {
	var target domain.WeeklyTarget
	filter := bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": since},
	}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&target)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &target, nil
}

// GetLatestInWindow retrieves the most recently created target with
// createdAt in [start, end).
func (r *mongoTargetRepository) GetLatestInWindow(ctx context.Context, userID primitive.ObjectID, start, end time.Time) (*domain.WeeklyTarget, error) {
	var target domain.WeeklyTarget
	filter := bson.M{
		"userId": userID,
		"createdAt": bson.M{
			"$gte": start,
			"$lt":  end,
		},
	}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&target)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &target, nil
}

// EnsureTargetIndexes creates necessary indexes. Call during startup.
func EnsureTargetIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// At most one auto target per (user, week). Manual targets are
			// exempt: the user may re-enter a target any number of times.
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "weekStart", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"source": string(domain.TargetSourceAuto)}),
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
