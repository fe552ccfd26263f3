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

const activityCollectionName = "activities"

// mongoActivityRepository implements repository.ActivityRepository
type mongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new Activity repository.
func NewMongoActivityRepository(db *mongo.Database) repository.ActivityRepository {
	return &mongoActivityRepository{
		collection: db.Collection(activityCollectionName),
	}
}

// Upsert inserts or replaces an activity keyed on (userId, stravaActivityId).
// Webhook update events and re-imports land on the same row.
func (r *mongoActivityRepository) Upsert(ctx context.Context, activity *domain.Activity) (bool, error) {
	if activity.UserID == primitive.NilObjectID || activity.StravaActivityID == 0 {
		return false, errors.New("activity requires userId and stravaActivityId")
	}
	if activity.MovingTimeSec < 0 {
		return false, errors.New("activity movingTimeSec must be non-negative")
	}

	now := time.Now().UTC()
	activity.UpdatedAt = now

	filter := bson.M{
		"userId":           activity.UserID,
		"stravaActivityId": activity.StravaActivityID,
	}
	updateDoc := bson.M{
		"$set": bson.M{
			"athleteId":        activity.AthleteID,
			"name":             activity.Name,
			"sportType":        activity.SportType,
			"distanceMeters":   activity.DistanceMeters,
			"movingTimeSec":    activity.MovingTimeSec,
			"elapsedTimeSec":   activity.ElapsedTimeSec,
			"startDate":        activity.StartDate,
			"startDateLocal":   activity.StartDateLocal,
			"timezone":         activity.Timezone,
			"archiveObjectKey": activity.ArchiveObjectKey,
			"updatedAt":        activity.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"userId":           activity.UserID,
			"stravaActivityId": activity.StravaActivityID,
			"createdAt":        now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return result.UpsertedCount > 0, nil
}

// GetInWindow retrieves activities whose StartDate falls within [start, end).
func (r *mongoActivityRepository) GetInWindow(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]domain.Activity, error) {
	var activities []domain.Activity
	filter := bson.M{
		"userId": userID,
		"startDate": bson.M{
			"$gte": start,
			"$lt":  end,
		},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	// Return empty slice if nothing found
	return activities, nil
}

// GetByStravaID retrieves one activity by its Strava id.
func (r *mongoActivityRepository) GetByStravaID(ctx context.Context, userID primitive.ObjectID, stravaActivityID int64) (*domain.Activity, error) {
	var activity domain.Activity
	filter := bson.M{"userId": userID, "stravaActivityId": stravaActivityID}

	err := r.collection.FindOne(ctx, filter).Decode(&activity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// Delete removes one activity row. Returns ErrNotFound when nothing matched.
func (r *mongoActivityRepository) Delete(ctx context.Context, userID primitive.ObjectID, stravaActivityID int64) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID, "stravaActivityId": stravaActivityID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetMostRecent retrieves the user's most recently started activity.
func (r *mongoActivityRepository) GetMostRecent(ctx context.Context, userID primitive.ObjectID) (*domain.Activity, error) {
	var activity domain.Activity
	filter := bson.M{"userId": userID}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "startDate", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&activity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// EnsureActivityIndexes creates necessary indexes. Call during startup.
func EnsureActivityIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One row per (user, Strava activity); re-imports upsert onto it.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "stravaActivityId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Window queries filter by user and start date range.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "startDate", Value: -1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
