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

const oauthCollectionName = "oauth_accounts"

// mongoOAuthAccountRepository implements repository.OAuthAccountRepository
type mongoOAuthAccountRepository struct {
	collection *mongo.Collection
}

// NewMongoOAuthAccountRepository creates a new OAuthAccount repository.
func NewMongoOAuthAccountRepository(db *mongo.Database) repository.OAuthAccountRepository {
	return &mongoOAuthAccountRepository{
		collection: db.Collection(oauthCollectionName),
	}
}

// Upsert inserts or refreshes the link keyed on (provider, providerAccountId).
// Re-linking the same Strava account updates tokens in place.
func (r *mongoOAuthAccountRepository) Upsert(ctx context.Context, account *domain.OAuthAccount) error {
	if account.UserID == primitive.NilObjectID || account.Provider == "" || account.ProviderAccountID == "" {
		return errors.New("oauth account requires userId, provider, and providerAccountId")
	}

	now := time.Now().UTC()
	filter := bson.M{
		"provider":          account.Provider,
		"providerAccountId": account.ProviderAccountID,
	}
	updateDoc := bson.M{
		"$set": bson.M{
			"userId":       account.UserID,
			"athleteId":    account.AthleteID,
			"accessToken":  account.AccessToken,
			"refreshToken": account.RefreshToken,
			"expiresAt":    account.ExpiresAt,
			"scope":        account.Scope,
			"active":       account.Active,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"provider":          account.Provider,
			"providerAccountId": account.ProviderAccountID,
			"createdAt":         now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, updateDoc, options.Update().SetUpsert(true))
	return err
}

// GetByUserAndProvider retrieves the user's link for a provider.
func (r *mongoOAuthAccountRepository) GetByUserAndProvider(ctx context.Context, userID primitive.ObjectID, provider string) (*domain.OAuthAccount, error) {
	var account domain.OAuthAccount
	filter := bson.M{"userId": userID, "provider": provider, "active": true}

	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByProviderAccountID retrieves a link by the provider's account id.
func (r *mongoOAuthAccountRepository) GetByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*domain.OAuthAccount, error) {
	var account domain.OAuthAccount
	filter := bson.M{"provider": provider, "providerAccountId": providerAccountID}

	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByAthleteID retrieves a link by the numeric athlete id carried in
// webhook events.
func (r *mongoOAuthAccountRepository) GetByAthleteID(ctx context.Context, provider string, athleteID int64) (*domain.OAuthAccount, error) {
	var account domain.OAuthAccount
	filter := bson.M{"provider": provider, "athleteId": athleteID, "active": true}

	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateTokens stores a refreshed token pair.
func (r *mongoOAuthAccountRepository) UpdateTokens(ctx context.Context, id primitive.ObjectID, accessToken, refreshToken string, expiresAt time.Time) error {
	if id == primitive.NilObjectID {
		return errors.New("oauth account ID is required for token update")
	}
	updateDoc := bson.M{
		"$set": bson.M{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
			"expiresAt":    expiresAt,
			"updatedAt":    time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureOAuthAccountIndexes creates necessary indexes. Call during startup.
func EnsureOAuthAccountIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "providerAccountId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "provider", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "athleteId", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
