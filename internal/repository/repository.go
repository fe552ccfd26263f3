package repository

import (
	"context"
	"time"

	"pacekeeper/run-tracker/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	// ListIDs returns every known user id. Used by the batch rollover runner.
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// ActivityRepository defines the interface for interacting with imported
// Strava activities.
type ActivityRepository interface {
	// Upsert inserts the activity or replaces the existing row with the same
	// (userId, stravaActivityId). Returns true when a new row was inserted.
	Upsert(ctx context.Context, activity *domain.Activity) (bool, error)
	// GetInWindow returns activities whose StartDate falls in [start, end).
	GetInWindow(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]domain.Activity, error)
	// GetByStravaID returns the user's activity with the given Strava id, or
	// ErrNotFound.
	GetByStravaID(ctx context.Context, userID primitive.ObjectID, stravaActivityID int64) (*domain.Activity, error)
	// Delete removes the activity, or returns ErrNotFound.
	Delete(ctx context.Context, userID primitive.ObjectID, stravaActivityID int64) error
	// GetMostRecent returns the user's most recently started activity, used to
	// derive their effective timezone.
	GetMostRecent(ctx context.Context, userID primitive.ObjectID) (*domain.Activity, error)
}

// TargetRepository defines the interface for interacting with weekly targets.
type TargetRepository interface {
	// Create inserts a target. For source=auto rows a unique index on
	// (userId, weekStart) rejects a second insert for the same week with
	// ErrDuplicate; manual rows are unrestricted.
	Create(ctx context.Context, target *domain.WeeklyTarget) (primitive.ObjectID, error)
	// GetLatestSince returns the most recently created target with
	// CreatedAt >= since, or ErrNotFound.
	GetLatestSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (*domain.WeeklyTarget, error)
	// GetLatestInWindow returns the most recently created target with
	// CreatedAt in [start, end), or ErrNotFound.
	GetLatestInWindow(ctx context.Context, userID primitive.ObjectID, start, end time.Time) (*domain.WeeklyTarget, error)
}

// StrategyRepository defines the interface for interacting with progression
// strategies.
type StrategyRepository interface {
	Create(ctx context.Context, strategy *domain.ProgressionStrategy) (primitive.ObjectID, error)
	// GetActive returns the user's active strategy, most recently created
	// first if the single-active invariant has been violated, or ErrNotFound.
	GetActive(ctx context.Context, userID primitive.ObjectID) (*domain.ProgressionStrategy, error)
	// CountActive reports how many active strategies the user has. Anything
	// above one is an anomaly the service layer logs.
	CountActive(ctx context.Context, userID primitive.ObjectID) (int64, error)
	// DeactivateAll clears the active flag on every strategy of the user.
	DeactivateAll(ctx context.Context, userID primitive.ObjectID) error
}

// OAuthAccountRepository defines the interface for provider-linked accounts
// and their tokens.
type OAuthAccountRepository interface {
	Upsert(ctx context.Context, account *domain.OAuthAccount) error
	GetByUserAndProvider(ctx context.Context, userID primitive.ObjectID, provider string) (*domain.OAuthAccount, error)
	GetByProviderAccountID(ctx context.Context, provider, providerAccountID string) (*domain.OAuthAccount, error)
	GetByAthleteID(ctx context.Context, provider string, athleteID int64) (*domain.OAuthAccount, error)
	UpdateTokens(ctx context.Context, id primitive.ObjectID, accessToken, refreshToken string, expiresAt time.Time) error
}
