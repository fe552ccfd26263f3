package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pacekeeper/run-tracker/internal/domain"
	"pacekeeper/run-tracker/internal/repository"
	"pacekeeper/run-tracker/internal/storage"
	"pacekeeper/run-tracker/internal/strava"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// --- Error Definitions ---
var (
	ErrStravaNotLinked    = errors.New("no active Strava link for this user")
	ErrStravaLinkRejected = errors.New("strava rejected the authorization code")
	ErrNoArchivedPayload  = errors.New("no archived payload for this activity")
)

const (
	providerStrava = "strava"

	// Refresh tokens slightly before the reported expiry to avoid issuing a
	// request with a token that dies in flight.
	tokenExpiryMargin = 1 * time.Minute

	// First import pulls the athlete's most recent activities, mirroring the
	// "import last 30" action on the dashboard.
	importPageSize = 30
)

// --- Service Interface ---
type StravaService interface {
	// AuthorizationURL returns the Strava consent URL for the given opaque
	// state value.
	AuthorizationURL(state string) string
	// HandleCallback exchanges the authorization code and stores (or
	// refreshes) the user's Strava link.
	HandleCallback(ctx context.Context, userID primitive.ObjectID, code string) error
	// ImportRecentActivities pulls the athlete's most recent activities and
	// upserts them. Returns the number of newly inserted activities.
	ImportRecentActivities(ctx context.Context, userID primitive.ObjectID) (int, error)
	// ImportActivityByAthlete fetches and upserts one activity, routed by the
	// athlete id carried in a webhook event.
	ImportActivityByAthlete(ctx context.Context, athleteID, activityID int64) error
	// DeleteActivityByAthlete removes one activity and its archived payload,
	// routed by the athlete id carried in a webhook delete event.
	DeleteActivityByAthlete(ctx context.Context, athleteID, activityID int64) error
	// RawPayloadURL returns a short-lived download URL for the archived
	// provider payload of one of the user's activities.
	RawPayloadURL(ctx context.Context, userID primitive.ObjectID, stravaActivityID int64) (string, error)
}

// --- Service Implementation ---

type stravaService struct {
	client       *strava.Client
	oauthRepo    repository.OAuthAccountRepository
	activityRepo repository.ActivityRepository
	archive      storage.ObjectStorage

	// refreshGroup deduplicates concurrent token refreshes per account, so a
	// burst of imports for the same user performs one refresh round-trip.
	refreshGroup singleflight.Group
}

// NewStravaService creates a new instance of stravaService. The archive may
// be nil, in which case raw payloads are not kept.
func NewStravaService(
	client *strava.Client,
	oauthRepo repository.OAuthAccountRepository,
	activityRepo repository.ActivityRepository,
	archive storage.ObjectStorage,
) StravaService {
	return &stravaService{
		client:       client,
		oauthRepo:    oauthRepo,
		activityRepo: activityRepo,
		archive:      archive,
	}
}

func (s *stravaService) AuthorizationURL(state string) string {
	return s.client.AuthorizationURL(state)
}

// HandleCallback completes the OAuth link.
func (s *stravaService) HandleCallback(ctx context.Context, userID primitive.ObjectID, code string) error {
	token, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		if errors.Is(err, strava.ErrUnauthorized) {
			return ErrStravaLinkRejected
		}
		return err
	}
	if token.Athlete == nil {
		return errors.New("strava token response missing athlete")
	}

	account := &domain.OAuthAccount{
		UserID:            userID,
		Provider:          providerStrava,
		ProviderAccountID: fmt.Sprintf("%d", token.Athlete.ID),
		AthleteID:         token.Athlete.ID,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		ExpiresAt:         time.Unix(token.ExpiresAt, 0).UTC(),
		Scope:             strava.DefaultScopes,
		Active:            true,
	}
	return s.oauthRepo.Upsert(ctx, account)
}

// accessToken returns a live access token for the account, refreshing it
// when expired or about to expire. Concurrent callers share one refresh.
func (s *stravaService) accessToken(ctx context.Context, account *domain.OAuthAccount) (string, error) {
	if time.Until(account.ExpiresAt) > tokenExpiryMargin {
		return account.AccessToken, nil
	}

	v, err, _ := s.refreshGroup.Do(account.ID.Hex(), func() (interface{}, error) {
		refreshed, err := s.client.RefreshToken(ctx, account.RefreshToken)
		if err != nil {
			return nil, err
		}
		expiresAt := time.Unix(refreshed.ExpiresAt, 0).UTC()
		if err := s.oauthRepo.UpdateTokens(ctx, account.ID, refreshed.AccessToken, refreshed.RefreshToken, expiresAt); err != nil {
			return nil, err
		}
		return refreshed.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ImportRecentActivities pulls the most recent page of the athlete's
// activities and upserts each one.
func (s *stravaService) ImportRecentActivities(ctx context.Context, userID primitive.ObjectID) (int, error) {
	account, err := s.oauthRepo.GetByUserAndProvider(ctx, userID, providerStrava)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrStravaNotLinked
		}
		return 0, err
	}

	token, err := s.accessToken(ctx, account)
	if err != nil {
		return 0, err
	}

	summaries, err := s.client.ListAthleteActivities(ctx, token, 1, importPageSize)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, summary := range summaries {
		created, err := s.upsertActivity(ctx, account, &summary)
		if err != nil {
			return inserted, err
		}
		if created {
			inserted++
		}
	}
	log.Printf("INFO: imported %d/%d Strava activities for user %s", inserted, len(summaries), userID.Hex())
	return inserted, nil
}

// ImportActivityByAthlete handles the webhook path: the event names only the
// athlete and activity ids.
func (s *stravaService) ImportActivityByAthlete(ctx context.Context, athleteID, activityID int64) error {
	account, err := s.oauthRepo.GetByAthleteID(ctx, providerStrava, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStravaNotLinked
		}
		return err
	}

	token, err := s.accessToken(ctx, account)
	if err != nil {
		return err
	}

	summary, err := s.client.GetActivity(ctx, token, activityID)
	if err != nil {
		return err
	}
	_, err = s.upsertActivity(ctx, account, summary)
	return err
}

// DeleteActivityByAthlete handles a webhook delete event: the normalized row
// goes first, then the archived payload. A missing row is not an error, the
// event may be a replay.
func (s *stravaService) DeleteActivityByAthlete(ctx context.Context, athleteID, activityID int64) error {
	account, err := s.oauthRepo.GetByAthleteID(ctx, providerStrava, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStravaNotLinked
		}
		return err
	}

	activity, err := s.activityRepo.GetByStravaID(ctx, account.UserID, activityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.activityRepo.Delete(ctx, account.UserID, activityID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if s.archive != nil && activity.ArchiveObjectKey != "" {
		if err := s.archive.DeleteObject(ctx, activity.ArchiveObjectKey); err != nil {
			log.Printf("WARN: failed to delete archived payload %s: %v", activity.ArchiveObjectKey, err)
		}
	}
	return nil
}

// RawPayloadURL presigns a download of the archived provider payload.
func (s *stravaService) RawPayloadURL(ctx context.Context, userID primitive.ObjectID, stravaActivityID int64) (string, error) {
	activity, err := s.activityRepo.GetByStravaID(ctx, userID, stravaActivityID)
	if err != nil {
		return "", err
	}
	if s.archive == nil || activity.ArchiveObjectKey == "" {
		return "", ErrNoArchivedPayload
	}
	return s.archive.GeneratePresignedDownloadURL(ctx, activity.ArchiveObjectKey, storage.DefaultPresignedURLExpiry)
}

// upsertActivity normalizes one Strava activity, archives its raw payload,
// and upserts it. Archive failures are non-fatal: the normalized row is the
// source of truth, the archive is an audit trail.
func (s *stravaService) upsertActivity(ctx context.Context, account *domain.OAuthAccount, summary *strava.SummaryActivity) (bool, error) {
	athleteID := summary.Athlete.ID
	if athleteID == 0 {
		athleteID = account.AthleteID
	}

	activity := &domain.Activity{
		UserID:           account.UserID,
		StravaActivityID: summary.ID,
		AthleteID:        athleteID,
		Name:             summary.Name,
		SportType:        summary.SportType,
		DistanceMeters:   summary.Distance,
		MovingTimeSec:    summary.MovingTime,
		ElapsedTimeSec:   summary.ElapsedTime,
		StartDate:        summary.StartDate.UTC(),
		StartDateLocal:   summary.StartDateLocal,
		Timezone:         strava.ParseTimezone(summary.Timezone),
	}

	if s.archive != nil && len(summary.Raw) > 0 {
		objectKey := fmt.Sprintf("strava/%s/%d.json", account.UserID.Hex(), summary.ID)
		if err := s.archive.PutObject(ctx, objectKey, "application/json", summary.Raw); err != nil {
			log.Printf("WARN: failed to archive raw payload for activity %d: %v", summary.ID, err)
		} else {
			activity.ArchiveObjectKey = objectKey
		}
	}

	return s.activityRepo.Upsert(ctx, activity)
}
