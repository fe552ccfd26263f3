package service

import (
	"context"
	"errors"
	"log"
	"time"

	"pacekeeper/run-tracker/internal/domain"
	"pacekeeper/run-tracker/internal/plan"
	"pacekeeper/run-tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// --- Error Definitions ---
var (
	ErrInvalidTargetValue = errors.New("target value must be a positive number of seconds")
)

// TargetRollover is the outcome of an ensure-this-week-target call.
// Target is nil when the user had no activity last week (nothing to
// project from); Created reports whether this call inserted the row.
type TargetRollover struct {
	Target  *domain.WeeklyTarget
	Created bool
}

// WeeklySummary is the dashboard's progress view: actual moving time against
// the target for the current and previous week.
type WeeklySummary struct {
	Timezone              string
	WeekStart             time.Time
	ThisWeekTarget        *domain.WeeklyTarget
	LastWeekTarget        *domain.WeeklyTarget
	ThisWeekActualSeconds float64
	LastWeekActualSeconds float64
}

// --- Service Interface ---
type TargetService interface {
	// EnsureThisWeekTarget is the idempotent weekly rollover for one user:
	// at most one auto target is ever created per (user, week), no matter
	// how many times or how concurrently it is called.
	EnsureThisWeekTarget(ctx context.Context, userID primitive.ObjectID) (*TargetRollover, error)
	// GetThisWeekTarget returns the authoritative target for the current
	// week (most recently created), or nil when none exists.
	GetThisWeekTarget(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyTarget, error)
	// GetLastWeekTarget returns the most recently created target of the
	// previous week, or nil when none exists.
	GetLastWeekTarget(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyTarget, error)
	// CreateManualTarget records a user-entered target for the current week.
	CreateManualTarget(ctx context.Context, userID primitive.ObjectID, activeSeconds float64) (*domain.WeeklyTarget, error)
	// GetWeeklySummary returns actuals and targets for the current and
	// previous week in the user's effective timezone.
	GetWeeklySummary(ctx context.Context, userID primitive.ObjectID) (*WeeklySummary, error)
}

// --- Service Implementation ---

// targetService implements the TargetService interface.
type targetService struct {
	targetRepo      repository.TargetRepository
	activityRepo    repository.ActivityRepository
	strategyRepo    repository.StrategyRepository
	defaultTimezone string

	// inflight deduplicates concurrent rollover calls per user inside this
	// process. This is an optimization: correctness rests on the store's
	// unique index on (userId, weekStart, source=auto).
	inflight singleflight.Group

	now func() time.Time
}

// NewTargetService creates a new instance of targetService.
func NewTargetService(
	targetRepo repository.TargetRepository,
	activityRepo repository.ActivityRepository,
	strategyRepo repository.StrategyRepository,
	defaultTimezone string,
) TargetService {
	return newTargetService(targetRepo, activityRepo, strategyRepo, defaultTimezone)
}

func newTargetService(
	targetRepo repository.TargetRepository,
	activityRepo repository.ActivityRepository,
	strategyRepo repository.StrategyRepository,
	defaultTimezone string,
) *targetService {
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &targetService{
		targetRepo:      targetRepo,
		activityRepo:    activityRepo,
		strategyRepo:    strategyRepo,
		defaultTimezone: defaultTimezone,
		now:             time.Now,
	}
}

// effectiveTimezone derives the user's timezone from their most recent
// imported activity, falling back to the configured default when the user
// has no activities or the stored identifier does not resolve.
func (s *targetService) effectiveTimezone(ctx context.Context, userID primitive.ObjectID) (*time.Location, error) {
	latest, err := s.activityRepo.GetMostRecent(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	} else if latest.Timezone != "" {
		loc, tzErr := plan.LoadTimezone(latest.Timezone)
		if tzErr == nil {
			return loc, nil
		}
		log.Printf("WARN: user %s has unresolvable activity timezone %q, using default", userID.Hex(), latest.Timezone)
	}
	return plan.LoadTimezone(s.defaultTimezone)
}

// EnsureThisWeekTarget implements the weekly rollover. Concurrent callers for
// the same user share one in-flight computation; across processes the store
// index closes the check-then-act race.
func (s *targetService) EnsureThisWeekTarget(ctx context.Context, userID primitive.ObjectID) (*TargetRollover, error) {
	v, err, _ := s.inflight.Do(userID.Hex(), func() (interface{}, error) {
		return s.ensureThisWeekTarget(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TargetRollover), nil
}

func (s *targetService) ensureThisWeekTarget(ctx context.Context, userID primitive.ObjectID) (*TargetRollover, error) {
	loc, err := s.effectiveTimezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	thisWeekStart := plan.WeekStart(now, loc, 0)
	lastWeekStart := plan.WeekStart(now, loc, 1)

	// Idempotence: any target created since the week boundary short-circuits.
	existing, err := s.targetRepo.GetLatestSince(ctx, userID, thisWeekStart)
	if err == nil {
		return &TargetRollover{Target: existing, Created: false}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	strategy, err := s.activeStrategy(ctx, userID)
	if err != nil {
		return nil, err
	}

	lastWeekTarget, err := s.targetRepo.GetLatestInWindow(ctx, userID, lastWeekStart, thisWeekStart)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		lastWeekTarget = nil
	}

	activities, err := s.activityRepo.GetInWindow(ctx, userID, lastWeekStart, thisWeekStart)
	if err != nil {
		return nil, err
	}
	lastWeekActual := float64(plan.SumMovingTime(activities))

	// An inactive week gives nothing meaningful to project from; the user
	// has to set a target manually.
	if lastWeekActual <= 0 {
		return &TargetRollover{Target: nil, Created: false}, nil
	}

	// Compound off last week's target when the user overshot it, otherwise
	// off what they actually did. Overshooting one week must not inflate
	// every following week.
	base := lastWeekActual
	if lastWeekTarget != nil && lastWeekTarget.ActiveSeconds < lastWeekActual {
		base = lastWeekTarget.ActiveSeconds
	}

	newActiveSeconds := base * plan.DefaultWeekProgressionMultiplier
	if strategy != nil {
		if plan.IsDeloadWeek(strategy, now, loc, 0) {
			newActiveSeconds = base * *strategy.DeloadMultiplier
		} else if strategy.WeekProgressionMultiplier != nil {
			newActiveSeconds = base * *strategy.WeekProgressionMultiplier
		}
	}

	target := &domain.WeeklyTarget{
		UserID:        userID,
		ActiveSeconds: newActiveSeconds,
		Source:        domain.TargetSourceAuto,
		WeekStart:     thisWeekStart.UTC(),
	}
	targetID, err := s.targetRepo.Create(ctx, target)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent caller won the insert; theirs is the target.
			winner, readErr := s.targetRepo.GetLatestSince(ctx, userID, thisWeekStart)
			if readErr != nil {
				return nil, readErr
			}
			return &TargetRollover{Target: winner, Created: false}, nil
		}
		return nil, err
	}
	target.ID = targetID
	return &TargetRollover{Target: target, Created: true}, nil
}

// activeStrategy returns the user's active strategy or nil. More than one
// active strategy violates an invariant the store index should prevent; it
// is logged and resolved by taking the most recently created.
func (s *targetService) activeStrategy(ctx context.Context, userID primitive.ObjectID) (*domain.ProgressionStrategy, error) {
	count, err := s.strategyRepo.CountActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count > 1 {
		log.Printf("WARN: user %s has %d active progression strategies, using most recent", userID.Hex(), count)
	}
	strategy, err := s.strategyRepo.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return strategy, nil
}

// GetThisWeekTarget returns the most recently created target of the current
// week, or nil when there is none.
func (s *targetService) GetThisWeekTarget(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyTarget, error) {
	loc, err := s.effectiveTimezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	target, err := s.targetRepo.GetLatestSince(ctx, userID, plan.WeekStart(s.now(), loc, 0))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return target, nil
}

// GetLastWeekTarget returns the most recently created target of the previous
// week, or nil when there is none.
func (s *targetService) GetLastWeekTarget(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyTarget, error) {
	loc, err := s.effectiveTimezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	target, err := s.targetRepo.GetLatestInWindow(ctx, userID, plan.WeekStart(now, loc, 1), plan.WeekStart(now, loc, 0))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return target, nil
}

// CreateManualTarget records a user-entered target for the current week.
// Manual targets are exempt from the one-per-week rule: the latest created
// row wins on read.
func (s *targetService) CreateManualTarget(ctx context.Context, userID primitive.ObjectID, activeSeconds float64) (*domain.WeeklyTarget, error) {
	if activeSeconds <= 0 {
		return nil, ErrInvalidTargetValue
	}
	loc, err := s.effectiveTimezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	target := &domain.WeeklyTarget{
		UserID:        userID,
		ActiveSeconds: activeSeconds,
		Source:        domain.TargetSourceManual,
		WeekStart:     plan.WeekStart(s.now(), loc, 0).UTC(),
	}
	targetID, err := s.targetRepo.Create(ctx, target)
	if err != nil {
		return nil, err
	}
	target.ID = targetID
	return target, nil
}

// GetWeeklySummary assembles the dashboard's progress view.
func (s *targetService) GetWeeklySummary(ctx context.Context, userID primitive.ObjectID) (*WeeklySummary, error) {
	loc, err := s.effectiveTimezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	thisWeekStart := plan.WeekStart(now, loc, 0)
	lastWeekStart := plan.WeekStart(now, loc, 1)

	summary := &WeeklySummary{
		Timezone:  loc.String(),
		WeekStart: thisWeekStart.UTC(),
	}

	thisWeekActivities, err := s.activityRepo.GetInWindow(ctx, userID, thisWeekStart, now)
	if err != nil {
		return nil, err
	}
	summary.ThisWeekActualSeconds = float64(plan.SumMovingTime(thisWeekActivities))

	lastWeekActivities, err := s.activityRepo.GetInWindow(ctx, userID, lastWeekStart, thisWeekStart)
	if err != nil {
		return nil, err
	}
	summary.LastWeekActualSeconds = float64(plan.SumMovingTime(lastWeekActivities))

	if target, err := s.targetRepo.GetLatestSince(ctx, userID, thisWeekStart); err == nil {
		summary.ThisWeekTarget = target
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if target, err := s.targetRepo.GetLatestInWindow(ctx, userID, lastWeekStart, thisWeekStart); err == nil {
		summary.LastWeekTarget = target
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return summary, nil
}
