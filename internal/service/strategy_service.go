package service

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"pacekeeper/run-tracker/internal/domain"
	"pacekeeper/run-tracker/internal/plan"
	"pacekeeper/run-tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrStrategyNameRequired   = errors.New("strategy name is required")
	ErrInvalidMultiplier      = errors.New("week progression multiplier must be at least 1")
	ErrInvalidDeloadInterval  = errors.New("deload interval must be a positive number of weeks")
	ErrInvalidDeloadMultiplier = errors.New("deload multiplier must be positive")
)

// StrategyParams are the user-configurable strategy knobs, shared by the
// create call and the what-if projection shown while editing.
type StrategyParams struct {
	Name                      string
	WeekProgressionMultiplier *float64
	CapTargetSeconds          *float64
	DeloadEveryNWeeks         *int
	DeloadMultiplier          *float64
}

// PlanProjection is the long-range view rendered by the strategy-editing
// chart. WeeksToCap is nil when no feasible plan exists (degenerate
// parameters or no baseline). Series holds projected weekly volume in
// seconds, week 0 first.
type PlanProjection struct {
	BaselineSeconds float64   `json:"baselineSeconds"`
	WeeksToCap      *int      `json:"weeksToCap"`
	Series          []float64 `json:"series"`
}

// --- Service Interface ---
type StrategyService interface {
	// CreateStrategy activates a new progression strategy for the user,
	// anchored at the next week-start boundary, deactivating any previous
	// one.
	CreateStrategy(ctx context.Context, userID primitive.ObjectID, params StrategyParams) (*domain.ProgressionStrategy, error)
	// GetActiveStrategy returns the user's active strategy, or nil.
	GetActiveStrategy(ctx context.Context, userID primitive.ObjectID) (*domain.ProgressionStrategy, error)
	// ClearStrategy deactivates the user's strategies. Strategies are never
	// deleted.
	ClearStrategy(ctx context.Context, userID primitive.ObjectID) error
	// ProjectPlan computes weeks-to-cap and a weekly volume series for the
	// given parameters, using last week's activity sum as the baseline.
	ProjectPlan(ctx context.Context, userID primitive.ObjectID, params StrategyParams) (*PlanProjection, error)
}

// --- Service Implementation ---

type strategyService struct {
	strategyRepo    repository.StrategyRepository
	activityRepo    repository.ActivityRepository
	defaultTimezone string
	now             func() time.Time
}

// NewStrategyService creates a new instance of strategyService.
func NewStrategyService(
	strategyRepo repository.StrategyRepository,
	activityRepo repository.ActivityRepository,
	defaultTimezone string,
) StrategyService {
	return newStrategyService(strategyRepo, activityRepo, defaultTimezone)
}

func newStrategyService(
	strategyRepo repository.StrategyRepository,
	activityRepo repository.ActivityRepository,
	defaultTimezone string,
) *strategyService {
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &strategyService{
		strategyRepo:    strategyRepo,
		activityRepo:    activityRepo,
		defaultTimezone: defaultTimezone,
		now:             time.Now,
	}
}

func validateStrategyParams(params StrategyParams) error {
	if params.Name == "" {
		return ErrStrategyNameRequired
	}
	if params.WeekProgressionMultiplier != nil && *params.WeekProgressionMultiplier < 1 {
		return ErrInvalidMultiplier
	}
	if params.DeloadEveryNWeeks != nil && *params.DeloadEveryNWeeks <= 0 {
		return ErrInvalidDeloadInterval
	}
	if params.DeloadMultiplier != nil && *params.DeloadMultiplier <= 0 {
		return ErrInvalidDeloadMultiplier
	}
	return nil
}

// CreateStrategy anchors the strategy at the start of NEXT week in the
// user's timezone: week index 0 begins at the first boundary after creation,
// so the current (partial) week is never governed by the new plan.
func (s *strategyService) CreateStrategy(ctx context.Context, userID primitive.ObjectID, params StrategyParams) (*domain.ProgressionStrategy, error) {
	if err := validateStrategyParams(params); err != nil {
		return nil, err
	}

	loc, err := s.effectiveTimezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	anchor := plan.WeekStart(s.now(), loc, 0).AddDate(0, 0, 7)

	// Enforce the single-active invariant before inserting; the partial
	// unique index on (userId, active=true) backs this up.
	if err := s.strategyRepo.DeactivateAll(ctx, userID); err != nil {
		return nil, err
	}

	strategy := &domain.ProgressionStrategy{
		UserID:                    userID,
		Name:                      params.Name,
		AnchorDate:                anchor.UTC(),
		WeekProgressionMultiplier: params.WeekProgressionMultiplier,
		CapTargetSeconds:          params.CapTargetSeconds,
		DeloadEveryNWeeks:         params.DeloadEveryNWeeks,
		DeloadMultiplier:          params.DeloadMultiplier,
		Active:                    true,
	}
	strategyID, err := s.strategyRepo.Create(ctx, strategy)
	if err != nil {
		return nil, err
	}
	strategy.ID = strategyID
	return strategy, nil
}

// GetActiveStrategy returns the user's active strategy or nil. More than one
// active strategy is an anomaly: logged, and the most recent one wins.
func (s *strategyService) GetActiveStrategy(ctx context.Context, userID primitive.ObjectID) (*domain.ProgressionStrategy, error) {
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

// ClearStrategy deactivates every strategy of the user.
func (s *strategyService) ClearStrategy(ctx context.Context, userID primitive.ObjectID) error {
	return s.strategyRepo.DeactivateAll(ctx, userID)
}

// ProjectPlan evaluates the given parameters against last week's actual
// volume. Degenerate parameters produce a nil WeeksToCap and a short flat
// series instead of an error so the editing UI can always render.
func (s *strategyService) ProjectPlan(ctx context.Context, userID primitive.ObjectID, params StrategyParams) (*PlanProjection, error) {
	loc, err := s.effectiveTimezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	activities, err := s.activityRepo.GetInWindow(ctx, userID, plan.WeekStart(now, loc, 1), plan.WeekStart(now, loc, 0))
	if err != nil {
		return nil, err
	}
	baseline := float64(plan.SumMovingTime(activities))

	draft := &domain.ProgressionStrategy{
		WeekProgressionMultiplier: params.WeekProgressionMultiplier,
		CapTargetSeconds:          params.CapTargetSeconds,
		DeloadEveryNWeeks:         params.DeloadEveryNWeeks,
		DeloadMultiplier:          params.DeloadMultiplier,
	}

	projection := &PlanProjection{BaselineSeconds: baseline}

	// Chart a handful of weeks past the goal; just a handful total when the
	// goal is unreachable.
	sampleWeeks := 5
	weeks := plan.WeeksToReachCap(draft, baseline)
	if !math.IsInf(weeks, 1) {
		weeksToCap := int(weeks)
		projection.WeeksToCap = &weeksToCap
		sampleWeeks = weeksToCap + 5
	}

	projection.Series = make([]float64, sampleWeeks)
	for week := 0; week < sampleWeeks; week++ {
		projection.Series[week] = plan.ProjectedVolumeAtWeek(draft, baseline, week)
	}
	return projection, nil
}

// effectiveTimezone mirrors the target service's derivation: most recent
// activity's timezone, else the configured default.
func (s *strategyService) effectiveTimezone(ctx context.Context, userID primitive.ObjectID) (*time.Location, error) {
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
	}
	return plan.LoadTimezone(s.defaultTimezone)
}
