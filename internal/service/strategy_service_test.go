package service

import (
	"context"
	"testing"
	"time"

	"pacekeeper/run-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestStrategyService(strategyRepo *stubStrategyRepo, activityRepo *stubActivityRepo) *strategyService {
	svc := newStrategyService(strategyRepo, activityRepo, "UTC")
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestCreateStrategyValidation(t *testing.T) {
	svc := newTestStrategyService(&stubStrategyRepo{}, &stubActivityRepo{})
	userID := primitive.NewObjectID()

	tests := []struct {
		name    string
		params  StrategyParams
		wantErr error
	}{
		{"missing name", StrategyParams{}, ErrStrategyNameRequired},
		{"multiplier below one", StrategyParams{Name: "x", WeekProgressionMultiplier: f64(0.9)}, ErrInvalidMultiplier},
		{"zero deload interval", StrategyParams{Name: "x", DeloadEveryNWeeks: iptr(0)}, ErrInvalidDeloadInterval},
		{"negative deload multiplier", StrategyParams{Name: "x", DeloadMultiplier: f64(-0.5)}, ErrInvalidDeloadMultiplier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateStrategy(context.Background(), userID, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateStrategyAnchorsNextWeek(t *testing.T) {
	strategyRepo := &stubStrategyRepo{}
	svc := newTestStrategyService(strategyRepo, &stubActivityRepo{})
	userID := primitive.NewObjectID()

	strategy, err := svc.CreateStrategy(context.Background(), userID, StrategyParams{
		Name:                      "base building",
		WeekProgressionMultiplier: f64(1.1),
	})
	require.NoError(t, err)

	// testNow is Wednesday 2025-01-15; the plan starts the following Sunday.
	assert.True(t, strategy.AnchorDate.Equal(time.Date(2025, 1, 19, 0, 0, 0, 0, time.UTC)))
	assert.True(t, strategy.Active)
}

func TestCreateStrategyDeactivatesPrevious(t *testing.T) {
	userID := primitive.NewObjectID()
	strategyRepo := &stubStrategyRepo{strategies: []*domain.ProgressionStrategy{{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Name:      "old plan",
		Active:    true,
		CreatedAt: time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
	}}}
	svc := newTestStrategyService(strategyRepo, &stubActivityRepo{})

	created, err := svc.CreateStrategy(context.Background(), userID, StrategyParams{Name: "new plan"})
	require.NoError(t, err)

	active, err := svc.GetActiveStrategy(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, created.ID, active.ID)

	count, err := strategyRepo.CountActive(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGetActiveStrategyNone(t *testing.T) {
	svc := newTestStrategyService(&stubStrategyRepo{}, &stubActivityRepo{})

	strategy, err := svc.GetActiveStrategy(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Nil(t, strategy)
}

func TestClearStrategy(t *testing.T) {
	userID := primitive.NewObjectID()
	strategyRepo := &stubStrategyRepo{strategies: []*domain.ProgressionStrategy{{
		ID:     primitive.NewObjectID(),
		UserID: userID,
		Name:   "plan",
		Active: true,
	}}}
	svc := newTestStrategyService(strategyRepo, &stubActivityRepo{})

	require.NoError(t, svc.ClearStrategy(context.Background(), userID))

	strategy, err := svc.GetActiveStrategy(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, strategy)
	// Cleared, not deleted.
	assert.Len(t, strategyRepo.strategies, 1)
}

func TestProjectPlan(t *testing.T) {
	userID := primitive.NewObjectID()
	activityRepo := &stubActivityRepo{activities: []domain.Activity{lastWeekActivity(userID, 9000)}}
	svc := newTestStrategyService(&stubStrategyRepo{}, activityRepo)

	projection, err := svc.ProjectPlan(context.Background(), userID, StrategyParams{
		Name:                      "marathon block",
		WeekProgressionMultiplier: f64(1.1),
		CapTargetSeconds:          f64(18000),
		DeloadEveryNWeeks:         iptr(4),
		DeloadMultiplier:          f64(0.6),
	})
	require.NoError(t, err)

	assert.InDelta(t, 9000, projection.BaselineSeconds, 0.01)
	require.NotNil(t, projection.WeeksToCap)
	assert.Equal(t, 8, *projection.WeeksToCap)
	require.Len(t, projection.Series, 13)
	assert.InDelta(t, 9000, projection.Series[0], 0.01)
	assert.InDelta(t, 9900, projection.Series[1], 0.01)
	// Deload weeks dip but the curve resumes from the exponential baseline.
	assert.InDelta(t, 7906.14, projection.Series[4], 0.01)
	assert.InDelta(t, 14494.59, projection.Series[5], 0.01)
	// Week 8 is both at the cap and a deload week: it dips from the cap.
	assert.InDelta(t, 10800, projection.Series[8], 0.01)
	assert.InDelta(t, 18000, projection.Series[9], 0.01)
}

func TestProjectPlanInfeasible(t *testing.T) {
	userID := primitive.NewObjectID()
	svc := newTestStrategyService(&stubStrategyRepo{}, &stubActivityRepo{})

	// No activity last week: nothing to project from.
	projection, err := svc.ProjectPlan(context.Background(), userID, StrategyParams{
		Name:                      "plan",
		WeekProgressionMultiplier: f64(1.1),
		CapTargetSeconds:          f64(18000),
	})
	require.NoError(t, err)
	assert.Zero(t, projection.BaselineSeconds)
	assert.Nil(t, projection.WeeksToCap)
	assert.Len(t, projection.Series, 5)
	for _, v := range projection.Series {
		assert.Zero(t, v)
	}
}
