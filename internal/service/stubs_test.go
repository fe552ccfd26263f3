package service

import (
	"context"
	"sort"
	"time"

	"pacekeeper/run-tracker/internal/domain"
	"pacekeeper/run-tracker/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository stubs. They mimic the store's read/write semantics
// closely enough for service-level tests, including the unique-index
// rejection of a second auto target per week.

type stubTargetRepo struct {
	targets []*domain.WeeklyTarget

	// raceWinner, when set, makes the next Create fail with ErrDuplicate
	// after inserting raceWinner, as if a concurrent caller won the insert.
	raceWinner *domain.WeeklyTarget
}

func (r *stubTargetRepo) Create(ctx context.Context, target *domain.WeeklyTarget) (primitive.ObjectID, error) {
	if r.raceWinner != nil {
		winner := r.raceWinner
		r.raceWinner = nil
		winner.ID = primitive.NewObjectID()
		if winner.CreatedAt.IsZero() {
			winner.CreatedAt = time.Now().UTC()
		}
		r.targets = append(r.targets, winner)
		return primitive.NilObjectID, repository.ErrDuplicate
	}

	if target.Source == domain.TargetSourceAuto {
		for _, existing := range r.targets {
			if existing.UserID == target.UserID && existing.Source == domain.TargetSourceAuto &&
				existing.WeekStart.Equal(target.WeekStart) {
				return primitive.NilObjectID, repository.ErrDuplicate
			}
		}
	}

	stored := *target
	stored.ID = primitive.NewObjectID()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.targets = append(r.targets, &stored)
	return stored.ID, nil
}

func (r *stubTargetRepo) GetLatestSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (*domain.WeeklyTarget, error) {
	return r.latest(userID, func(t *domain.WeeklyTarget) bool {
		return !t.CreatedAt.Before(since)
	})
}

func (r *stubTargetRepo) GetLatestInWindow(ctx context.Context, userID primitive.ObjectID, start, end time.Time) (*domain.WeeklyTarget, error) {
	return r.latest(userID, func(t *domain.WeeklyTarget) bool {
		return !t.CreatedAt.Before(start) && t.CreatedAt.Before(end)
	})
}

func (r *stubTargetRepo) latest(userID primitive.ObjectID, match func(*domain.WeeklyTarget) bool) (*domain.WeeklyTarget, error) {
	var best *domain.WeeklyTarget
	for _, t := range r.targets {
		if t.UserID != userID || !match(t) {
			continue
		}
		if best == nil || t.CreatedAt.After(best.CreatedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	copied := *best
	return &copied, nil
}

type stubActivityRepo struct {
	activities []domain.Activity
}

func (r *stubActivityRepo) Upsert(ctx context.Context, activity *domain.Activity) (bool, error) {
	for i, existing := range r.activities {
		if existing.UserID == activity.UserID && existing.StravaActivityID == activity.StravaActivityID {
			r.activities[i] = *activity
			return false, nil
		}
	}
	r.activities = append(r.activities, *activity)
	return true, nil
}

func (r *stubActivityRepo) GetInWindow(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]domain.Activity, error) {
	var out []domain.Activity
	for _, a := range r.activities {
		if a.UserID == userID && !a.StartDate.Before(start) && a.StartDate.Before(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubActivityRepo) GetByStravaID(ctx context.Context, userID primitive.ObjectID, stravaActivityID int64) (*domain.Activity, error) {
	for _, a := range r.activities {
		if a.UserID == userID && a.StravaActivityID == stravaActivityID {
			copied := a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubActivityRepo) Delete(ctx context.Context, userID primitive.ObjectID, stravaActivityID int64) error {
	for i, a := range r.activities {
		if a.UserID == userID && a.StravaActivityID == stravaActivityID {
			r.activities = append(r.activities[:i], r.activities[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubActivityRepo) GetMostRecent(ctx context.Context, userID primitive.ObjectID) (*domain.Activity, error) {
	var candidates []domain.Activity
	for _, a := range r.activities {
		if a.UserID == userID {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil, repository.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StartDate.After(candidates[j].StartDate)
	})
	return &candidates[0], nil
}

type stubStrategyRepo struct {
	strategies []*domain.ProgressionStrategy
}

func (r *stubStrategyRepo) Create(ctx context.Context, strategy *domain.ProgressionStrategy) (primitive.ObjectID, error) {
	stored := *strategy
	stored.ID = primitive.NewObjectID()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.strategies = append(r.strategies, &stored)
	return stored.ID, nil
}

func (r *stubStrategyRepo) GetActive(ctx context.Context, userID primitive.ObjectID) (*domain.ProgressionStrategy, error) {
	var best *domain.ProgressionStrategy
	for _, s := range r.strategies {
		if s.UserID != userID || !s.Active {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	copied := *best
	return &copied, nil
}

func (r *stubStrategyRepo) CountActive(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	var count int64
	for _, s := range r.strategies {
		if s.UserID == userID && s.Active {
			count++
		}
	}
	return count, nil
}

func (r *stubStrategyRepo) DeactivateAll(ctx context.Context, userID primitive.ObjectID) error {
	for _, s := range r.strategies {
		if s.UserID == userID {
			s.Active = false
		}
	}
	return nil
}
