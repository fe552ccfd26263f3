package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pacekeeper/run-tracker/internal/domain"
	"pacekeeper/run-tracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubUserRepo struct {
	users []*domain.User
}

func (r *stubUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	stored := *user
	stored.ID = primitive.NewObjectID()
	r.users = append(r.users, &stored)
	return stored.ID, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(r.users))
	for _, u := range r.users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// scriptedTargetService returns a canned rollover outcome per user.
type scriptedTargetService struct {
	results map[primitive.ObjectID]*TargetRollover
	errs    map[primitive.ObjectID]error
	calls   int
}

func (s *scriptedTargetService) EnsureThisWeekTarget(ctx context.Context, userID primitive.ObjectID) (*TargetRollover, error) {
	s.calls++
	if err, ok := s.errs[userID]; ok {
		return nil, err
	}
	if result, ok := s.results[userID]; ok {
		return result, nil
	}
	return &TargetRollover{}, nil
}

func (s *scriptedTargetService) GetThisWeekTarget(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyTarget, error) {
	return nil, nil
}

func (s *scriptedTargetService) GetLastWeekTarget(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyTarget, error) {
	return nil, nil
}

func (s *scriptedTargetService) CreateManualTarget(ctx context.Context, userID primitive.ObjectID, activeSeconds float64) (*domain.WeeklyTarget, error) {
	return nil, errors.New("not implemented")
}

func (s *scriptedTargetService) GetWeeklySummary(ctx context.Context, userID primitive.ObjectID) (*WeeklySummary, error) {
	return nil, errors.New("not implemented")
}

func TestRunForAllUsers(t *testing.T) {
	created := primitive.NewObjectID()
	skippedExisting := primitive.NewObjectID()
	skippedNoData := primitive.NewObjectID()
	failed := primitive.NewObjectID()

	targets := &scriptedTargetService{
		results: map[primitive.ObjectID]*TargetRollover{
			created:         {Target: &domain.WeeklyTarget{ActiveSeconds: 9900, CreatedAt: time.Now()}, Created: true},
			skippedExisting: {Target: &domain.WeeklyTarget{ActiveSeconds: 9000}, Created: false},
			skippedNoData:   {Target: nil, Created: false},
		},
		errs: map[primitive.ObjectID]error{
			failed: errors.New("strava is down"),
		},
	}
	userRepo := &stubUserRepo{users: []*domain.User{
		{ID: created}, {ID: skippedExisting}, {ID: skippedNoData}, {ID: failed},
	}}

	svc := NewRolloverService(userRepo, targets)
	summary, err := svc.RunForAllUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.ProcessedUsers)
	assert.Equal(t, 1, summary.CreatedTargets)
	assert.Equal(t, 2, summary.SkippedUsers)
	assert.Equal(t, 1, summary.FailedUsers)
	assert.Equal(t, 4, targets.calls)
}

func TestRunForAllUsersEmpty(t *testing.T) {
	svc := NewRolloverService(&stubUserRepo{}, &scriptedTargetService{})
	summary, err := svc.RunForAllUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RolloverSummary{}, summary)
}
