package service

import (
	"context"
	"log"

	"pacekeeper/run-tracker/internal/repository"
)

// RolloverSummary reports what the all-users weekly rollover did.
// SkippedUsers covers both "already had a target this week" and "no activity
// data to project from".
type RolloverSummary struct {
	ProcessedUsers int `json:"processedUsers"`
	CreatedTargets int `json:"createdTargets"`
	SkippedUsers   int `json:"skippedUsers"`
	FailedUsers    int `json:"failedUsers"`
}

// --- Service Interface ---
type RolloverService interface {
	// RunForAllUsers generates this week's target for every user that needs
	// one. One user's failure never aborts the batch; it is logged and
	// counted.
	RunForAllUsers(ctx context.Context) (RolloverSummary, error)
}

// --- Service Implementation ---

type rolloverService struct {
	userRepo      repository.UserRepository
	targetService TargetService
}

// NewRolloverService creates a new instance of rolloverService.
func NewRolloverService(userRepo repository.UserRepository, targetService TargetService) RolloverService {
	return &rolloverService{
		userRepo:      userRepo,
		targetService: targetService,
	}
}

// RunForAllUsers iterates every known user and runs the per-user rollover.
func (s *rolloverService) RunForAllUsers(ctx context.Context) (RolloverSummary, error) {
	userIDs, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return RolloverSummary{}, err
	}

	summary := RolloverSummary{ProcessedUsers: len(userIDs)}
	for _, userID := range userIDs {
		result, err := s.targetService.EnsureThisWeekTarget(ctx, userID)
		if err != nil {
			summary.FailedUsers++
			log.Printf("ERROR: weekly target generation failed for user %s: %v", userID.Hex(), err)
			continue
		}
		if result.Created {
			summary.CreatedTargets++
		}
	}
	summary.SkippedUsers = summary.ProcessedUsers - summary.CreatedTargets - summary.FailedUsers
	return summary, nil
}
