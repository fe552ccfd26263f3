package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressionStrategy is a user's configured long-term training plan.
// At most one strategy is active per user at a time. Strategies are immutable
// after creation; "clearing" one flips Active to false, it is never deleted.
type ProgressionStrategy struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Name   string             `bson:"name" json:"name"`
	// AnchorDate marks week index 0, the first week the strategy governs.
	// Always aligned to a week-start boundary.
	AnchorDate time.Time `bson:"anchorDate" json:"anchorDate"`
	// WeekProgressionMultiplier is the weekly compounding growth factor.
	// Values below 1 (or absent) disable auto-growth.
	WeekProgressionMultiplier *float64 `bson:"weekProgressionMultiplier,omitempty" json:"weekProgressionMultiplier,omitempty"`
	CapTargetSeconds          *float64 `bson:"capTargetSeconds,omitempty" json:"capTargetSeconds,omitempty"`
	// DeloadEveryNWeeks and DeloadMultiplier must BOTH be set for deload
	// weeks to apply.
	DeloadEveryNWeeks *int     `bson:"deloadEveryNWeeks,omitempty" json:"deloadEveryNWeeks,omitempty"`
	DeloadMultiplier  *float64 `bson:"deloadMultiplier,omitempty" json:"deloadMultiplier,omitempty"`
	Active            bool     `bson:"active" json:"active"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}
