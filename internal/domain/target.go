package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TargetSource distinguishes who produced a weekly target.
type TargetSource string

const (
	TargetSourceManual TargetSource = "manual" // Entered by the user
	TargetSourceAuto   TargetSource = "auto"   // Produced by the weekly rollover
)

// WeeklyTarget is the training-volume goal for one calendar week for one user.
// Targets are immutable after creation; a user edit is a fresh manual insert,
// and the query for "this week's target" picks the most recently created row.
type WeeklyTarget struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	ActiveSeconds float64            `bson:"activeSeconds" json:"activeSeconds"`
	Source        TargetSource       `bson:"source" json:"source"`
	// WeekStart is the Sunday-midnight boundary (user-local) of the week this
	// target belongs to. Backs the one-auto-target-per-week unique index.
	WeekStart time.Time `bson:"weekStart" json:"weekStart"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
