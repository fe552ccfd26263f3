package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity is a normalized Strava activity. Immutable once imported, except
// that a webhook update event re-upserts the same StravaActivityID.
type Activity struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	StravaActivityID int64              `bson:"stravaActivityId" json:"stravaActivityId"` // Global Strava id, unique per user
	AthleteID        int64              `bson:"athleteId" json:"athleteId"`
	Name             string             `bson:"name" json:"name"`
	SportType        string             `bson:"sportType" json:"sportType"`
	DistanceMeters   float64            `bson:"distanceMeters" json:"distanceMeters"`
	MovingTimeSec    int64              `bson:"movingTimeSec" json:"movingTimeSec"` // Non-negative
	ElapsedTimeSec   int64              `bson:"elapsedTimeSec,omitempty" json:"elapsedTimeSec,omitempty"`
	StartDate        time.Time          `bson:"startDate" json:"startDate"` // UTC instant
	StartDateLocal   time.Time          `bson:"startDateLocal" json:"startDateLocal"`
	Timezone         string             `bson:"timezone" json:"timezone"` // IANA identifier parsed from Strava's "(GMT-08:00) Area/City" form
	ArchiveObjectKey string             `bson:"archiveObjectKey,omitempty" json:"-"` // S3 key of the raw payload, if archived
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}
