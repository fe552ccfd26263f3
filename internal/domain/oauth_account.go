package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OAuthAccount links a user to an external provider identity (Strava) and
// carries the tokens needed to pull activities on their behalf.
type OAuthAccount struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	Provider          string             `bson:"provider" json:"provider"` // e.g. "strava"
	ProviderAccountID string             `bson:"providerAccountId" json:"providerAccountId"`
	AthleteID         int64              `bson:"athleteId,omitempty" json:"athleteId,omitempty"` // Strava athlete id, used to route webhook events
	AccessToken       string             `bson:"accessToken" json:"-"`
	RefreshToken      string             `bson:"refreshToken" json:"-"`
	ExpiresAt         time.Time          `bson:"expiresAt" json:"expiresAt"`
	Scope             string             `bson:"scope,omitempty" json:"scope,omitempty"`
	Active            bool               `bson:"active" json:"active"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
