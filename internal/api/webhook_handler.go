package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"pacekeeper/run-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives Strava push events. These endpoints are public:
// Strava authenticates the subscription with the verify token, not a JWT.
type WebhookHandler struct {
	stravaService service.StravaService
	verifyToken   string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(stravaService service.StravaService, verifyToken string) *WebhookHandler {
	return &WebhookHandler{stravaService: stravaService, verifyToken: verifyToken}
}

// StravaEvent is the push payload Strava sends on activity and athlete
// changes.
type StravaEvent struct {
	ObjectType string `json:"object_type"`
	ObjectID   int64  `json:"object_id"`
	AspectType string `json:"aspect_type"`
	OwnerID    int64  `json:"owner_id"`
	EventTime  int64  `json:"event_time"`
}

// VerifySubscription answers Strava's subscription handshake by echoing the
// challenge when the verify token matches.
func (h *WebhookHandler) VerifySubscription(c *gin.Context) {
	if c.Query("hub.verify_token") != h.verifyToken {
		abortWithError(c, http.StatusForbidden, "Verify token mismatch")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hub.challenge": c.Query("hub.challenge")})
}

// ReceiveEvent ingests one push event. Strava requires a 200 within two
// seconds, so the fetch-and-upsert runs in the background and failures are
// only logged.
func (h *WebhookHandler) ReceiveEvent(c *gin.Context) {
	var event StravaEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		abortWithError(c, http.StatusBadRequest, "Malformed event payload")
		return
	}

	if event.ObjectType == "activity" {
		switch event.AspectType {
		case "create", "update":
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := h.stravaService.ImportActivityByAthlete(ctx, event.OwnerID, event.ObjectID); err != nil {
					log.Printf("ERROR: webhook import of activity %d for athlete %d failed: %v", event.ObjectID, event.OwnerID, err)
				}
			}()
		case "delete":
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := h.stravaService.DeleteActivityByAthlete(ctx, event.OwnerID, event.ObjectID); err != nil {
					log.Printf("ERROR: webhook delete of activity %d for athlete %d failed: %v", event.ObjectID, event.OwnerID, err)
				}
			}()
		}
	}

	c.Status(http.StatusOK)
}
