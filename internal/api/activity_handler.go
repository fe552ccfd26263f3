package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pacekeeper/run-tracker/internal/repository"
	"pacekeeper/run-tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActivityHandler exposes the Strava link and import flows.
type ActivityHandler struct {
	stravaService service.StravaService
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(stravaService service.StravaService) *ActivityHandler {
	return &ActivityHandler{stravaService: stravaService}
}

// --- Handler Methods ---

// BeginStravaLink returns the Strava consent URL. The opaque state value is
// echoed back by Strava on the callback; the frontend keeps it for the
// round trip.
func (h *ActivityHandler) BeginStravaLink(c *gin.Context) {
	_, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	state := uuid.NewString()
	c.JSON(http.StatusOK, gin.H{
		"authorizationUrl": h.stravaService.AuthorizationURL(state),
		"state":            state,
	})
}

type StravaCallbackRequest struct {
	Code string `json:"code" binding:"required"`
}

// CompleteStravaLink exchanges the authorization code and stores the link.
func (h *ActivityHandler) CompleteStravaLink(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req StravaCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Authorization code is required")
		return
	}

	if err := h.stravaService.HandleCallback(c.Request.Context(), userID, req.Code); err != nil {
		if errors.Is(err, service.ErrStravaLinkRejected) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to complete Strava link")
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportActivities pulls the athlete's recent activities from Strava.
func (h *ActivityHandler) ImportActivities(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	inserted, err := h.stravaService.ImportRecentActivities(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrStravaNotLinked) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusBadGateway, "Failed to import activities from Strava")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"imported":   inserted,
		"importedAt": time.Now().UTC(),
	})
}

// GetRawPayload redirects the caller to a short-lived download URL for the
// archived provider payload of one activity.
func (h *ActivityHandler) GetRawPayload(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	stravaActivityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Activity ID must be numeric")
		return
	}

	downloadURL, err := h.stravaService.RawPayloadURL(c.Request.Context(), userID, stravaActivityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, service.ErrNoArchivedPayload) {
			abortWithError(c, http.StatusNotFound, "No archived payload for this activity")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to generate download URL")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": downloadURL})
}
