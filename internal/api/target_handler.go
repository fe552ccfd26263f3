package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"pacekeeper/run-tracker/internal/domain"
	"pacekeeper/run-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// TargetHandler exposes the weekly-target operations the dashboard uses.
type TargetHandler struct {
	targetService service.TargetService
}

// NewTargetHandler creates a new TargetHandler.
func NewTargetHandler(targetService service.TargetService) *TargetHandler {
	return &TargetHandler{targetService: targetService}
}

// --- Request/Response Structs ---

type CreateTargetRequest struct {
	// Minutes, as entered in the dashboard form. Stored as seconds.
	ActiveMinutes float64 `json:"activeMinutes" binding:"required,gt=0"`
}

type TargetResponse struct {
	ID            string    `json:"id"`
	ActiveSeconds float64   `json:"activeSeconds"`
	ActiveMinutes float64   `json:"activeMinutes"`
	Source        string    `json:"source"`
	WeekStart     time.Time `json:"weekStart"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EnsureTargetResponse is the dashboard's this-week view. Target is null
// when there is nothing to project from; the page then shows the manual
// entry form instead of an error.
type EnsureTargetResponse struct {
	Target  *TargetResponse `json:"target"`
	Created bool            `json:"created"`
}

// --- Handler Methods ---

// GetThisWeekTarget lazily runs the weekly rollover for the authenticated
// user and returns the resulting (or pre-existing) target.
func (h *TargetHandler) GetThisWeekTarget(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	result, err := h.targetService.EnsureThisWeekTarget(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to compute this week's target")
		return
	}

	c.JSON(http.StatusOK, EnsureTargetResponse{
		Target:  mapTargetToResponse(result.Target),
		Created: result.Created,
	})
}

// GetLastWeekTarget returns last week's target, or null.
func (h *TargetHandler) GetLastWeekTarget(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	target, err := h.targetService.GetLastWeekTarget(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch last week's target")
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": mapTargetToResponse(target)})
}

// CreateManualTarget records a user-entered target for the current week.
func (h *TargetHandler) CreateManualTarget(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req CreateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	target, err := h.targetService.CreateManualTarget(c.Request.Context(), userID, req.ActiveMinutes*60)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTargetValue) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to create target")
		}
		return
	}

	c.JSON(http.StatusCreated, mapTargetToResponse(target))
}

// WeeklySummaryResponse mirrors service.WeeklySummary for the dashboard.
type WeeklySummaryResponse struct {
	Timezone              string          `json:"timezone"`
	WeekStart             time.Time       `json:"weekStart"`
	ThisWeekTarget        *TargetResponse `json:"thisWeekTarget"`
	LastWeekTarget        *TargetResponse `json:"lastWeekTarget"`
	ThisWeekActualSeconds float64         `json:"thisWeekActualSeconds"`
	LastWeekActualSeconds float64         `json:"lastWeekActualSeconds"`
}

// GetWeeklySummary returns actuals and targets for the current and previous
// week.
func (h *TargetHandler) GetWeeklySummary(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	summary, err := h.targetService.GetWeeklySummary(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to compute weekly summary")
		return
	}

	c.JSON(http.StatusOK, WeeklySummaryResponse{
		Timezone:              summary.Timezone,
		WeekStart:             summary.WeekStart,
		ThisWeekTarget:        mapTargetToResponse(summary.ThisWeekTarget),
		LastWeekTarget:        mapTargetToResponse(summary.LastWeekTarget),
		ThisWeekActualSeconds: summary.ThisWeekActualSeconds,
		LastWeekActualSeconds: summary.LastWeekActualSeconds,
	})
}

// mapTargetToResponse converts a domain WeeklyTarget to its DTO; nil in,
// nil out.
func mapTargetToResponse(target *domain.WeeklyTarget) *TargetResponse {
	if target == nil {
		return nil
	}
	return &TargetResponse{
		ID:            target.ID.Hex(),
		ActiveSeconds: target.ActiveSeconds,
		ActiveMinutes: target.ActiveSeconds / 60,
		Source:        string(target.Source),
		WeekStart:     target.WeekStart,
		CreatedAt:     target.CreatedAt,
	}
}
