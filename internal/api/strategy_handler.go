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

// StrategyHandler exposes progression-strategy management and the what-if
// projection used by the strategy-editing page.
type StrategyHandler struct {
	strategyService service.StrategyService
}

// NewStrategyHandler creates a new StrategyHandler.
func NewStrategyHandler(strategyService service.StrategyService) *StrategyHandler {
	return &StrategyHandler{strategyService: strategyService}
}

// --- Request/Response Structs ---

type StrategyRequest struct {
	// Name is required on create; the projection endpoint accepts a draft
	// without one.
	Name string `json:"name"`
	// Weekly compounding growth factor, e.g. 1.1 for 10% per week.
	WeekProgressionMultiplier *float64 `json:"weekProgressionMultiplier,omitempty"`
	// Ceiling in minutes, converted to seconds on write.
	CapTargetMinutes  *float64 `json:"capTargetMinutes,omitempty"`
	DeloadEveryNWeeks *int     `json:"deloadEveryNWeeks,omitempty"`
	DeloadMultiplier  *float64 `json:"deloadMultiplier,omitempty"`
}

type StrategyResponse struct {
	ID                        string    `json:"id"`
	Name                      string    `json:"name"`
	AnchorDate                time.Time `json:"anchorDate"`
	WeekProgressionMultiplier *float64  `json:"weekProgressionMultiplier,omitempty"`
	CapTargetSeconds          *float64  `json:"capTargetSeconds,omitempty"`
	DeloadEveryNWeeks         *int      `json:"deloadEveryNWeeks,omitempty"`
	DeloadMultiplier          *float64  `json:"deloadMultiplier,omitempty"`
	Active                    bool      `json:"active"`
	CreatedAt                 time.Time `json:"createdAt"`
}

// --- Handler Methods ---

// CreateStrategy activates a new progression strategy for the user.
func (h *StrategyHandler) CreateStrategy(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req StrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	strategy, err := h.strategyService.CreateStrategy(c.Request.Context(), userID, strategyParamsFromRequest(req))
	if err != nil {
		if isStrategyValidationError(err) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to create strategy")
		}
		return
	}

	c.JSON(http.StatusCreated, mapStrategyToResponse(strategy))
}

// GetActiveStrategy returns the user's active strategy, or null.
func (h *StrategyHandler) GetActiveStrategy(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	strategy, err := h.strategyService.GetActiveStrategy(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to fetch strategy")
		return
	}
	if strategy == nil {
		c.JSON(http.StatusOK, gin.H{"strategy": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy": mapStrategyToResponse(strategy)})
}

// ClearStrategy deactivates the user's strategies.
func (h *StrategyHandler) ClearStrategy(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	if err := h.strategyService.ClearStrategy(c.Request.Context(), userID); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to clear strategy")
		return
	}
	c.Status(http.StatusNoContent)
}

// ProjectStrategy evaluates draft parameters without saving them, for the
// live chart on the strategy-editing page.
func (h *StrategyHandler) ProjectStrategy(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req StrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	projection, err := h.strategyService.ProjectPlan(c.Request.Context(), userID, strategyParamsFromRequest(req))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to compute projection")
		return
	}
	c.JSON(http.StatusOK, projection)
}

func strategyParamsFromRequest(req StrategyRequest) service.StrategyParams {
	params := service.StrategyParams{
		Name:                      req.Name,
		WeekProgressionMultiplier: req.WeekProgressionMultiplier,
		DeloadEveryNWeeks:         req.DeloadEveryNWeeks,
		DeloadMultiplier:          req.DeloadMultiplier,
	}
	if req.CapTargetMinutes != nil {
		capSeconds := *req.CapTargetMinutes * 60
		params.CapTargetSeconds = &capSeconds
	}
	return params
}

func isStrategyValidationError(err error) bool {
	return errors.Is(err, service.ErrStrategyNameRequired) ||
		errors.Is(err, service.ErrInvalidMultiplier) ||
		errors.Is(err, service.ErrInvalidDeloadInterval) ||
		errors.Is(err, service.ErrInvalidDeloadMultiplier)
}

func mapStrategyToResponse(strategy *domain.ProgressionStrategy) StrategyResponse {
	return StrategyResponse{
		ID:                        strategy.ID.Hex(),
		Name:                      strategy.Name,
		AnchorDate:                strategy.AnchorDate,
		WeekProgressionMultiplier: strategy.WeekProgressionMultiplier,
		CapTargetSeconds:          strategy.CapTargetSeconds,
		DeloadEveryNWeeks:         strategy.DeloadEveryNWeeks,
		DeloadMultiplier:          strategy.DeloadMultiplier,
		Active:                    strategy.Active,
		CreatedAt:                 strategy.CreatedAt,
	}
}
