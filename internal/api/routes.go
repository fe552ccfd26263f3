package api

import (
	"net/http"

	"pacekeeper/run-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	webhookVerifyToken string,
	authService service.AuthService,
	targetService service.TargetService,
	strategyService service.StrategyService,
	stravaService service.StravaService,
) {

	authHandler := NewAuthHandler(authService)
	targetHandler := NewTargetHandler(targetService)
	strategyHandler := NewStrategyHandler(strategyService)
	activityHandler := NewActivityHandler(stravaService)
	webhookHandler := NewWebhookHandler(stravaService, webhookVerifyToken)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Strava's webhook subscription calls these without a JWT.
	router.GET("/webhooks/strava", webhookHandler.VerifySubscription)
	router.POST("/webhooks/strava", webhookHandler.ReceiveEvent)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex()})
		})

		// --- Weekly Target Routes ---
		targetGroup := protected.Group("/targets")
		{
			// GET /api/v1/targets/this-week lazily runs the rollover.
			targetGroup.GET("/this-week", targetHandler.GetThisWeekTarget)
			targetGroup.GET("/last-week", targetHandler.GetLastWeekTarget)
			targetGroup.POST("", targetHandler.CreateManualTarget)
		}

		protected.GET("/summary", targetHandler.GetWeeklySummary)

		// --- Progression Strategy Routes ---
		strategyGroup := protected.Group("/strategies")
		{
			strategyGroup.POST("", strategyHandler.CreateStrategy)
			strategyGroup.GET("/active", strategyHandler.GetActiveStrategy)
			strategyGroup.DELETE("/active", strategyHandler.ClearStrategy)
			// POST because the draft parameters travel in the body.
			strategyGroup.POST("/projection", strategyHandler.ProjectStrategy)
		}

		// --- Strava Link & Import Routes ---
		stravaGroup := protected.Group("/strava")
		{
			stravaGroup.GET("/connect", activityHandler.BeginStravaLink)
			stravaGroup.POST("/callback", activityHandler.CompleteStravaLink)
			stravaGroup.POST("/import", activityHandler.ImportActivities)
			stravaGroup.GET("/activities/:id/raw", activityHandler.GetRawPayload)
		}
	}
}
