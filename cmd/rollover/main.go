package main

import (
	"context"
	"log"
	"time"

	"pacekeeper/run-tracker/internal/config"
	"pacekeeper/run-tracker/internal/repository/mongo"
	"pacekeeper/run-tracker/internal/service"
)

// Weekly batch entry point, run from cron shortly after the week boundary.
// The per-user rollover is idempotent, so re-running after a partial failure
// is safe.
func main() {
	log.Println("Starting weekly target rollover...")

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	userRepo := mongo.NewMongoUserRepository(appDB)
	activityRepo := mongo.NewMongoActivityRepository(appDB)
	targetRepo := mongo.NewMongoTargetRepository(appDB)
	strategyRepo := mongo.NewMongoStrategyRepository(appDB)

	targetService := service.NewTargetService(targetRepo, activityRepo, strategyRepo, cfg.Rollover.DefaultTimezone)
	rolloverService := service.NewRolloverService(userRepo, targetService)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	summary, err := rolloverService.RunForAllUsers(ctx)
	if err != nil {
		log.Fatalf("FATAL: Rollover batch failed: %v", err)
	}
	log.Printf("INFO: rollover finished: processed=%d created=%d skipped=%d failed=%d",
		summary.ProcessedUsers, summary.CreatedTargets, summary.SkippedUsers, summary.FailedUsers)
}
