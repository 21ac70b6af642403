package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/coursex/coursex-backend/internal/clients/classapi"
	"github.com/coursex/coursex-backend/internal/clients/redislock"
	"github.com/coursex/coursex-backend/internal/clients/rmp"
	"github.com/coursex/coursex-backend/internal/db"
	"github.com/coursex/coursex-backend/internal/etl"
	"github.com/coursex/coursex-backend/internal/etl/extract"
	"github.com/coursex/coursex-backend/internal/observability"
	"github.com/coursex/coursex-backend/internal/platform/logger"
)

const lockTTL = 2 * time.Hour

func main() {
	var (
		semesterID       int
		concurrency      int
		updateProfessors bool
		dryRun           bool
		activate         bool
	)
	flag.IntVar(&semesterID, "semester", 0, "semester term code, e.g. 20261")
	flag.IntVar(&concurrency, "concurrency", extract.DefaultConcurrency, "max parallel fetch units")
	flag.BoolVar(&updateProfessors, "update-professors", true, "refresh professor ratings this run")
	flag.BoolVar(&dryRun, "dry-run", false, "stop after validation; leave production untouched")
	flag.BoolVar(&activate, "activate", false, "mark the semester active after promotion")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if semesterID <= 0 {
		log.Error("Missing required -semester flag")
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{ServiceName: "coursex-etl"})
	defer shutdownOtel(ctx)

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}

	lock, err := redislock.New(log)
	if err != nil {
		log.Fatal("Redis init failed", "error", err)
	}
	defer lock.Close()

	lockKey := fmt.Sprintf("coursex:etl:%d", semesterID)
	owner := uuid.NewString()
	acquired, err := lock.Acquire(ctx, lockKey, owner, lockTTL)
	if err != nil {
		log.Fatal("Run lock check failed", "error", err)
	}
	if !acquired {
		log.Warn("Another run holds the lock; exiting", "key", lockKey)
		os.Exit(0)
	}
	defer lock.Release(ctx, lockKey, owner)

	extractor := extract.New(classapi.NewClient(log), rmp.NewClient(log), log, concurrency)
	pipeline := etl.NewPipeline(postgresService.DB(), extractor, log)

	result, err := pipeline.Run(ctx, etl.Options{
		SemesterID:       semesterID,
		Concurrency:      concurrency,
		UpdateProfessors: updateProfessors,
		DryRun:           dryRun,
		Activate:         activate,
	})
	if err != nil {
		log.Error("ETL run failed",
			"semester_id", semesterID,
			"run_id", result.RunID,
			"violations", result.Violations,
			"error", err)
		os.Exit(1)
	}
	log.Info("ETL run succeeded",
		"semester_id", semesterID,
		"run_id", result.RunID,
		"dry_run", dryRun,
		"courses", result.Counts["courses"],
		"sections", result.Counts["sections"])
}
