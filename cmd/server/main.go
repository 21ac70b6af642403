package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/coursex/coursex-backend/internal/db"
	"github.com/coursex/coursex-backend/internal/handlers"
	"github.com/coursex/coursex-backend/internal/platform/logger"
	"github.com/coursex/coursex-backend/internal/repos"
	"github.com/coursex/coursex-backend/internal/server"
)

func main() {
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

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}

	runRepo := repos.NewEtlRunRepo(postgresService.DB(), log)
	runHandler := handlers.NewEtlRunHandler(runRepo, log)

	var origins []string
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if v := strings.TrimSpace(o); v != "" {
				origins = append(origins, v)
			}
		}
	}

	router := server.NewRouter(server.RouterConfig{
		EtlRunHandler: runHandler,
		AllowOrigins:  origins,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("Audit server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
