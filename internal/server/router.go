package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/coursex/coursex-backend/internal/handlers"
)

type RouterConfig struct {
	EtlRunHandler *handlers.EtlRunHandler
	AllowOrigins  []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/etl/runs", cfg.EtlRunHandler.ListRuns)
		api.GET("/etl/runs/:id", cfg.EtlRunHandler.GetRun)
	}

	return router
}
