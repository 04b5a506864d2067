package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notepipe/internal/handler"
	"notepipe/internal/middleware"
)

// Setup configures the Gin engine for the watch mode status server.
func Setup(
	healthH *handler.HealthHandler,
	runH *handler.RunHandler,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	runs := r.Group("/runs")
	runs.GET("/latest", runH.Latest)

	return r
}
