package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/fpl-squad/pkg/analytics"
)

// RegisterRoutes mounts the service endpoints on router
func RegisterRoutes(router *gin.Engine, optimization *OptimizationHandler, health *HealthHandler, metrics *analytics.Metrics) {
	if metrics != nil {
		router.Use(RequestMetrics(metrics))
	}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/optimize", optimization.OptimizeSquad)
		apiV1.POST("/optimize/batch", optimization.OptimizeBatch)
		apiV1.POST("/optimize/validate", optimization.ValidateOptimizationRequest)
		apiV1.DELETE("/optimize/cache", optimization.FlushCache)
	}

	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)
	router.GET("/metrics", health.GetMetrics)
}
