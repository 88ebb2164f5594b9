package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
	"github.com/stitts-dev/fpl-squad/internal/solver"
	"github.com/stitts-dev/fpl-squad/pkg/analytics"
	"github.com/stitts-dev/fpl-squad/pkg/cache"
	"github.com/stitts-dev/fpl-squad/shared/types"
)

const serviceName = "squad-optimizer"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	solver  solver.Solver
	catalog *catalog.Catalog
	cache   *cache.SquadCache
	metrics *analytics.Metrics
	logger  *logrus.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	s solver.Solver,
	pool *catalog.Catalog,
	squadCache *cache.SquadCache,
	metrics *analytics.Metrics,
	logger *logrus.Logger,
) *HealthHandler {
	return &HealthHandler{
		solver:  s,
		catalog: pool,
		cache:   squadCache,
		metrics: metrics,
		logger:  logger,
	}
}

// GetHealth returns the basic health status. The cache is optional, so a
// failing Redis only degrades the service.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := types.HealthStatus{
		Status:    "ok",
		Service:   serviceName,
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			response.Status = "degraded"
			response.Checks["redis"] = "failed: " + err.Error()
		} else {
			response.Checks["redis"] = "ok"
		}
	} else {
		response.Checks["redis"] = "not_configured"
	}

	if h.catalog != nil {
		response.Checks["player_pool"] = "loaded"
	} else {
		response.Checks["player_pool"] = "not_configured"
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}

	c.JSON(statusCode, response)
}

// GetReady reports ready once a solver is wired
func (h *HealthHandler) GetReady(c *gin.Context) {
	response := types.HealthStatus{
		Status:    "ready",
		Service:   serviceName,
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if h.solver == nil {
		response.Status = "not_ready"
		response.Checks["solver"] = "not_configured"
	} else {
		response.Checks["solver"] = "ok"
	}

	statusCode := http.StatusOK
	if response.Status != "ready" {
		h.logger.Warn("Readiness check failed")
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// GetMetrics serves the Prometheus metrics
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error: "Metrics are disabled",
			Code:  "METRICS_DISABLED",
		})
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// RequestMetrics records every request served by the router
func RequestMetrics(metrics *analytics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.ObserveRequest(endpoint, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
