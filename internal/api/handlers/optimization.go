package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
	"github.com/stitts-dev/fpl-squad/internal/optimizer"
	"github.com/stitts-dev/fpl-squad/internal/solver"
	"github.com/stitts-dev/fpl-squad/pkg/analytics"
	"github.com/stitts-dev/fpl-squad/pkg/cache"
	"github.com/stitts-dev/fpl-squad/shared/pkg/config"
	"github.com/stitts-dev/fpl-squad/shared/types"
)

// OptimizationHandler handles squad optimization endpoints
type OptimizationHandler struct {
	optimizer  *optimizer.Optimizer
	catalog    *catalog.Catalog
	cache      *cache.SquadCache
	metrics    *analytics.Metrics
	calculator *analytics.SquadCalculator
	config     *config.Config
	logger     *logrus.Logger
}

// NewOptimizationHandler creates a new optimization handler. pool, squadCache
// and metrics may be nil.
func NewOptimizationHandler(
	opt *optimizer.Optimizer,
	pool *catalog.Catalog,
	squadCache *cache.SquadCache,
	metrics *analytics.Metrics,
	config *config.Config,
	logger *logrus.Logger,
) *OptimizationHandler {
	return &OptimizationHandler{
		optimizer:  opt,
		catalog:    pool,
		cache:      squadCache,
		metrics:    metrics,
		calculator: analytics.NewSquadCalculator(),
		config:     config,
		logger:     logger,
	}
}

// OptimizeSquad handles single squad optimization requests
func (h *OptimizationHandler) OptimizeSquad(c *gin.Context) {
	var req types.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}

	cat, err := h.resolveCatalog(req.Players)
	if err != nil {
		badRequest(c, "Invalid player pool", err)
		return
	}
	optReq, err := h.buildRequest(cat, req.PeriodSelector, req.SquadConstraints)
	if err != nil {
		badRequest(c, "Invalid scoring period", err)
		return
	}

	ctx := c.Request.Context()
	cacheKey := h.cacheKey(cat, optReq)
	if cached := h.lookup(ctx, cacheKey); cached != nil {
		h.logger.WithField("cache_key", cacheKey).Info("Returning cached squad selection")
		c.JSON(http.StatusOK, types.OptimizeResponse{
			Selection: cached,
			Summary:   h.calculator.Summarize(cached, optReq.Budget),
			Cached:    true,
		})
		return
	}

	sel, err := h.optimizer.Optimize(ctx, cat, optReq)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if cacheKey != "" && sel.Status != solver.Undefined {
		if err := h.cache.Set(ctx, cacheKey, sel); err != nil {
			h.logger.WithError(err).Warn("Failed to cache squad selection")
		}
	}

	c.JSON(http.StatusOK, types.OptimizeResponse{
		Selection: sel,
		Summary:   h.calculator.Summarize(sel, optReq.Budget),
	})
}

// OptimizeBatch solves several constraint sets against one player pool
func (h *OptimizationHandler) OptimizeBatch(c *gin.Context) {
	var req types.BatchOptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}
	if limit := h.config.MaxBatchSize; limit > 0 && len(req.Requests) > limit {
		badRequest(c, "Batch too large", fmt.Errorf("%d requests exceed the limit of %d", len(req.Requests), limit))
		return
	}

	cat, err := h.resolveCatalog(req.Players)
	if err != nil {
		badRequest(c, "Invalid player pool", err)
		return
	}

	reqs := make([]optimizer.Request, len(req.Requests))
	for i, constraints := range req.Requests {
		reqs[i], err = h.buildRequest(cat, req.PeriodSelector, constraints)
		if err != nil {
			badRequest(c, "Invalid scoring period", err)
			return
		}
	}

	selections, err := h.optimizer.OptimizeBatch(c.Request.Context(), cat, reqs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response := types.BatchOptimizeResponse{
		Results: make([]types.OptimizeResponse, len(selections)),
		Count:   len(selections),
	}
	for i, sel := range selections {
		response.Results[i] = types.OptimizeResponse{
			Selection: sel,
			Summary:   h.calculator.Summarize(sel, reqs[i].Budget),
		}
	}
	c.JSON(http.StatusOK, response)
}

// ValidateOptimizationRequest builds the model for a request without solving it
func (h *OptimizationHandler) ValidateOptimizationRequest(c *gin.Context) {
	var req types.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format", err)
		return
	}

	cat, err := h.resolveCatalog(req.Players)
	if err != nil {
		badRequest(c, "Invalid player pool", err)
		return
	}
	optReq, err := h.buildRequest(cat, req.PeriodSelector, req.SquadConstraints)
	if err != nil {
		badRequest(c, "Invalid scoring period", err)
		return
	}

	sm, err := optimizer.BuildModel(cat, optReq)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ValidationResponse{
		Valid:       true,
		Period:      optReq.Period.String(),
		Variables:   sm.Model.NumVariables(),
		Constraints: sm.Model.NumConstraints(),
		Unmatched:   sm.Unmatched(),
	})
}

// FlushCache drops every cached selection
func (h *OptimizationHandler) FlushCache(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, gin.H{"deleted": 0, "cache": "not_configured"})
		return
	}
	deleted, err := h.cache.Flush(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to flush squad cache")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error: "Failed to flush cache",
			Code:  "CACHE_ERROR",
			Details: map[string]string{
				"error": err.Error(),
			},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *OptimizationHandler) resolveCatalog(players []catalog.PlayerRecord) (*catalog.Catalog, error) {
	if len(players) > 0 {
		return catalog.New(players)
	}
	if h.catalog == nil {
		return nil, errors.New("request has no players and no default player pool is loaded")
	}
	return h.catalog, nil
}

// buildRequest applies the service defaults and resolves the scoring period
func (h *OptimizationHandler) buildRequest(cat *catalog.Catalog, ps types.PeriodSelector, sc types.SquadConstraints) (optimizer.Request, error) {
	req := optimizer.Request{
		Budget:       h.config.DefaultBudget,
		Roster:       optimizer.DefaultRoster,
		Restrictions: sc.Restrictions,
	}
	if sc.Budget != nil {
		req.Budget = *sc.Budget
	}
	if sc.Roster != nil {
		req.Roster = *sc.Roster
	}

	var err error
	switch {
	case len(ps.PeriodSum) > 0:
		label := ps.PeriodLabel
		if label == "" {
			label = "sum"
		}
		req.Period = catalog.Sum(label, ps.PeriodSum...)
	case ps.FirstPeriods > 0:
		req.Period, err = cat.FirstPeriods(ps.FirstPeriods)
	case ps.AllPeriods:
		req.Period, err = cat.AllPeriods()
	case ps.Period != "":
		req.Period = catalog.Period(ps.Period)
	default:
		err = errors.New("one of period, period_sum, first_periods or all_periods is required")
	}
	return req, err
}

func (h *OptimizationHandler) cacheKey(cat *catalog.Catalog, req optimizer.Request) string {
	if h.cache == nil {
		return ""
	}
	key, err := cache.Key(struct {
		Players []catalog.PlayerRecord `json:"players"`
		Request optimizer.Request      `json:"request"`
	}{cat.Players(), req})
	if err != nil {
		h.logger.WithError(err).Warn("Failed to build cache key")
		return ""
	}
	return key
}

func (h *OptimizationHandler) lookup(ctx context.Context, key string) *optimizer.SquadSelection {
	if key == "" {
		return nil
	}
	sel, err := h.cache.Get(ctx, key)
	if h.metrics != nil {
		h.metrics.ObserveCacheLookup(err == nil)
	}
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.WithError(err).Warn("Failed to read squad cache")
		}
		return nil
	}
	return sel
}

func (h *OptimizationHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, optimizer.ErrInvalidRequest):
		badRequest(c, "Invalid optimization request", err)
	case errors.Is(err, solver.ErrSolverUnavailable):
		h.logger.WithError(err).Error("Solver unavailable")
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error: "Solver unavailable",
			Code:  "SOLVER_UNAVAILABLE",
		})
	default:
		h.logger.WithError(err).Error("Optimization failed")
		c.JSON(http.StatusBadGateway, types.ErrorResponse{
			Error: "Optimization failed",
			Code:  "SOLVER_ERROR",
			Details: map[string]string{
				"error": err.Error(),
			},
		})
	}
}

func badRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{
		Error: message,
		Code:  "INVALID_REQUEST",
		Details: map[string]string{
			"validation_error": err.Error(),
		},
	})
}
