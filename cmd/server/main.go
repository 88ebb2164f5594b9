package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fpl-squad/internal/api/handlers"
	"github.com/stitts-dev/fpl-squad/internal/catalog"
	"github.com/stitts-dev/fpl-squad/internal/ingest"
	"github.com/stitts-dev/fpl-squad/internal/optimizer"
	"github.com/stitts-dev/fpl-squad/internal/solver"
	"github.com/stitts-dev/fpl-squad/internal/solver/lpfile"
	"github.com/stitts-dev/fpl-squad/pkg/analytics"
	"github.com/stitts-dev/fpl-squad/pkg/cache"
	"github.com/stitts-dev/fpl-squad/shared/pkg/config"
	"github.com/stitts-dev/fpl-squad/shared/pkg/logger"
)

const service = "squad-optimizer"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	logger.WithService(service).WithFields(logrus.Fields{
		"version":     "1.0.0",
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting squad optimizer")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Optional default player pool
	var pool *catalog.Catalog
	if cfg.CatalogPath != "" {
		pool, err = ingest.LoadFile(cfg.CatalogPath, ingest.PeriodRange(cfg.CatalogGWStart, cfg.CatalogGWEnd))
		if err != nil {
			logger.WithService(service).Fatalf("Failed to load player pool: %v", err)
		}
		logger.WithService(service).WithFields(logrus.Fields{
			"path":    cfg.CatalogPath,
			"players": pool.Len(),
			"periods": pool.Periods(),
		}).Info("Loaded player pool")
	}

	// Optional Redis result cache
	var squadCache *cache.SquadCache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.WithService(service).Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.WithService(service).WithError(err).Warn("Redis unreachable, results will not be cached until it recovers")
		}
		defer redisClient.Close()
		squadCache = cache.NewSquadCache(redisClient, structuredLogger, cfg.CacheTTL)
	}

	metrics := analytics.NewMetrics(analytics.WithHistogramBuckets(analytics.LatencyBuckets(cfg.SolverTimeLimit)))

	engine := solver.NewBranchAndBound(solver.Options{
		MaxNodes:  cfg.SolverMaxNodes,
		TimeLimit: cfg.SolverTimeLimit,
		Logger:    logger.WithService("solver"),
	})
	opts := []optimizer.Option{
		optimizer.WithLogger(structuredLogger),
		optimizer.WithRecorder(metrics),
	}
	if cfg.ModelExportPath != "" {
		opts = append(opts, optimizer.WithExporter(lpfile.FileExporter{Path: cfg.ModelExportPath}))
	}
	squadOptimizer := optimizer.New(engine, opts...)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	handlers.RegisterRoutes(router,
		handlers.NewOptimizationHandler(squadOptimizer, pool, squadCache, metrics, cfg, structuredLogger),
		handlers.NewHealthHandler(engine, pool, squadCache, metrics, structuredLogger),
		metrics,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.WithService(service).WithField("port", cfg.Port).Info("Squad optimizer started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithService(service).Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithService(service).Info("Shutting down squad optimizer...")

	// Solves in flight get the time limit plus a grace period
	timeout := 5 * time.Second
	if cfg.SolverTimeLimit > 0 {
		timeout += cfg.SolverTimeLimit
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithService(service).Fatalf("Squad optimizer forced to shutdown: %v", err)
	}

	logger.WithService(service).Info("Squad optimizer exited")
}
