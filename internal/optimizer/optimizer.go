package optimizer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
	"github.com/stitts-dev/fpl-squad/internal/solver"
	"github.com/stitts-dev/fpl-squad/shared/pkg/logger"
)

// ModelExporter receives each model before it is solved, for diagnostics
type ModelExporter interface {
	Export(ctx context.Context, m *solver.Model) error
}

// Recorder observes finished optimizations
type Recorder interface {
	ObserveOptimization(status string, duration time.Duration, nodes int)
}

// Optimizer selects squads. It keeps no state between calls, so one value may
// serve concurrent requests as long as its solver does.
type Optimizer struct {
	solver   solver.Solver
	exporter ModelExporter
	recorder Recorder
	logger   *logrus.Logger
	parallel int
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithExporter passes every built model to e before solving
func WithExporter(e ModelExporter) Option {
	return func(o *Optimizer) {
		o.exporter = e
	}
}

// WithRecorder reports every optimization to r
func WithRecorder(r Recorder) Option {
	return func(o *Optimizer) {
		o.recorder = r
	}
}

// WithLogger replaces the package logger; nil keeps the default
func WithLogger(l *logrus.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithParallelism bounds the number of concurrent solves in OptimizeBatch
func WithParallelism(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.parallel = n
		}
	}
}

// New creates an optimizer that solves with s
func New(s solver.Solver, opts ...Option) *Optimizer {
	o := &Optimizer{
		solver:   s,
		logger:   logger.GetLogger(),
		parallel: 4,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize builds the model for req, solves it, and returns the selected squad.
// Invalid requests fail with ErrInvalidRequest before anything is solved;
// solver errors are returned as the solver reported them.
func (o *Optimizer) Optimize(ctx context.Context, cat *catalog.Catalog, req Request) (*SquadSelection, error) {
	optimizationID := uuid.New().String()
	startTime := time.Now()
	log := logger.WithOptimizationContext(o.logger, optimizationID, req.Period.String())

	sm, err := BuildModel(cat, req)
	if err != nil {
		log.WithError(err).Warn("Rejected optimization request")
		return nil, err
	}
	if o.solver == nil {
		return nil, solver.ErrSolverUnavailable
	}

	log.WithFields(logrus.Fields{
		"total_players": cat.Len(),
		"constraints":   sm.Model.NumConstraints(),
		"dominated":     sm.Dominated(),
		"budget":        req.Budget,
		"squad_size":    req.Roster.Size(),
	}).Info("Starting optimization")

	if unmatched := sm.Unmatched(); len(unmatched) > 0 {
		log.WithField("unmatched", unmatched).Debug("Forced or banned players not in catalog")
	}

	if o.exporter != nil {
		if err := o.exporter.Export(ctx, sm.Model); err != nil {
			log.WithError(err).Warn("Failed to export model")
		}
	}

	res, err := o.solver.Solve(ctx, sm.Model)
	if err != nil {
		log.WithError(err).Error("Solver failed")
		return nil, err
	}

	sel, err := sm.selection(res)
	if err != nil {
		log.WithError(err).Error("Solver returned an unusable assignment")
		return nil, err
	}
	sel.ID = optimizationID

	if sel.Status == solver.Optimal {
		if err := Verify(cat, req, sel); err != nil {
			log.WithError(err).Warn("Optimal squad failed verification")
		}
	}

	duration := time.Since(startTime)
	if o.recorder != nil {
		o.recorder.ObserveOptimization(sel.Status.String(), duration, sel.Nodes)
	}

	log.WithFields(logrus.Fields{
		"status":      sel.Status.String(),
		"players":     len(sel.Players),
		"total_price": sel.TotalPrice,
		"objective":   sel.Objective,
		"nodes":       sel.Nodes,
		"duration_ms": duration.Milliseconds(),
	}).Info("Optimization completed")

	return sel, nil
}

// OptimizeBatch runs independent requests against one catalog concurrently.
// Results keep the order of reqs; the first error cancels the remaining solves.
func (o *Optimizer) OptimizeBatch(ctx context.Context, cat *catalog.Catalog, reqs []Request) ([]*SquadSelection, error) {
	results := make([]*SquadSelection, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallel)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			sel, err := o.Optimize(ctx, cat, req)
			if err != nil {
				return err
			}
			results[i] = sel
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
