// Package solver wires a problem instance, the tour evaluator and the genetic
// engine together according to the environment configuration, and records
// what each run produced.
package solver

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/tourfit/internal/config"
	"github.com/copyleftdev/tourfit/internal/errors"
	"github.com/copyleftdev/tourfit/internal/metrics"
	"github.com/copyleftdev/tourfit/internal/optimization"
	"github.com/copyleftdev/tourfit/internal/optimization/genetic"
	"github.com/copyleftdev/tourfit/internal/report"
	"github.com/copyleftdev/tourfit/internal/storage"
	"github.com/copyleftdev/tourfit/internal/tour"
)

// Solver creates runs that share one configuration and one set of
// collaborators.
type Solver struct {
	opt     config.Optimization
	fit     config.Fitness
	logger  *zap.Logger
	metrics *metrics.Collectors
	store   storage.Store
	now     func() time.Time
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger routes engine and run logs to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) { s.logger = logger }
}

// WithMetrics feeds run progress into c.
func WithMetrics(c *metrics.Collectors) Option {
	return func(s *Solver) { s.metrics = c }
}

// WithStore persists a record when a run starts and when it finishes.
func WithStore(store storage.Store) Option {
	return func(s *Solver) { s.store = store }
}

// New returns a solver for the given settings.
func New(opt config.Optimization, fit config.Fitness, opts ...Option) *Solver {
	s := &Solver{
		opt:    opt,
		fit:    fit,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Optimization returns the search settings.
func (s *Solver) Optimization() config.Optimization {
	return s.opt
}

// Fitness returns the evaluator settings.
func (s *Solver) Fitness() config.Fitness {
	return s.fit
}

// Evaluate scores one tour without running a search.
func (s *Solver) Evaluate(points []tour.Point, genes []int) (tour.Result, error) {
	e, err := NewEvaluator(points, s.fit)
	if err != nil {
		return tour.Result{}, err
	}
	return e.Score(genes)
}

// Prepare validates the settings against points and returns a run that has
// not started yet.
func (s *Solver) Prepare(points []tour.Point) (*Run, error) {
	if len(points) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "no points").WithOperation("Prepare").WithComponent("solver")
	}

	evaluator, err := NewEvaluator(points, s.fit)
	if err != nil {
		return nil, invalid("building evaluator", err)
	}

	id := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", id))

	cfg, err := EngineConfig(s.opt, logger)
	if err != nil {
		return nil, invalid("configuring engine", err)
	}
	if s.metrics != nil {
		cfg.Observer = s.metrics.Observer(id)
	}

	engine, err := genetic.NewEngine(cfg)
	if err != nil {
		return nil, invalid("configuring engine", err)
	}

	seeds, err := Seeds(s.opt.Seeding, points, engine.Rand())
	if err != nil {
		return nil, invalid("seeding", err)
	}

	n := len(points)
	rng := engine.Rand()
	return &Run{
		id:        id,
		solver:    s,
		engine:    engine,
		evaluator: evaluator,
		logger:    logger,
		problem: optimization.Problem{
			NewChromosome: func() *tour.Chromosome {
				c, _ := tour.NewChromosome(n, rng)
				return c
			},
			Seeds:   seeds,
			Fitness: evaluator,
		},
		record: storage.RunRecord{
			ID:      id,
			Status:  storage.StatusRunning,
			Points:  n,
			Metric:  s.fit.Metric,
			Scale:   s.fit.Scale,
			Seeding: s.opt.Seeding,
		},
	}, nil
}

// Solve prepares and executes a run on the calling goroutine.
func (s *Solver) Solve(ctx context.Context, points []tour.Point) (*Outcome, error) {
	run, err := s.Prepare(points)
	if err != nil {
		return nil, err
	}
	return run.Execute(ctx)
}

func invalid(msg string, err error) error {
	return errors.Wrap(fmt.Errorf("%w: %w", errors.ErrInvalidInput, err), msg).
		WithOperation("Prepare").WithComponent("solver")
}

// Outcome is what a finished run produced.
type Outcome struct {
	Record  storage.RunRecord
	Summary report.Summary
	Result  *optimization.OptimizationResult
}

// Run is one search over one problem instance. Execute may be called once;
// the other methods are safe to call from any goroutine at any time.
type Run struct {
	id        string
	solver    *Solver
	engine    *genetic.Engine
	evaluator *tour.Evaluator
	problem   optimization.Problem
	logger    *zap.Logger

	mu     sync.RWMutex
	record storage.RunRecord
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// Stop asks the search to finish after the current generation. A run
// stopped before Execute ends as soon as it starts.
func (r *Run) Stop() {
	r.engine.Stop()
}

// History returns the per-generation statistics recorded so far.
func (r *Run) History() []optimization.GenerationStats {
	return r.engine.GetHistory()
}

// Record returns the current state of the run. While the search is running
// it reflects the best solution found so far.
func (r *Run) Record() storage.RunRecord {
	r.mu.RLock()
	rec := r.record
	r.mu.RUnlock()

	if rec.Status == storage.StatusRunning {
		if best := r.engine.GetBestSolution(); best != nil {
			applySolution(&rec, best)
		}
		if h := r.engine.GetHistory(); len(h) > 0 {
			last := h[len(h)-1]
			rec.Generations = last.Generation
			rec.Evaluations = last.Evaluations
			rec.Elapsed = last.Elapsed
		}
	}
	rec.Tour = append([]int(nil), rec.Tour...)
	return rec
}

// Execute runs the search until it terminates, fails or ctx is cancelled.
// A cancelled run still yields an outcome holding the best tour found and
// the context error.
func (r *Run) Execute(ctx context.Context) (*Outcome, error) {
	s := r.solver

	r.mu.Lock()
	r.record.CreatedAt = s.now().UTC()
	started := r.record
	r.mu.Unlock()

	r.save(ctx, started)
	if s.metrics != nil {
		s.metrics.RunStarted()
	}

	result, runErr := r.engine.Optimize(ctx, r.problem)

	r.mu.Lock()
	rec := r.record
	rec.FinishedAt = s.now().UTC()
	rec.Status = statusOf(runErr)
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if result != nil {
		rec.Termination = result.Termination
		rec.Generations = result.Generations
		rec.Evaluations = result.Evaluations
		rec.Elapsed = result.Elapsed
		if result.BestSolution != nil {
			applySolution(&rec, result.BestSolution)
		}
	}
	r.record = rec
	r.mu.Unlock()

	r.save(context.WithoutCancel(ctx), rec)
	if s.metrics != nil {
		s.metrics.RunFinished(rec.ID, rec.Status, rec.Elapsed.Seconds())
	}

	outcome := &Outcome{
		Record:  rec,
		Summary: report.New(rec.ID, rec.Points, r.engine.Config(), result),
		Result:  result,
	}
	if runErr != nil {
		return outcome, runErr
	}
	return outcome, nil
}

func (r *Run) save(ctx context.Context, rec storage.RunRecord) {
	store := r.solver.store
	if store == nil {
		return
	}
	if err := store.SaveRun(ctx, rec); err != nil {
		r.logger.Warn("Saving run failed", zap.String("status", rec.Status), zap.Error(err))
	}
}

func applySolution(rec *storage.RunRecord, best *optimization.Solution) {
	rec.BestFitness = best.Fitness
	rec.BestDistance = best.Distance
	rec.BestUniqueCount = best.UniqueCount
	rec.Tour = append([]int(nil), best.Tour...)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return storage.StatusCompleted
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return storage.StatusCancelled
	default:
		return storage.StatusFailed
	}
}
