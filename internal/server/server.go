package server

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/tourfit/internal/config"
	"github.com/copyleftdev/tourfit/internal/dataset"
	"github.com/copyleftdev/tourfit/internal/errors"
	"github.com/copyleftdev/tourfit/internal/logging"
	"github.com/copyleftdev/tourfit/internal/solver"
	"github.com/copyleftdev/tourfit/internal/storage"
	"github.com/copyleftdev/tourfit/internal/tour"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// maxRandomPoints bounds instances generated on request.
const maxRandomPoints = 100000

// RandomSpec asks the server to generate the instance.
type RandomSpec struct {
	Count int   `json:"count"`
	Seed  int64 `json:"seed,omitempty"`
}

// StartRequest starts a run over the given points, or over a random instance
// when Points is empty.
type StartRequest struct {
	Points []tour.Point `json:"points,omitempty"`
	Random *RandomSpec  `json:"random,omitempty"`
}

// EvaluateRequest scores a single tour.
type EvaluateRequest struct {
	Points []tour.Point `json:"points"`
	Tour   []int        `json:"tour"`
}

// RunStatus is the API view of a run.
type RunStatus struct {
	storage.RunRecord
	Summary string `json:"summary,omitempty"`
}

// runRef identifies a run in JSON-RPC params.
type runRef struct {
	RunID string `json:"run_id"`
}

// job is a run started by this process.
type job struct {
	run     *solver.Run
	cancel  context.CancelFunc
	done    chan struct{}
	summary string
}

// Server implements the HTTP and JSON-RPC API for tour search runs. Runs
// execute in background goroutines; their records are kept in memory for
// the life of the process and, when a store is configured, persisted.
type Server struct {
	cfg    *config.Config
	logger Logger
	solver *solver.Solver
	store  storage.Store

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	jobs   map[string]*job
	jobsMu sync.RWMutex
}

// NewServer creates a new server. store may be nil, in which case only runs
// started by this process are visible.
func NewServer(cfg *config.Config, logger Logger, s *solver.Solver, store storage.Store) *Server {
	ctx, stop := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: logger,
		solver: s,
		store:  store,
		ctx:    ctx,
		stop:   stop,
		jobs:   make(map[string]*job),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", s.handleStart)
		r.Get("/runs", s.handleList)
		r.Get("/runs/{id}", s.handleStatus)
		r.Delete("/runs/{id}", s.handleCancel)
		r.Post("/evaluate", s.handleEvaluate)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// startRun prepares a run and executes it in the background.
func (s *Server) startRun(req StartRequest) (RunStatus, error) {
	points := req.Points
	if len(points) == 0 {
		if req.Random == nil || req.Random.Count < 1 {
			return RunStatus{}, errors.Wrap(errors.ErrInvalidInput, "points or random.count is required")
		}
		if req.Random.Count > maxRandomPoints {
			return RunStatus{}, errors.Wrapf(errors.ErrInvalidInput, "random.count must not exceed %d", maxRandomPoints)
		}
		var err error
		points, err = dataset.RandomPoints(req.Random.Count, dataset.DefaultBounds, tour.NewRand(req.Random.Seed))
		if err != nil {
			return RunStatus{}, err
		}
	}

	run, err := s.solver.Prepare(points)
	if err != nil {
		return RunStatus{}, err
	}

	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{run: run, cancel: cancel, done: make(chan struct{})}

	s.jobsMu.Lock()
	s.jobs[run.ID()] = j
	s.jobsMu.Unlock()

	s.wg.Add(1)
	go s.execute(ctx, j)

	s.logger.Info("Run started", map[string]interface{}{
		"run_id": run.ID(),
		"points": len(points),
	})
	return RunStatus{RunRecord: run.Record()}, nil
}

// execute runs a job to completion and records its summary.
func (s *Server) execute(ctx context.Context, j *job) {
	defer s.wg.Done()
	defer close(j.done)
	defer j.cancel()

	out, err := j.run.Execute(ctx)

	fields := map[string]interface{}{"run_id": j.run.ID()}
	if out != nil {
		fields["status"] = out.Record.Status
		fields["generations"] = out.Record.Generations
		fields["best_fitness"] = out.Record.BestFitness
		s.jobsMu.Lock()
		j.summary = out.Summary.String()
		s.jobsMu.Unlock()
	}
	if err != nil && (out == nil || out.Record.Status == storage.StatusFailed) {
		fields["error"] = err.Error()
		s.logger.Error("Run failed", fields)
		return
	}
	s.logger.Info("Run finished", fields)
}

// runStatus returns the live state of a run started here, falling back to
// the store for older runs.
func (s *Server) runStatus(ctx context.Context, id string) (RunStatus, error) {
	s.jobsMu.RLock()
	j, ok := s.jobs[id]
	var summary string
	if ok {
		summary = j.summary
	}
	s.jobsMu.RUnlock()

	if ok {
		return RunStatus{RunRecord: j.run.Record(), Summary: summary}, nil
	}
	if s.store != nil {
		rec, found, err := s.store.GetRun(ctx, id)
		if err != nil {
			return RunStatus{}, err
		}
		if found {
			return RunStatus{RunRecord: rec}, nil
		}
	}
	return RunStatus{}, errors.Wrapf(errors.ErrNotFound, "run %s not found", id)
}

// listRuns returns the newest runs first.
func (s *Server) listRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if s.store != nil {
		return s.store.ListRuns(ctx, limit)
	}

	s.jobsMu.RLock()
	runs := make([]storage.RunRecord, 0, len(s.jobs))
	for _, j := range s.jobs {
		runs = append(runs, j.run.Record())
	}
	s.jobsMu.RUnlock()

	sort.Slice(runs, func(i, k int) bool { return runs[i].CreatedAt.After(runs[k].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// cancelRun stops a running search. The run keeps its best tour and ends in
// the cancelled state.
func (s *Server) cancelRun(id string) error {
	s.jobsMu.RLock()
	j, ok := s.jobs[id]
	s.jobsMu.RUnlock()
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "run %s not found", id)
	}

	select {
	case <-j.done:
		return errors.Wrapf(errors.ErrInvalidInput, "cannot cancel run with status: %s", j.run.Record().Status)
	default:
	}

	j.cancel()
	s.logger.Info("Run cancelled", map[string]interface{}{"run_id": id})
	return nil
}

// evaluate scores one tour with the server's fitness settings.
func (s *Server) evaluate(req EvaluateRequest) (tour.Result, error) {
	if len(req.Points) == 0 {
		return tour.Result{}, errors.Wrap(errors.ErrInvalidInput, "points are required")
	}
	res, err := s.solver.Evaluate(req.Points, req.Tour)
	if err != nil {
		return tour.Result{}, errors.Wrap(fmt.Errorf("%w: %w", errors.ErrInvalidInput, err), "evaluating tour")
	}
	return res, nil
}

// Wait blocks until every run started by this server has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Close cancels all running searches and waits for them to record their
// final state.
func (s *Server) Close() error {
	s.stop()
	s.wg.Wait()
	return nil
}
