// Command tourfit searches for a short closed tour over a point set and
// writes the best tour found as CSV.
//
// Settings come from the environment (see internal/config); flags override
// the most common ones.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/copyleftdev/tourfit/internal/config"
	"github.com/copyleftdev/tourfit/internal/dataset"
	"github.com/copyleftdev/tourfit/internal/logging"
	"github.com/copyleftdev/tourfit/internal/solver"
	"github.com/copyleftdev/tourfit/internal/storage"
	"github.com/copyleftdev/tourfit/internal/tour"
)

// options holds the command-line flags.
type options struct {
	points      string
	random      int
	out         string
	summary     string
	persist     bool
	generations int
	duration    time.Duration
	stagnation  int
	popMin      int
	popMax      int
	seed        int64
	workers     int
	metric      string
	scale       string
	seeding     string
	mutation    string
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	o := options{
		generations: cfg.Optimization.MaxGenerations,
		duration:    cfg.Optimization.MaxDuration,
		stagnation:  cfg.Optimization.StagnationGenerations,
		popMin:      cfg.Optimization.PopulationMin,
		popMax:      cfg.Optimization.PopulationMax,
		seed:        cfg.Optimization.Seed,
		workers:     cfg.Optimization.WorkerCount,
		metric:      cfg.Fitness.Metric,
		scale:       cfg.Fitness.Scale,
		seeding:     cfg.Optimization.Seeding,
		mutation:    cfg.Optimization.Mutation,
	}

	fs := flag.NewFlagSet("tourfit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.points, "points", "", "CSV file with X,Y[,FieldX,FieldY] columns")
	fs.IntVar(&o.random, "random", 0, "generate this many random points in a 1000x1000 square instead of reading -points")
	fs.StringVar(&o.out, "out", "solution.csv", "file the best tour is written to")
	fs.StringVar(&o.summary, "summary", "", "file the run summary is written to (default stdout)")
	fs.BoolVar(&o.persist, "persist", false, "save the run record to the store configured by DB_TYPE and DB_DSN")
	fs.IntVar(&o.generations, "generations", o.generations, "stop after this many generations (0 disables)")
	fs.DurationVar(&o.duration, "duration", o.duration, "stop after evolving this long (0 disables)")
	fs.IntVar(&o.stagnation, "stagnation", o.stagnation, "stop after this many generations without improvement (0 disables)")
	fs.IntVar(&o.popMin, "population-min", o.popMin, "initial population size")
	fs.IntVar(&o.popMax, "population-max", o.popMax, "population size after the first generation")
	fs.Int64Var(&o.seed, "seed", o.seed, "random seed, 0 for time based")
	fs.IntVar(&o.workers, "workers", o.workers, "parallel fitness evaluations")
	fs.StringVar(&o.metric, "metric", o.metric, "distance metric: euclidean, manhattan, field, haversine")
	fs.StringVar(&o.scale, "scale", o.scale, "fitness scaling: linear, inverse, bbox, expr")
	fs.StringVar(&o.seeding, "seeding", o.seeding, "initial population: random, sequential, nearest")
	fs.StringVar(&o.mutation, "mutation", o.mutation, "mutation operator: reverse, swap, uniform")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if (o.points == "") == (o.random == 0) {
		return o, fmt.Errorf("exactly one of -points and -random is required")
	}

	cfg.Optimization.MaxGenerations = o.generations
	cfg.Optimization.MaxDuration = o.duration
	cfg.Optimization.StagnationGenerations = o.stagnation
	cfg.Optimization.PopulationMin = o.popMin
	cfg.Optimization.PopulationMax = o.popMax
	cfg.Optimization.Seed = o.seed
	cfg.Optimization.WorkerCount = o.workers
	cfg.Optimization.Seeding = o.seeding
	cfg.Optimization.Mutation = o.mutation
	cfg.Fitness.Metric = o.metric
	cfg.Fitness.Scale = o.scale
	return o, cfg.Validate()
}

func loadPoints(o options, seed int64) ([]tour.Point, error) {
	if o.points != "" {
		return dataset.LoadPoints(o.points)
	}
	return dataset.RandomPoints(o.random, dataset.DefaultBounds, tour.NewRand(seed))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	o, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return err
	}
	logger = logger.WithField("service", "tourfit")

	points, err := loadPoints(o, cfg.Optimization.Seed)
	if err != nil {
		return err
	}

	opts := []solver.Option{solver.WithLogger(logging.NewZapLogger(logger))}
	if o.persist {
		if cfg.Database.Type == "sqlite" {
			if err := config.EnsureDataDir(cfg.Database.DSN); err != nil {
				return err
			}
		}
		store, err := storage.NewStore(cfg.Database.Type, cfg.Database.DSN)
		if err != nil {
			return err
		}
		if err := store.Init(ctx); err != nil {
			return err
		}
		defer storage.CloseIfSupported(store)
		opts = append(opts, solver.WithStore(store))
	}

	out, err := solver.New(cfg.Optimization, cfg.Fitness, opts...).Solve(ctx, points)
	if out == nil {
		return err
	}
	if err != nil {
		logger.Warn("Run did not complete", map[string]interface{}{"error": err.Error(), "status": out.Record.Status})
	}

	if len(out.Record.Tour) > 0 {
		if werr := dataset.SaveTour(o.out, out.Record.Tour); werr != nil {
			return werr
		}
	}

	summary := stdout
	if o.summary != "" {
		f, ferr := os.Create(o.summary)
		if ferr != nil {
			return ferr
		}
		defer f.Close()
		summary = f
	}
	if _, werr := out.Summary.WriteTo(summary); werr != nil {
		return werr
	}

	if out.Record.Status == storage.StatusFailed {
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintf(os.Stderr, "tourfit: %v\n", err)
		}
		os.Exit(1)
	}
}
