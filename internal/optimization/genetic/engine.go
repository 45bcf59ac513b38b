package genetic

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/tourfit/internal/optimization"
	"github.com/copyleftdev/tourfit/internal/tour"
)

const component = "genetic"

// Config holds the engine parameters
type Config struct {
	// Population bounds: the first generation has PopulationMin members,
	// later generations are bred up to PopulationMax
	PopulationMin int
	PopulationMax int

	// Operator probabilities in [0, 1]; unlike the operators they are not
	// defaulted, so zero disables crossover or mutation
	CrossoverProbability float64
	MutationProbability  float64

	// Number of best chromosomes copied unchanged into the next generation
	EliteCount int

	// Parallel fitness evaluations; 1 evaluates on the engine goroutine
	Workers int

	// Random seed for reproducibility, 0 selects a time-based seed
	Seed int64

	Selection   Selection
	Crossover   Crossover
	Mutation    Mutation
	Termination Termination

	// Logger receives run and generation logs, nil discards them
	Logger *zap.Logger

	// Observer is called on the engine goroutine after every generation
	Observer func(optimization.GenerationStats)
}

// DefaultConfig mirrors the classic TSP sample setup: ordered crossover,
// reverse sequence mutation, stop after a minute or 500 stagnant generations.
func DefaultConfig() Config {
	return Config{
		PopulationMin:        50,
		PopulationMax:        100,
		CrossoverProbability: 0.75,
		MutationProbability:  0.1,
		EliteCount:           1,
		Workers:              1,
		Selection:            EliteSelection{},
		Crossover:            OrderedCrossover{},
		Mutation:             ReverseSequenceMutation{},
		Termination:          Or(TimeEvolving(time.Minute), FitnessStagnation(500)),
	}
}

// Engine is a generational genetic algorithm over tour chromosomes
type Engine struct {
	config Config
	rng    *tour.LockedRand
	logger *zap.Logger

	mu           sync.RWMutex
	bestSolution *optimization.Solution
	history      []optimization.GenerationStats
	cancel       context.CancelFunc
	stopPending  bool
}

var _ optimization.Optimizer = (*Engine)(nil)

// NewEngine validates cfg, filling unset operators and population bounds
// from DefaultConfig.
func NewEngine(cfg Config) (*Engine, error) {
	def := DefaultConfig()
	if cfg.PopulationMin == 0 {
		cfg.PopulationMin = def.PopulationMin
	}
	if cfg.PopulationMax == 0 {
		cfg.PopulationMax = cfg.PopulationMin
		if def.PopulationMax > cfg.PopulationMax {
			cfg.PopulationMax = def.PopulationMax
		}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Selection == nil {
		cfg.Selection = def.Selection
	}
	if cfg.Crossover == nil {
		cfg.Crossover = def.Crossover
	}
	if cfg.Mutation == nil {
		cfg.Mutation = def.Mutation
	}
	if cfg.Termination == nil {
		cfg.Termination = def.Termination
	}

	switch {
	case cfg.PopulationMin < 2:
		return nil, optimization.InvalidConfigf(component, "minimum population must be at least 2, got %d", cfg.PopulationMin)
	case cfg.PopulationMax < cfg.PopulationMin:
		return nil, optimization.InvalidConfigf(component, "maximum population %d below minimum %d", cfg.PopulationMax, cfg.PopulationMin)
	case !isProbability(cfg.CrossoverProbability):
		return nil, optimization.InvalidConfigf(component, "crossover probability %v outside [0, 1]", cfg.CrossoverProbability)
	case !isProbability(cfg.MutationProbability):
		return nil, optimization.InvalidConfigf(component, "mutation probability %v outside [0, 1]", cfg.MutationProbability)
	case cfg.EliteCount < 0 || cfg.EliteCount >= cfg.PopulationMin:
		return nil, optimization.InvalidConfigf(component, "elite count %d must be in [0, %d)", cfg.EliteCount, cfg.PopulationMin)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		config: cfg,
		rng:    tour.NewRand(cfg.Seed),
		logger: logger.With(zap.String("component", component)),
	}, nil
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1 && !math.IsNaN(p)
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.config
}

// Rand exposes the engine's random source so chromosome factories can share
// the run seed
func (e *Engine) Rand() *tour.LockedRand {
	return e.rng
}

// Optimize evolves a population until the termination condition holds, the
// context is cancelled or Stop is called. On cancellation the best-so-far
// result is returned together with the context error. A fitness error aborts
// the run.
func (e *Engine) Optimize(ctx context.Context, problem optimization.Problem) (*optimization.OptimizationResult, error) {
	if problem.NewChromosome == nil {
		return nil, optimization.InvalidConfigf(component, "chromosome factory is required")
	}
	if problem.Fitness == nil {
		return nil, optimization.InvalidConfigf(component, "fitness is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	if e.stopPending {
		e.stopPending = false
		cancel()
	}
	e.bestSolution = nil
	e.history = make([]optimization.GenerationStats, 0, 64)
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
		cancel()
	}()

	cfg := e.config
	start := time.Now()
	e.logger.Info("Starting optimization",
		zap.Int("population_min", cfg.PopulationMin),
		zap.Int("population_max", cfg.PopulationMax),
		zap.String("selection", cfg.Selection.Name()),
		zap.String("crossover", cfg.Crossover.Name()),
		zap.String("mutation", cfg.Mutation.Name()),
		zap.String("termination", cfg.Termination.Name()),
		zap.Int("workers", cfg.Workers),
	)

	population := e.initialPopulation(problem)

	var (
		generation  int
		evaluations int
		stagnant    int
		bestFitness = math.Inf(-1)
		reason      string
		runErr      error
	)

	for {
		if err := ctx.Err(); err != nil {
			reason, runErr = "cancelled", err
			break
		}
		generation++

		n, err := evaluate(ctx, problem.Fitness, population, cfg.Workers)
		evaluations += n
		if err != nil {
			if ctx.Err() != nil {
				reason, runErr = "cancelled", ctx.Err()
			} else {
				runErr = optimization.WrapErrorf(err, "evaluating generation %d", generation).
					WithOperation("evaluate").WithComponent(component)
				reason = "fitness error"
			}
			break
		}

		sortByFitness(population)
		best := population[0]
		if f := fitnessOf(best); f > bestFitness {
			bestFitness = f
			stagnant = 0
			e.setBest(optimization.SolutionFrom(best))
		} else {
			stagnant++
		}

		stats := generationStats(generation, population, evaluations, time.Since(start))
		e.record(stats)
		e.logger.Debug("Generation evaluated",
			zap.Int("generation", generation),
			zap.Float64("best_fitness", stats.BestFitness),
			zap.Float64("mean_fitness", stats.MeanFitness),
			zap.Float64("best_distance", stats.BestDistance),
			zap.Int("penalized", stats.Penalized),
		)
		if cfg.Observer != nil {
			cfg.Observer(stats)
		}

		if r, ok := cfg.Termination.Reached(State{
			Generation:          generation,
			BestFitness:         bestFitness,
			StagnantGenerations: stagnant,
			Elapsed:             time.Since(start),
		}); ok {
			reason = r
			break
		}

		population = e.breed(population)
	}

	result := &optimization.OptimizationResult{
		BestSolution: e.GetBestSolution(),
		History:      e.GetHistory(),
		Generations:  generation,
		Evaluations:  evaluations,
		Elapsed:      time.Since(start),
		Termination:  reason,
		Converged:    runErr == nil,
	}

	fields := []zap.Field{
		zap.String("termination", reason),
		zap.Int("generations", generation),
		zap.Int("evaluations", evaluations),
		zap.Duration("elapsed", result.Elapsed),
	}
	if result.BestSolution != nil {
		fields = append(fields,
			zap.Float64("best_fitness", result.BestSolution.Fitness),
			zap.Float64("best_distance", result.BestSolution.Distance))
	}
	if runErr != nil {
		e.logger.Warn("Optimization stopped", append(fields, zap.Error(runErr))...)
		return result, runErr
	}
	e.logger.Info("Optimization finished", fields...)
	return result, nil
}

// initialPopulation clones the problem seeds and fills the rest of the
// minimum population from the chromosome factory
func (e *Engine) initialPopulation(problem optimization.Problem) []*tour.Chromosome {
	size := e.config.PopulationMin
	population := make([]*tour.Chromosome, 0, e.config.PopulationMax)
	for _, s := range problem.Seeds {
		if s != nil && len(population) < size {
			population = append(population, s.Clone())
		}
	}
	for len(population) < size {
		population = append(population, problem.NewChromosome())
	}
	return population
}

// breed produces the next generation from a population sorted best first
func (e *Engine) breed(population []*tour.Chromosome) []*tour.Chromosome {
	cfg := e.config
	size := cfg.PopulationMax

	next := make([]*tour.Chromosome, 0, size+1)
	for i := 0; i < cfg.EliteCount && i < len(population); i++ {
		next = append(next, population[i].Clone())
	}

	parents := cfg.Selection.Select(population, size-len(next)+1, e.rng)
	for i := 0; len(next) < size && i+1 < len(parents); i += 2 {
		var a, b *tour.Chromosome
		if e.rng.Float64() < cfg.CrossoverProbability {
			a, b = cfg.Crossover.Cross(parents[i], parents[i+1], e.rng)
		} else {
			a, b = parents[i].Clone(), parents[i+1].Clone()
		}
		cfg.Mutation.Mutate(a, cfg.MutationProbability, e.rng)
		cfg.Mutation.Mutate(b, cfg.MutationProbability, e.rng)
		next = append(next, a)
		if len(next) < size {
			next = append(next, b)
		}
	}
	return next
}

func generationStats(generation int, population []*tour.Chromosome, evaluations int, elapsed time.Duration) optimization.GenerationStats {
	fitness := make([]float64, len(population))
	penalized := 0
	for i, c := range population {
		fitness[i] = fitnessOf(c)
		if c.UniqueCount() < c.Length() {
			penalized++
		}
	}
	mean, std := stat.MeanStdDev(fitness, nil)
	if len(fitness) < 2 {
		std = 0
	}
	return optimization.GenerationStats{
		Generation:   generation,
		Population:   len(population),
		BestFitness:  fitness[0],
		MeanFitness:  mean,
		StdDev:       std,
		BestDistance: population[0].Distance(),
		Penalized:    penalized,
		Evaluations:  evaluations,
		Elapsed:      elapsed,
	}
}

func (e *Engine) setBest(s *optimization.Solution) {
	e.mu.Lock()
	e.bestSolution = s
	e.mu.Unlock()
}

func (e *Engine) record(s optimization.GenerationStats) {
	e.mu.Lock()
	e.history = append(e.history, s)
	e.mu.Unlock()
}

// GetBestSolution returns the best solution found so far
func (e *Engine) GetBestSolution() *optimization.Solution {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.bestSolution == nil {
		return nil
	}
	s := *e.bestSolution
	s.Tour = append([]int(nil), s.Tour...)
	return &s
}

// GetHistory returns per-generation statistics
func (e *Engine) GetHistory() []optimization.GenerationStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]optimization.GenerationStats(nil), e.history...)
}

// Stop cancels the run in progress. Called while no run is in progress it
// makes the next Optimize return at once with context.Canceled.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	if cancel == nil {
		e.stopPending = true
	}
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
