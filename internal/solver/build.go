package solver

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/copyleftdev/tourfit/internal/config"
	"github.com/copyleftdev/tourfit/internal/optimization/genetic"
	"github.com/copyleftdev/tourfit/internal/spatial"
	"github.com/copyleftdev/tourfit/internal/tour"
)

// Seeding strategies for the first generation.
const (
	SeedingRandom     = "random"
	SeedingSequential = "sequential"
	SeedingNearest    = "nearest"
)

// NewEvaluator builds the tour evaluator described by fit.
func NewEvaluator(points []tour.Point, fit config.Fitness) (*tour.Evaluator, error) {
	distance, err := tour.MetricByName(fit.Metric, fit.FieldWeight)
	if err != nil {
		return nil, err
	}
	scale, err := tour.ScaleByName(fit.Scale, fit.ScaleFactor, fit.ScaleExpr, points)
	if err != nil {
		return nil, err
	}
	return tour.NewEvaluator(points, distance, scale)
}

// EngineConfig translates opt into an engine configuration.
func EngineConfig(opt config.Optimization, logger *zap.Logger) (genetic.Config, error) {
	cfg := genetic.DefaultConfig()
	cfg.PopulationMin = opt.PopulationMin
	cfg.PopulationMax = opt.PopulationMax
	cfg.CrossoverProbability = opt.CrossoverProbability
	cfg.MutationProbability = opt.MutationProbability
	cfg.EliteCount = opt.EliteCount
	cfg.Workers = opt.WorkerCount
	cfg.Seed = opt.Seed
	cfg.Logger = logger

	switch strings.ToLower(opt.Mutation) {
	case "", "reverse", "rsm":
		cfg.Mutation = genetic.ReverseSequenceMutation{}
	case "swap", "twors":
		cfg.Mutation = genetic.SwapMutation{}
	case "uniform":
		cfg.Mutation = genetic.UniformMutation{}
	default:
		return cfg, fmt.Errorf("unknown mutation %q", opt.Mutation)
	}

	switch strings.ToLower(opt.Selection) {
	case "", "elite":
		cfg.Selection = genetic.EliteSelection{}
	case "tournament":
		cfg.Selection = genetic.TournamentSelection{Size: opt.TournamentSize}
	default:
		return cfg, fmt.Errorf("unknown selection %q", opt.Selection)
	}

	var stops []genetic.Termination
	if opt.MaxGenerations > 0 {
		stops = append(stops, genetic.GenerationLimit(opt.MaxGenerations))
	}
	if opt.MaxDuration > 0 {
		stops = append(stops, genetic.TimeEvolving(opt.MaxDuration))
	}
	if opt.StagnationGenerations > 0 {
		stops = append(stops, genetic.FitnessStagnation(opt.StagnationGenerations))
	}
	switch len(stops) {
	case 0:
		return cfg, fmt.Errorf("no termination condition configured")
	case 1:
		cfg.Termination = stops[0]
	default:
		cfg.Termination = genetic.Or(stops...)
	}
	return cfg, nil
}

// Seeds returns the chromosomes placed into the first generation for the
// named strategy. Random seeding returns none.
func Seeds(strategy string, points []tour.Point, rng tour.Rand) ([]*tour.Chromosome, error) {
	switch strings.ToLower(strategy) {
	case "", SeedingRandom:
		return nil, nil
	case SeedingSequential:
		c, err := tour.NewSequentialChromosome(len(points), rng)
		if err != nil {
			return nil, err
		}
		return []*tour.Chromosome{c}, nil
	case SeedingNearest:
		order, err := spatial.NearestNeighbourTour(points, 0)
		if err != nil {
			return nil, err
		}
		c, err := tour.NewChromosomeFromGenes(order, rng)
		if err != nil {
			return nil, err
		}
		return []*tour.Chromosome{c}, nil
	default:
		return nil, fmt.Errorf("unknown seeding %q", strategy)
	}
}
