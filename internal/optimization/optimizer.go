package optimization

import (
	"context"
	"time"

	"github.com/copyleftdev/tourfit/internal/tour"
)

// Optimizer defines the interface for tour search algorithms
type Optimizer interface {
	// Optimize runs the search until a termination condition is met
	Optimize(ctx context.Context, problem Problem) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns per-generation statistics
	GetHistory() []GenerationStats

	// Stop gracefully stops the optimization process
	Stop()
}

// Problem binds the chromosome factory and the fitness for one instance.
type Problem struct {
	// NewChromosome creates a chromosome for an empty population slot
	NewChromosome func() *tour.Chromosome

	// Seeds are cloned into the initial population before random chromosomes
	Seeds []*tour.Chromosome

	// Fitness scores chromosomes
	Fitness tour.Fitness
}

// Solution is a scored tour
type Solution struct {
	Tour        []int   `json:"tour"`
	Fitness     float64 `json:"fitness"`
	Distance    float64 `json:"distance"`
	UniqueCount int     `json:"unique_count"`
}

// SolutionFrom snapshots an evaluated chromosome
func SolutionFrom(c *tour.Chromosome) *Solution {
	f, _ := c.Fitness()
	return &Solution{
		Tour:        c.Genes(),
		Fitness:     f,
		Distance:    c.Distance(),
		UniqueCount: c.UniqueCount(),
	}
}

// GenerationStats summarises one evaluated generation
type GenerationStats struct {
	Generation   int           `json:"generation"`
	Population   int           `json:"population"`
	BestFitness  float64       `json:"best_fitness"`
	MeanFitness  float64       `json:"mean_fitness"`
	StdDev       float64       `json:"std_dev"`
	BestDistance float64       `json:"best_distance"`
	Penalized    int           `json:"penalized"`
	Evaluations  int           `json:"evaluations"`
	Elapsed      time.Duration `json:"elapsed"`
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []GenerationStats
	Generations  int
	Evaluations  int
	Elapsed      time.Duration
	Termination  string
	Converged    bool
}
