// Package report renders the outcome of a search run for people.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/copyleftdev/tourfit/internal/optimization"
	"github.com/copyleftdev/tourfit/internal/optimization/genetic"
)

// Summary captures what a finished run did and what it found.
type Summary struct {
	RunID       string
	Points      int
	Termination string
	Generations int
	Evaluations int
	Elapsed     time.Duration

	PopulationMin        int
	PopulationMax        int
	Selection            string
	Crossover            string
	Mutation             string
	CrossoverProbability float64
	MutationProbability  float64

	Found           bool
	BestFitness     float64
	BestDistance    float64
	BestUniqueCount int
}

// New builds a summary from an engine configuration and its result. A nil
// result yields a summary with Found unset.
func New(runID string, points int, cfg genetic.Config, result *optimization.OptimizationResult) Summary {
	s := Summary{
		RunID:                runID,
		Points:               points,
		PopulationMin:        cfg.PopulationMin,
		PopulationMax:        cfg.PopulationMax,
		CrossoverProbability: cfg.CrossoverProbability,
		MutationProbability:  cfg.MutationProbability,
	}
	if cfg.Selection != nil {
		s.Selection = cfg.Selection.Name()
	}
	if cfg.Crossover != nil {
		s.Crossover = cfg.Crossover.Name()
	}
	if cfg.Mutation != nil {
		s.Mutation = cfg.Mutation.Name()
	}
	if result == nil {
		return s
	}

	s.Termination = result.Termination
	s.Generations = result.Generations
	s.Evaluations = result.Evaluations
	s.Elapsed = result.Elapsed
	if b := result.BestSolution; b != nil {
		s.Found = true
		s.BestFitness = b.Fitness
		s.BestDistance = b.Distance
		s.BestUniqueCount = b.UniqueCount
	}
	return s
}

// GenerationsPerSecond is zero for runs that took no measurable time.
func (s Summary) GenerationsPerSecond() float64 {
	return rate(s.Generations, s.Elapsed)
}

// EvaluationsPerSecond is zero for runs that took no measurable time.
func (s Summary) EvaluationsPerSecond() float64 {
	return rate(s.Evaluations, s.Elapsed)
}

func rate(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

// String renders the summary as an aligned text block.
func (s Summary) String() string {
	var b strings.Builder

	line := func(label, format string, args ...interface{}) {
		fmt.Fprintf(&b, "%-20s %s\n", label+":", fmt.Sprintf(format, args...))
	}

	if s.RunID != "" {
		line("Run", "%s", s.RunID)
	}
	line("Termination", "%s", orDash(s.Termination))
	line("Points", "%s", humanize.Comma(int64(s.Points)))
	line("Generations", "%s", humanize.Comma(int64(s.Generations)))
	line("Evaluations", "%s", humanize.Comma(int64(s.Evaluations)))
	line("Population", "%d - %d", s.PopulationMin, s.PopulationMax)
	line("Selection", "%s", orDash(s.Selection))
	line("Crossover", "%s (p=%.2f)", orDash(s.Crossover), s.CrossoverProbability)
	line("Mutation", "%s (p=%.2f)", orDash(s.Mutation), s.MutationProbability)
	line("Elapsed", "%s", s.Elapsed.Round(time.Millisecond))
	line("Speed", "%s gen/s, %s eval/s",
		humanize.CommafWithDigits(s.GenerationsPerSecond(), 2),
		humanize.CommafWithDigits(s.EvaluationsPerSecond(), 0))

	if !s.Found {
		line("Best", "none")
		return b.String()
	}
	line("Unique points", "%d of %d", s.BestUniqueCount, s.Points)
	line("Fitness", "%.6f", s.BestFitness)
	line("Distance", "%s", humanize.CommafWithDigits(s.BestDistance, 2))
	return b.String()
}

// WriteTo writes the text rendering to w.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
