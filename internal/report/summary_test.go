package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/tourfit/internal/optimization"
	"github.com/copyleftdev/tourfit/internal/optimization/genetic"
)

func TestSummary(t *testing.T) {
	cfg := genetic.DefaultConfig()
	result := &optimization.OptimizationResult{
		BestSolution: &optimization.Solution{Tour: []int{0, 1, 2}, Fitness: 0.583333, Distance: 12345.678, UniqueCount: 3},
		Generations:  1500,
		Evaluations:  120000,
		Elapsed:      2 * time.Second,
		Termination:  "fitness stagnant for 500 generations",
		Converged:    true,
	}

	s := New("run-1", 3, cfg, result)
	assert.True(t, s.Found)
	assert.InDelta(t, 750, s.GenerationsPerSecond(), 1e-9)
	assert.InDelta(t, 60000, s.EvaluationsPerSecond(), 1e-9)

	text := s.String()
	for _, want := range []string{
		"run-1",
		"fitness stagnant for 500 generations",
		"1,500",
		"120,000",
		"50 - 100",
		"Ordered (OX1) (p=0.75)",
		"Reverse Sequence (RSM) (p=0.10)",
		"750 gen/s",
		"60,000 eval/s",
		"3 of 3",
		"0.583333",
		"12,345.67",
	} {
		assert.Contains(t, text, want)
	}

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(text)), n)
}

func TestSummaryWithoutResult(t *testing.T) {
	s := New("", 10, genetic.Config{}, nil)
	assert.False(t, s.Found)
	assert.Zero(t, s.GenerationsPerSecond())

	text := s.String()
	assert.Contains(t, text, "none")
	assert.NotContains(t, text, "Run:")
}
