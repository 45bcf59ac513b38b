package genetic

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/tourfit/internal/optimization"
	"github.com/copyleftdev/tourfit/internal/tour"
)

// circlePoints places n points on a circle so the optimal tour is known:
// visiting them in angular order.
func circlePoints(n int) []tour.Point {
	points := make([]tour.Point, n)
	for i := range points {
		a := 2 * math.Pi * float64(i) / float64(n)
		points[i] = tour.NewPoint(math.Cos(a)*100, math.Sin(a)*100)
	}
	return points
}

// testProblem wires an evaluator and a random chromosome factory over points.
func testProblem(t testing.TB, points []tour.Point, rng tour.Rand) optimization.Problem {
	t.Helper()
	e, err := tour.NewEvaluator(points, tour.Euclidean, tour.BoundingBoxScale(points))
	require.NoError(t, err)
	return optimization.Problem{
		NewChromosome: func() *tour.Chromosome {
			c, err := tour.NewChromosome(len(points), rng)
			if err != nil {
				panic(err)
			}
			return c
		},
		Fitness: e,
	}
}

// mustGenes builds a chromosome with fixed genes.
func mustGenes(t testing.TB, genes ...int) *tour.Chromosome {
	t.Helper()
	c, err := tour.NewChromosomeFromGenes(genes, tour.NewRand(1))
	require.NoError(t, err)
	return c
}

// withFitness builds a chromosome carrying a cached fitness.
func withFitness(t testing.TB, f float64, genes ...int) *tour.Chromosome {
	c := mustGenes(t, genes...)
	c.SetFitness(f)
	return c
}

// countingFitness counts Evaluate calls and can fail after a limit.
type countingFitness struct {
	inner   tour.Fitness
	calls   atomic.Int64
	failAt  int64
	failErr error
}

func (c *countingFitness) Evaluate(ch *tour.Chromosome) (float64, error) {
	n := c.calls.Add(1)
	if c.failAt > 0 && n >= c.failAt {
		return 0, c.failErr
	}
	return c.inner.Evaluate(ch)
}

var errBoom = errors.New("boom")

// fixedRand replays a scripted sequence of values.
type fixedRand struct {
	ints   []int
	floats []float64
}

func (f *fixedRand) Intn(n int) int {
	v := f.ints[0] % n
	f.ints = append(f.ints[1:], f.ints[0])
	return v
}

func (f *fixedRand) Float64() float64 {
	v := f.floats[0]
	f.floats = append(f.floats[1:], f.floats[0])
	return v
}
