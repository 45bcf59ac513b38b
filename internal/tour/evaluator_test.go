package tour

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitSquare returns the corners of the unit square in tour order.
func unitSquare() []Point {
	return []Point{
		NewPoint(0, 0),
		NewPoint(0, 1),
		NewPoint(1, 1),
		NewPoint(1, 0),
	}
}

func squareEvaluator(t testing.TB) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(unitSquare(), Euclidean, LinearScale(2.4))
	require.NoError(t, err)
	return e
}

func mustChromosome(t testing.TB, genes ...int) *Chromosome {
	t.Helper()
	c, err := NewChromosomeFromGenes(genes, NewRand(1))
	require.NoError(t, err)
	return c
}

func TestNewEvaluator(t *testing.T) {
	tests := []struct {
		name     string
		points   []Point
		distance DistanceFunc
		scale    ScaleFunc
		wantErr  error
	}{
		{"valid", unitSquare(), Euclidean, InverseScale(), nil},
		{"no points", nil, Euclidean, InverseScale(), ErrNoPoints},
		{"nil distance", unitSquare(), nil, InverseScale(), ErrNilFunc},
		{"nil scale", unitSquare(), Euclidean, nil, ErrNilFunc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEvaluator(tt.points, tt.distance, tt.scale)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, e)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.points), e.PointCount())
		})
	}
}

func TestEvaluateUnitSquare(t *testing.T) {
	e := squareEvaluator(t)
	c := mustChromosome(t, 0, 1, 2, 3)

	fitness, err := e.Evaluate(c)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, c.Distance(), 1e-12)
	assert.Equal(t, 4, c.UniqueCount())
	assert.InDelta(t, 1-4/9.6, fitness, 1e-12)
	assert.InDelta(t, 0.5833, fitness, 1e-4)
}

func TestEvaluateDuplicatePenalty(t *testing.T) {
	e := squareEvaluator(t)
	c := mustChromosome(t, 0, 0, 2, 3)

	fitness, err := e.Evaluate(c)
	require.NoError(t, err)

	// Edges 0->0, 0->0, 0->2, 2->3, 3->0.
	want := 0 + 0 + math.Sqrt2 + 1 + 1
	assert.InDelta(t, want, c.Distance(), 1e-12)
	assert.Equal(t, 3, c.UniqueCount())

	unpenalized := 1 - want/9.6
	assert.InDelta(t, unpenalized/2, fitness, 1e-12)
}

func TestEvaluatePermutationIsUnpenalized(t *testing.T) {
	e := squareEvaluator(t)
	for _, genes := range [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
	} {
		res, err := e.Score(genes)
		require.NoError(t, err)
		assert.Equal(t, 4, res.UniqueCount, "genes %v", genes)
		assert.InDelta(t, 1-res.Distance/9.6, res.Fitness, 1e-12, "genes %v", genes)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	rng := NewRand(42)
	points := make([]Point, 25)
	for i := range points {
		points[i] = Point{X: rng.Float64() * 100, Y: rng.Float64() * 100, FieldX: rng.Float64(), FieldY: rng.Float64()}
	}
	e, err := NewEvaluator(points, FieldWeighted(0.5), BoundingBoxScale(points))
	require.NoError(t, err)

	c, err := NewChromosome(len(points), rng)
	require.NoError(t, err)

	first, err := e.Evaluate(c)
	require.NoError(t, err)
	d, u := c.Distance(), c.UniqueCount()

	for i := 0; i < 5; i++ {
		got, err := e.Evaluate(c)
		require.NoError(t, err)
		assert.Equal(t, first, got)
		assert.Equal(t, d, c.Distance())
		assert.Equal(t, u, c.UniqueCount())
	}
}

func TestEvaluateReverseSymmetry(t *testing.T) {
	rng := NewRand(7)
	points := make([]Point, 12)
	for i := range points {
		points[i] = NewPoint(rng.Float64()*10, rng.Float64()*10)
	}
	e, err := NewEvaluator(points, Euclidean, InverseScale())
	require.NoError(t, err)

	genes := rng.Perm(len(points))
	reversed := make([]int, len(genes))
	for i, g := range genes {
		reversed[len(genes)-1-i] = g
	}

	a, err := e.Score(genes)
	require.NoError(t, err)
	b, err := e.Score(reversed)
	require.NoError(t, err)
	assert.InDelta(t, a.Distance, b.Distance, 1e-9)
}

func TestEvaluatePenaltyMonotonic(t *testing.T) {
	// A constant distance isolates the penalty from the tour length.
	constant := func(a, b Point) float64 { return 1 }
	points := make([]Point, 6)
	e, err := NewEvaluator(points, constant, LinearScale(10))
	require.NoError(t, err)

	sequences := [][]int{
		{0, 1, 2, 3, 4, 5},
		{0, 1, 2, 3, 4, 4},
		{0, 1, 2, 3, 3, 3},
		{0, 1, 1, 1, 1, 1},
		{0, 0, 0, 0, 0, 0},
	}

	prev := math.Inf(1)
	for _, genes := range sequences {
		res, err := e.Score(genes)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Fitness, prev, "genes %v", genes)
		assert.Equal(t, len(genes)-Duplicates(genes), res.UniqueCount)
		prev = res.Fitness
	}
}

func TestEvaluateClampsNegativeFitness(t *testing.T) {
	negative := func(float64, int) float64 { return -1e9 }
	e, err := NewEvaluator(unitSquare(), Euclidean, negative)
	require.NoError(t, err)

	for _, genes := range [][]int{{0, 1, 2, 3}, {1, 1, 1, 1}} {
		c := mustChromosome(t, genes...)
		fitness, err := e.Evaluate(c)
		require.NoError(t, err)
		assert.Equal(t, 0.0, fitness)
	}
}

func TestEvaluateClampsNaN(t *testing.T) {
	nan := func(float64, int) float64 { return math.NaN() }
	e, err := NewEvaluator(unitSquare(), Euclidean, nan)
	require.NoError(t, err)

	fitness, err := e.Evaluate(mustChromosome(t, 0, 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 0.0, fitness)
}

func TestEvaluateConfigurationErrors(t *testing.T) {
	e := squareEvaluator(t)

	tests := []struct {
		name    string
		genes   []int
		wantErr error
	}{
		{"too short", []int{0, 1, 2}, ErrLengthMismatch},
		{"too long", []int{0, 1, 2, 3, 0}, ErrLengthMismatch},
		{"gene too large", []int{0, 1, 2, 4}, ErrGeneOutOfRange},
		{"negative gene", []int{-1, 1, 2, 3}, ErrGeneOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustChromosome(t, tt.genes...)
			_, err := e.Evaluate(c)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, c.Distance(), "annotations must not be written on error")
			assert.Zero(t, c.UniqueCount())
		})
	}

	_, err := e.Evaluate(nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestEvaluateSelfEdgeIsCounted(t *testing.T) {
	// A distance with a non-zero self cost exposes the genes[0]->genes[0]
	// opening edge: n+1 edges are summed for a tour of n genes.
	points := unitSquare()
	unit := func(a, b Point) float64 { return 1 }
	e, err := NewEvaluator(points, unit, InverseScale())
	require.NoError(t, err)

	res, err := e.Score([]int{0, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Distance)
}

func TestScoreDoesNotMutate(t *testing.T) {
	e := squareEvaluator(t)
	genes := []int{3, 2, 1, 0}
	_, err := e.Score(genes)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1, 0}, genes)
}

func TestEvaluateConcurrent(t *testing.T) {
	e := squareEvaluator(t)
	done := make(chan float64, 16)
	for i := 0; i < 16; i++ {
		go func() {
			c := mustChromosome(t, 0, 1, 2, 3)
			f, err := e.Evaluate(c)
			if err != nil {
				done <- -1
				return
			}
			done <- f
		}()
	}
	for i := 0; i < 16; i++ {
		assert.InDelta(t, 1-4/9.6, <-done, 1e-12)
	}
}

func BenchmarkEvaluate(b *testing.B) {
	rng := NewRand(3)
	points := make([]Point, 1000)
	for i := range points {
		points[i] = NewPoint(rng.Float64()*1000, rng.Float64()*1000)
	}
	e, err := NewEvaluator(points, Euclidean, BoundingBoxScale(points))
	require.NoError(b, err)
	c, err := NewChromosomeFromGenes(rng.Perm(len(points)), rng)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Evaluate(c)
	}
}
