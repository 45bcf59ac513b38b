package genetic

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/tourfit/internal/tour"
)

func TestOrderedCrossoverKnownSegment(t *testing.T) {
	a := mustGenes(t, 0, 1, 2, 3, 4, 5, 6, 7)
	b := mustGenes(t, 7, 6, 5, 4, 3, 2, 1, 0)

	// Cut points 2 and 4 keep positions [2, 5).
	rng := &fixedRand{ints: []int{2, 4}, floats: []float64{0}}
	c1, c2 := OrderedCrossover{}.Cross(a, b, rng)

	// c1 keeps 2,3,4 from a; the rest comes from b starting at position 5:
	// 2,1,0,7,6,5,4,3 minus {2,3,4} => 1,0,7,6,5 placed at 5,6,7,0,1.
	assert.Equal(t, []int{6, 5, 2, 3, 4, 1, 0, 7}, c1.Genes())
	assert.True(t, tour.IsPermutation(c2.Genes()))
	assert.Equal(t, []int{5, 4, 3}, c2.Genes()[2:5])

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, a.Genes(), "parents must not change")
}

func TestOrderedCrossoverCanKeepEveryPosition(t *testing.T) {
	const n = 8
	rng := tour.NewRand(21)
	kept := make([]int, n)
	for i := 0; i < 20000; i++ {
		start, end := keptSegment(n, rng)
		require.True(t, 0 <= start && start < end && end <= n, "[%d, %d)", start, end)
		for p := start; p < end; p++ {
			kept[p]++
		}
	}
	for p, count := range kept {
		assert.Positive(t, count, "position %d never kept", p)
	}

	// The last position survives a crossover when the second cut point is on it.
	a := mustGenes(t, 0, 1, 2, 3, 4, 5, 6, 7)
	b := mustGenes(t, 7, 6, 5, 4, 3, 2, 1, 0)
	c1, _ := OrderedCrossover{}.Cross(a, b, &fixedRand{ints: []int{5, 7}, floats: []float64{0}})
	assert.Equal(t, []int{5, 6, 7}, c1.Genes()[5:])
	assert.True(t, tour.IsPermutation(c1.Genes()))
}

func TestOrderedCrossoverPreservesPermutations(t *testing.T) {
	rng := tour.NewRand(9)
	for i := 0; i < 200; i++ {
		a := mustGenes(t, rng.Perm(12)...)
		b := mustGenes(t, rng.Perm(12)...)
		c1, c2 := OrderedCrossover{}.Cross(a, b, rng)
		require.True(t, tour.IsPermutation(c1.Genes()), "%v", c1.Genes())
		require.True(t, tour.IsPermutation(c2.Genes()), "%v", c2.Genes())
	}
}

func TestOrderedCrossoverToleratesDuplicates(t *testing.T) {
	rng := tour.NewRand(4)
	for i := 0; i < 200; i++ {
		a, err := tour.NewChromosome(10, rng)
		require.NoError(t, err)
		b, err := tour.NewChromosome(10, rng)
		require.NoError(t, err)

		c1, c2 := OrderedCrossover{}.Cross(a, b, rng)
		require.Equal(t, 10, c1.Length())
		require.Equal(t, 10, c2.Length())

		// The child's multiset is drawn from the parents' genes.
		pool := map[int]bool{}
		for _, g := range append(a.Genes(), b.Genes()...) {
			pool[g] = true
		}
		for _, g := range c1.Genes() {
			require.True(t, pool[g])
		}
	}
}

func TestReverseSequenceMutation(t *testing.T) {
	c := mustGenes(t, 0, 1, 2, 3, 4, 5)
	rng := &fixedRand{ints: []int{4, 1}, floats: []float64{0}}
	ReverseSequenceMutation{}.Mutate(c, 1, rng)
	assert.Equal(t, []int{0, 4, 3, 2, 1, 5}, c.Genes())

	// Probability zero never mutates.
	c = mustGenes(t, 0, 1, 2, 3)
	ReverseSequenceMutation{}.Mutate(c, 0, tour.NewRand(1))
	assert.Equal(t, []int{0, 1, 2, 3}, c.Genes())
}

func TestSwapMutation(t *testing.T) {
	c := mustGenes(t, 0, 1, 2, 3)
	rng := &fixedRand{ints: []int{0, 3}, floats: []float64{0}}
	SwapMutation{}.Mutate(c, 1, rng)
	assert.Equal(t, []int{3, 1, 2, 0}, c.Genes())
}

func TestPermutationMutationsKeepMultiset(t *testing.T) {
	rng := tour.NewRand(21)
	for _, m := range []Mutation{ReverseSequenceMutation{}, SwapMutation{}} {
		c := mustGenes(t, 3, 3, 1, 0, 7, 2, 2, 5)
		before := c.Genes()
		for i := 0; i < 50; i++ {
			m.Mutate(c, 1, rng)
		}
		after := c.Genes()
		sort.Ints(before)
		sort.Ints(after)
		assert.Equal(t, before, after, m.Name())
	}
}

func TestUniformMutation(t *testing.T) {
	c := mustGenes(t, 0, 1, 2, 3, 4)
	UniformMutation{}.Mutate(c, 1, tour.NewRand(8))
	for _, g := range c.Genes() {
		assert.GreaterOrEqual(t, g, 0)
		assert.Less(t, g, 5)
	}

	c = mustGenes(t, 0, 1, 2, 3, 4)
	c.SetFitness(1)
	UniformMutation{}.Mutate(c, 0, tour.NewRand(8))
	_, ok := c.Fitness()
	assert.True(t, ok, "no gene replaced, cached fitness stays valid")
}

func TestEliteSelection(t *testing.T) {
	pop := []*tour.Chromosome{
		withFitness(t, 0.1, 0, 1),
		withFitness(t, 0.9, 1, 0),
		withFitness(t, 0.5, 0, 0),
	}
	got := EliteSelection{}.Select(pop, 4, nil)
	require.Len(t, got, 4)
	assert.Same(t, pop[1], got[0])
	assert.Same(t, pop[2], got[1])
	assert.Same(t, pop[0], got[2])
	assert.Same(t, pop[1], got[3])

	assert.Nil(t, EliteSelection{}.Select(nil, 3, nil))
}

func TestTournamentSelection(t *testing.T) {
	pop := []*tour.Chromosome{
		withFitness(t, 0.1, 0, 1),
		withFitness(t, 0.9, 1, 0),
	}
	// Contestants 0 then 1: the fitter one wins.
	rng := &fixedRand{ints: []int{0, 1}, floats: []float64{0}}
	got := TournamentSelection{Size: 2}.Select(pop, 3, rng)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.Same(t, pop[1], c)
	}
}
