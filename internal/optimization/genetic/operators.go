package genetic

import (
	"sort"

	"github.com/copyleftdev/tourfit/internal/tour"
)

// Random is the randomness the operators draw from. Operators run on the
// engine goroutine only.
type Random interface {
	Intn(n int) int
	Float64() float64
}

// Selection picks parents from an evaluated population.
type Selection interface {
	Name() string
	Select(population []*tour.Chromosome, count int, rng Random) []*tour.Chromosome
}

// Crossover recombines two parents into two children. Parents are not
// modified.
type Crossover interface {
	Name() string
	Cross(a, b *tour.Chromosome, rng Random) (*tour.Chromosome, *tour.Chromosome)
}

// Mutation alters a chromosome in place with the given probability.
type Mutation interface {
	Name() string
	Mutate(c *tour.Chromosome, probability float64, rng Random)
}

func fitnessOf(c *tour.Chromosome) float64 {
	f, _ := c.Fitness()
	return f
}

// sortByFitness orders population best first.
func sortByFitness(population []*tour.Chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return fitnessOf(population[i]) > fitnessOf(population[j])
	})
}

// EliteSelection returns the fittest chromosomes, cycling through them when
// more parents than population members are requested.
type EliteSelection struct{}

// Name implements Selection
func (EliteSelection) Name() string { return "Elite" }

// Select implements Selection
func (EliteSelection) Select(population []*tour.Chromosome, count int, _ Random) []*tour.Chromosome {
	if len(population) == 0 {
		return nil
	}
	ranked := append([]*tour.Chromosome(nil), population...)
	sortByFitness(ranked)
	out := make([]*tour.Chromosome, count)
	for i := range out {
		out[i] = ranked[i%len(ranked)]
	}
	return out
}

// TournamentSelection picks the fittest of Size random contestants per parent.
type TournamentSelection struct {
	Size int
}

// Name implements Selection
func (t TournamentSelection) Name() string { return "Tournament" }

// Select implements Selection
func (t TournamentSelection) Select(population []*tour.Chromosome, count int, rng Random) []*tour.Chromosome {
	if len(population) == 0 {
		return nil
	}
	size := t.Size
	if size < 2 {
		size = 2
	}
	out := make([]*tour.Chromosome, count)
	for i := range out {
		best := population[rng.Intn(len(population))]
		for k := 1; k < size; k++ {
			c := population[rng.Intn(len(population))]
			if fitnessOf(c) > fitnessOf(best) {
				best = c
			}
		}
		out[i] = best
	}
	return out
}

// OrderedCrossover is OX1: each child keeps a segment of one parent and
// fills the remaining positions with the other parent's genes in order,
// starting after the segment and skipping genes the segment already holds.
// Duplicated genes are consumed one occurrence at a time, so parents that
// are not permutations still produce full-length children.
type OrderedCrossover struct{}

// Name implements Crossover
func (OrderedCrossover) Name() string { return "Ordered (OX1)" }

// Cross implements Crossover
func (OrderedCrossover) Cross(a, b *tour.Chromosome, rng Random) (*tour.Chromosome, *tour.Chromosome) {
	n := a.Length()
	if n < 2 {
		return a.Clone(), b.Clone()
	}
	start, end := keptSegment(n, rng)
	pa, pb := a.Genes(), b.Genes()
	c1 := a.Clone()
	c1.ReplaceGenes(0, orderedChild(pa, pb, start, end))
	c2 := b.Clone()
	c2.ReplaceGenes(0, orderedChild(pb, pa, start, end))
	return c1, c2
}

func orderedChild(keep, fill []int, start, end int) []int {
	n := len(keep)
	child := make([]int, n)
	pending := make(map[int]int, end-start)
	for i := start; i < end; i++ {
		child[i] = keep[i]
		pending[keep[i]]++
	}

	pos := end % n
	for k := 0; k < n && pos != start; k++ {
		v := fill[(end+k)%n]
		if pending[v] > 0 {
			pending[v]--
			continue
		}
		child[pos] = v
		pos = (pos + 1) % n
	}
	return child
}

// keptSegment returns the half-open range [start, end) a crossover child
// keeps from its parent: the inclusive span between two distinct cut points,
// so every position including the last can be kept.
func keptSegment(n int, rng Random) (int, int) {
	i, j := segment(n, rng)
	return i, j + 1
}

// segment returns two distinct positions 0 <= i < j < n.
func segment(n int, rng Random) (int, int) {
	i, j := rng.Intn(n), rng.Intn(n)
	for i == j {
		j = rng.Intn(n)
	}
	if i > j {
		i, j = j, i
	}
	return i, j
}

// ReverseSequenceMutation reverses the genes between two random positions.
type ReverseSequenceMutation struct{}

// Name implements Mutation
func (ReverseSequenceMutation) Name() string { return "Reverse Sequence (RSM)" }

// Mutate implements Mutation
func (ReverseSequenceMutation) Mutate(c *tour.Chromosome, probability float64, rng Random) {
	n := c.Length()
	if n < 2 || rng.Float64() >= probability {
		return
	}
	start, end := segment(n, rng)
	genes := c.Genes()
	for i, j := start, end; i < j; i, j = i+1, j-1 {
		genes[i], genes[j] = genes[j], genes[i]
	}
	c.ReplaceGenes(0, genes)
}

// SwapMutation exchanges two random genes.
type SwapMutation struct{}

// Name implements Mutation
func (SwapMutation) Name() string { return "Twors (swap)" }

// Mutate implements Mutation
func (SwapMutation) Mutate(c *tour.Chromosome, probability float64, rng Random) {
	n := c.Length()
	if n < 2 || rng.Float64() >= probability {
		return
	}
	i, j := segment(n, rng)
	a, b := c.Gene(i), c.Gene(j)
	c.ReplaceGene(i, b)
	c.ReplaceGene(j, a)
}

// UniformMutation replaces each gene with a freshly generated one with the
// given probability. Unlike the permutation-preserving operators it can
// introduce or remove duplicates.
type UniformMutation struct{}

// Name implements Mutation
func (UniformMutation) Name() string { return "Uniform" }

// Mutate implements Mutation
func (UniformMutation) Mutate(c *tour.Chromosome, probability float64, rng Random) {
	for i := 0; i < c.Length(); i++ {
		if rng.Float64() < probability {
			c.ReplaceGene(i, c.GenerateGene(i))
		}
	}
}
