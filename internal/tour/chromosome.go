package tour

import "fmt"

// Chromosome is a fixed-length sequence of genes, each gene an index into the
// point collection of one problem instance.
//
// The gene sequence is ideally a permutation of [0, n) but duplicates and
// missing indices are tolerated; the evaluator penalizes them instead of
// rejecting them. A Chromosome is not safe for concurrent use: each instance
// is owned by exactly one population slot at a time.
type Chromosome struct {
	genes []int
	rng   Rand

	// Written by the evaluator.
	distance    float64
	uniqueCount int

	// Written by the search engine.
	fitness    float64
	hasFitness bool
}

// NewChromosome creates a chromosome of length n whose genes are drawn
// independently and uniformly from [0, n). The genes are not guaranteed to be
// distinct. A nil rng selects the package default source.
func NewChromosome(n int, rng Rand) (*Chromosome, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	if rng == nil {
		rng = defaultRand
	}

	c := &Chromosome{
		genes: make([]int, n),
		rng:   rng,
	}
	for i := range c.genes {
		c.genes[i] = c.GenerateGene(i)
	}
	return c, nil
}

// NewChromosomeFromGenes creates a chromosome holding a copy of genes. The
// values are not validated; out-of-range genes surface when evaluated.
func NewChromosomeFromGenes(genes []int, rng Rand) (*Chromosome, error) {
	if len(genes) < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, len(genes))
	}
	if rng == nil {
		rng = defaultRand
	}
	return &Chromosome{
		genes: append([]int(nil), genes...),
		rng:   rng,
	}, nil
}

// NewSequentialChromosome creates the chromosome 0, 1, ..., n-1.
func NewSequentialChromosome(n int, rng Rand) (*Chromosome, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	genes := make([]int, n)
	for i := range genes {
		genes[i] = i
	}
	return NewChromosomeFromGenes(genes, rng)
}

// GenerateGene returns a fresh gene value in [0, n). The index is accepted to
// satisfy mutation operators that generate per position; the value does not
// depend on it or on the chromosome's current genes.
func (c *Chromosome) GenerateGene(index int) int {
	return c.rng.Intn(len(c.genes))
}

// CreateNew returns a new chromosome of the same length with random genes.
func (c *Chromosome) CreateNew() *Chromosome {
	// Length is at least 1 for any constructed chromosome.
	n, _ := NewChromosome(len(c.genes), c.rng)
	return n
}

// Clone returns a deep copy of c, including its evaluation annotations.
func (c *Chromosome) Clone() *Chromosome {
	return &Chromosome{
		genes:       append([]int(nil), c.genes...),
		rng:         c.rng,
		distance:    c.distance,
		uniqueCount: c.uniqueCount,
		fitness:     c.fitness,
		hasFitness:  c.hasFitness,
	}
}

// Length returns the number of genes.
func (c *Chromosome) Length() int {
	return len(c.genes)
}

// Gene returns the gene at position i.
func (c *Chromosome) Gene(i int) int {
	return c.genes[i]
}

// Genes returns a copy of the gene sequence.
func (c *Chromosome) Genes() []int {
	return append([]int(nil), c.genes...)
}

// ReplaceGene sets the gene at position i and invalidates the cached fitness.
func (c *Chromosome) ReplaceGene(i, value int) {
	c.genes[i] = value
	c.hasFitness = false
}

// ReplaceGenes overwrites genes starting at position start.
func (c *Chromosome) ReplaceGenes(start int, values []int) {
	copy(c.genes[start:], values)
	c.hasFitness = false
}

// Distance returns the tour length written by the last evaluation.
func (c *Chromosome) Distance() float64 {
	return c.distance
}

// UniqueCount returns the number of distinct points visited, as written by
// the last evaluation.
func (c *Chromosome) UniqueCount() int {
	return c.uniqueCount
}

// Fitness returns the cached fitness and whether it is current.
func (c *Chromosome) Fitness() (float64, bool) {
	return c.fitness, c.hasFitness
}

// SetFitness caches a fitness value computed for the current genes.
func (c *Chromosome) SetFitness(f float64) {
	c.fitness = f
	c.hasFitness = true
}

func (c *Chromosome) annotate(distance float64, unique int) {
	c.distance = distance
	c.uniqueCount = unique
}

// String formats the chromosome for logs.
func (c *Chromosome) String() string {
	return fmt.Sprintf("Chromosome{n=%d distance=%.4f unique=%d}", len(c.genes), c.distance, c.uniqueCount)
}
