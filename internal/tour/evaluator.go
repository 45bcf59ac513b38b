package tour

import "fmt"

// DistanceFunc returns the non-negative cost of travelling between two
// points. It must be deterministic and safe for concurrent use.
type DistanceFunc func(a, b Point) float64

// ScaleFunc maps a raw tour length over pointCount points to a fitness where
// higher is better. It must be safe for concurrent use.
type ScaleFunc func(totalDistance float64, pointCount int) float64

// Fitness scores chromosomes for a search engine.
type Fitness interface {
	Evaluate(c *Chromosome) (float64, error)
}

// Result is the outcome of scoring one gene sequence.
type Result struct {
	Fitness     float64 `json:"fitness"`
	Distance    float64 `json:"distance"`
	UniqueCount int     `json:"unique_count"`
}

// Evaluator scores closed tours over a fixed point collection.
//
// It holds no mutable state; Evaluate may be called concurrently as long as
// each call receives a distinct chromosome and the supplied functions are
// themselves safe for concurrent use.
type Evaluator struct {
	points   []Point
	distance DistanceFunc
	scale    ScaleFunc
}

var _ Fitness = (*Evaluator)(nil)

// NewEvaluator binds a point collection to a distance and a scaling function.
// The points are copied.
func NewEvaluator(points []Point, distance DistanceFunc, scale ScaleFunc) (*Evaluator, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	if distance == nil {
		return nil, fmt.Errorf("%w: distance", ErrNilFunc)
	}
	if scale == nil {
		return nil, fmt.Errorf("%w: scale", ErrNilFunc)
	}
	return &Evaluator{
		points:   append([]Point(nil), points...),
		distance: distance,
		scale:    scale,
	}, nil
}

// PointCount returns the size of the problem instance.
func (e *Evaluator) PointCount() int {
	return len(e.points)
}

// Points returns a copy of the point collection.
func (e *Evaluator) Points() []Point {
	return append([]Point(nil), e.points...)
}

// Evaluate scores c and writes the tour distance and the distinct point count
// back onto it. Duplicate or missing indices are penalized, never rejected.
// A length mismatch or an out-of-range gene is returned as an error and
// leaves c untouched.
func (e *Evaluator) Evaluate(c *Chromosome) (float64, error) {
	if c == nil {
		return 0, fmt.Errorf("%w: nil chromosome", ErrLengthMismatch)
	}
	res, err := e.Score(c.genes)
	if err != nil {
		return 0, err
	}
	c.annotate(res.Distance, res.UniqueCount)
	return res.Fitness, nil
}

// Score computes fitness, distance and distinct count for genes without
// mutating anything.
func (e *Evaluator) Score(genes []int) (Result, error) {
	n := len(e.points)
	if len(genes) != n {
		return Result{}, fmt.Errorf("%w: %d genes, %d points", ErrLengthMismatch, len(genes), n)
	}
	for i, g := range genes {
		if g < 0 || g >= n {
			return Result{}, fmt.Errorf("%w: gene %d at position %d, want [0, %d)", ErrGeneOutOfRange, g, i, n)
		}
	}

	// The walk starts on genes[0] and the loop visits genes[0] again, so the
	// first edge is genes[0]->genes[0]. The seen set therefore covers the
	// seed plus every gene.
	seen := make([]bool, n)
	prev := genes[0]
	seen[prev] = true
	unique := 1

	total := 0.0
	for _, curr := range genes {
		total += e.distance(e.points[curr], e.points[prev])
		prev = curr
		if !seen[curr] {
			seen[curr] = true
			unique++
		}
	}
	total += e.distance(e.points[prev], e.points[genes[0]])

	fitness := e.scale(total, n)
	fitness = penalize(fitness, n-unique)
	fitness = clampFitness(fitness)

	return Result{
		Fitness:     fitness,
		Distance:    total,
		UniqueCount: unique,
	}, nil
}
