package dataset

import (
	"fmt"

	"github.com/copyleftdev/tourfit/internal/tour"
)

// Bounds is an axis-aligned rectangle.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// DefaultBounds is the 1000 x 1000 square random instances are drawn from.
var DefaultBounds = Bounds{MaxX: 1000, MaxY: 1000}

// Float64Source produces uniform values in [0, 1).
type Float64Source interface {
	Float64() float64
}

// RandomPoints draws n points uniformly inside b. Field values stay 0.
func RandomPoints(n int, b Bounds, rng Float64Source) ([]tour.Point, error) {
	if n < 1 {
		return nil, invalid("RandomPoints", fmt.Sprintf("point count must be positive, got %d", n))
	}
	if b.MaxX < b.MinX || b.MaxY < b.MinY {
		return nil, invalid("RandomPoints", fmt.Sprintf("inverted bounds %+v", b))
	}
	if rng == nil {
		rng = tour.NewRand(0)
	}

	points := make([]tour.Point, n)
	for i := range points {
		points[i] = tour.NewPoint(
			b.MinX+rng.Float64()*(b.MaxX-b.MinX),
			b.MinY+rng.Float64()*(b.MaxY-b.MinY),
		)
	}
	return points, nil
}
