package tour

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Metric names accepted by MetricByName.
const (
	MetricEuclidean = "euclidean"
	MetricManhattan = "manhattan"
	MetricField     = "field"
	MetricHaversine = "haversine"
)

// Euclidean is the straight-line distance between two points.
func Euclidean(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Manhattan is the L1 distance between two points.
func Manhattan(a, b Point) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

// Haversine treats X as longitude and Y as latitude in degrees and returns
// the great-circle distance in metres.
func Haversine(a, b Point) float64 {
	return geo.DistanceHaversine(orb.Point{a.X, a.Y}, orb.Point{b.X, b.Y})
}

// FieldWeighted returns a distance that stretches the Euclidean length of an
// edge by the mean field magnitude at its endpoints:
//
//	d = |ab| * (1 + weight*(|field(a)| + |field(b)|)/2)
//
// It panics if weight is negative or not finite.
func FieldWeighted(weight float64) DistanceFunc {
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		panic(fmt.Sprintf("field weight must be finite and non-negative, got %v", weight))
	}
	return func(a, b Point) float64 {
		fa := math.Hypot(a.FieldX, a.FieldY)
		fb := math.Hypot(b.FieldX, b.FieldY)
		return Euclidean(a, b) * (1 + weight*(fa+fb)/2)
	}
}

// MetricByName resolves a configured metric name.
func MetricByName(name string, fieldWeight float64) (DistanceFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MetricEuclidean:
		return Euclidean, nil
	case MetricManhattan:
		return Manhattan, nil
	case MetricHaversine:
		return Haversine, nil
	case MetricField:
		if fieldWeight < 0 || math.IsNaN(fieldWeight) || math.IsInf(fieldWeight, 0) {
			return nil, fmt.Errorf("invalid field weight %v", fieldWeight)
		}
		return FieldWeighted(fieldWeight), nil
	default:
		return nil, fmt.Errorf("unknown distance metric %q", name)
	}
}
