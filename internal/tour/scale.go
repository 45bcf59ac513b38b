package tour

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Scale names accepted by ScaleByName.
const (
	ScaleLinear  = "linear"
	ScaleInverse = "inverse"
	ScaleBBox    = "bbox"
	ScaleExpr    = "expr"
)

// LinearScale returns f(d, n) = 1 - d/(n*factor). With factor set to the
// expected mean edge length, a typical tour scores near zero and good tours
// approach one. It panics if factor is not positive.
func LinearScale(factor float64) ScaleFunc {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		panic(fmt.Sprintf("scale factor must be positive and finite, got %v", factor))
	}
	return func(d float64, n int) float64 {
		return 1 - d/(float64(n)*factor)
	}
}

// InverseScale returns f(d, n) = 1/(1+d).
func InverseScale() ScaleFunc {
	return func(d float64, _ int) float64 {
		return 1 / (1 + d)
	}
}

// BoundingBoxScale is a LinearScale whose factor is the diagonal of the
// points' bounding box, so instances of any coordinate range map into a
// comparable fitness band without hand tuning.
func BoundingBoxScale(points []Point) ScaleFunc {
	return LinearScale(boundingDiagonal(points))
}

func boundingDiagonal(points []Point) float64 {
	if len(points) == 0 {
		return 1
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	diag := math.Hypot(floats.Max(xs)-floats.Min(xs), floats.Max(ys)-floats.Min(ys))
	if diag <= 0 || math.IsNaN(diag) || math.IsInf(diag, 0) {
		return 1
	}
	return diag
}

// ScaleByName resolves a configured scaling function. points is only used
// by the bbox scale; expr only by the expr scale.
func ScaleByName(name string, factor float64, expr string, points []Point) (ScaleFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScaleLinear:
		if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
			return nil, fmt.Errorf("invalid scale factor %v", factor)
		}
		return LinearScale(factor), nil
	case ScaleInverse:
		return InverseScale(), nil
	case ScaleBBox:
		return BoundingBoxScale(points), nil
	case ScaleExpr:
		return ExprScale(expr)
	default:
		return nil, fmt.Errorf("unknown fitness scale %q", name)
	}
}
