package tour

// Point is a location in a problem instance. FieldX and FieldY carry auxiliary
// scalars (for example an interpolated potential field) whose meaning is
// defined by the distance function in use.
//
// A Point's identity is its index in the owning slice.
type Point struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	FieldX float64 `json:"field_x"`
	FieldY float64 `json:"field_y"`
}

// NewPoint creates a point with zero auxiliary fields.
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}
