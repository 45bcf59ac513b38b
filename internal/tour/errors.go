package tour

import "errors"

// Configuration errors. They indicate a wiring bug between chromosome
// construction and the problem instance and must abort a run.
var (
	// ErrLengthMismatch is returned when a chromosome's length differs from
	// the number of points it is evaluated against.
	ErrLengthMismatch = errors.New("tour: chromosome length does not match point count")

	// ErrGeneOutOfRange is returned when a gene does not index a point.
	ErrGeneOutOfRange = errors.New("tour: gene value out of range")

	// ErrNoPoints is returned when an evaluator is built over an empty instance.
	ErrNoPoints = errors.New("tour: no points")

	// ErrNilFunc is returned when a distance or scaling function is missing.
	ErrNilFunc = errors.New("tour: nil strategy function")

	// ErrInvalidLength is returned for chromosome lengths below 1.
	ErrInvalidLength = errors.New("tour: chromosome length must be positive")
)
