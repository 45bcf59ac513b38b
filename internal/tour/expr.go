package tour

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/PaesslerAG/gval"
)

// ErrBadExpression is returned when a scaling expression fails to compile or
// does not evaluate to a number.
var ErrBadExpression = errors.New("tour: invalid scale expression")

var scaleLanguage = gval.NewLanguage(
	gval.Arithmetic(),
	gval.Function("sqrt", math.Sqrt),
	gval.Function("log", math.Log),
	gval.Function("exp", math.Exp),
	gval.Function("abs", math.Abs),
)

// ExprScale compiles an arithmetic expression over the variables d (alias
// distance) and n (alias points) into a ScaleFunc, for example
//
//	1 - d / (n * 2.4)
//
// A runtime evaluation failure yields NaN, which the evaluator clamps to 0.
func ExprScale(expr string) (ScaleFunc, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadExpression)
	}
	eval, err := scaleLanguage.NewEvaluable(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadExpression, err)
	}

	fn := func(d float64, n int) float64 {
		v, err := eval.EvalFloat64(context.Background(), exprParams(d, n))
		if err != nil {
			return math.NaN()
		}
		return v
	}

	// Probe once so unknown variables and non-numeric results fail at
	// configuration time.
	if _, err := eval.EvalFloat64(context.Background(), exprParams(1, 1)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadExpression, err)
	}
	return fn, nil
}

func exprParams(d float64, n int) map[string]interface{} {
	return map[string]interface{}{
		"d":        d,
		"distance": d,
		"n":        float64(n),
		"points":   float64(n),
	}
}
