package delta

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// linear is a piecewise linear predictor that remembers the abscissa range
// it was fitted on, so callers can refuse to extrapolate.
type linear struct {
	pl     interp.PiecewiseLinear
	lo, hi float64
}

// fitLinear fits xs/ys. gonum panics on unsorted input, so the precondition
// is checked here and reported as an error.
func fitLinear(xs, ys []float64) (*linear, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("interpolation input length mismatch: %d vs %d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("interpolation needs at least 2 points, got %d", len(xs))
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("interpolation abscissa not strictly increasing at index %d (%v after %v)", i, xs[i], xs[i-1])
		}
	}
	l := &linear{lo: xs[0], hi: xs[len(xs)-1]}
	if err := l.pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *linear) at(x float64) float64 {
	return l.pl.Predict(x)
}

func (l *linear) covers(x float64) bool {
	return x >= l.lo && x <= l.hi
}
