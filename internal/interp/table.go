// Package interp provides immutable breakpoint tables evaluated by
// piecewise-linear interpolation with clamping at both ends.
package interp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

var (
	ErrLengthMismatch = errors.New("breakpoints and values differ in length")
	ErrTooFewPoints   = errors.New("table needs at least two points")
	ErrNotAscending   = errors.New("breakpoints must be strictly ascending")
	ErrNotFinite      = errors.New("table contains NaN or Inf")
)

// Table maps an independent variable (breakpoints) to a dependent one.
// The zero value is not usable; build tables with NewTable.
type Table struct {
	bp     []float64
	values []float64
	pl     interp.PiecewiseLinear
}

// NewTable validates and copies the given sequences.
func NewTable(breakpoints, values []float64) (*Table, error) {
	if len(breakpoints) != len(values) {
		return nil, fmt.Errorf("%w: %d breakpoints, %d values", ErrLengthMismatch, len(breakpoints), len(values))
	}
	if len(breakpoints) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(breakpoints))
	}
	for i := range breakpoints {
		if !finite(breakpoints[i]) || !finite(values[i]) {
			return nil, fmt.Errorf("%w at index %d", ErrNotFinite, i)
		}
		if i > 0 && breakpoints[i] <= breakpoints[i-1] {
			return nil, fmt.Errorf("%w: bp[%d]=%g follows bp[%d]=%g", ErrNotAscending, i, breakpoints[i], i-1, breakpoints[i-1])
		}
	}

	t := &Table{
		bp:     append([]float64(nil), breakpoints...),
		values: append([]float64(nil), values...),
	}
	if err := t.pl.Fit(t.bp, t.values); err != nil {
		return nil, fmt.Errorf("fit table: %w", err)
	}
	return t, nil
}

// MustTable is NewTable for static tables; it panics on invalid input.
func MustTable(breakpoints, values []float64) *Table {
	t, err := NewTable(breakpoints, values)
	if err != nil {
		panic(err)
	}
	return t
}

// At returns the interpolated value at x. Inputs at or below the first
// breakpoint return the first value, inputs at or above the last breakpoint
// return the last value.
func (t *Table) At(x float64) float64 {
	last := len(t.bp) - 1
	switch {
	case x <= t.bp[0]:
		return t.values[0]
	case x >= t.bp[last]:
		return t.values[last]
	}
	return t.pl.Predict(x)
}

// Len returns the number of points.
func (t *Table) Len() int { return len(t.bp) }

// Breakpoints returns a copy of the independent axis.
func (t *Table) Breakpoints() []float64 { return append([]float64(nil), t.bp...) }

// Values returns a copy of the dependent values.
func (t *Table) Values() []float64 { return append([]float64(nil), t.values...) }

// Domain returns the first and last breakpoints.
func (t *Table) Domain() (lo, hi float64) { return t.bp[0], t.bp[len(t.bp)-1] }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
