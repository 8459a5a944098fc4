package interp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAt(t *testing.T) {
	tbl := MustTable([]float64{0, 5, 10}, []float64{1, 2, 0})

	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"below range clamps", -3, 1},
		{"first breakpoint", 0, 1},
		{"inside first segment", 2.5, 1.5},
		{"interior breakpoint", 5, 2},
		{"inside second segment", 7.5, 1},
		{"last breakpoint", 10, 0},
		{"above range clamps", 1e6, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tbl.At(tt.x), 1e-12)
		})
	}
}

func TestTableStepDiscontinuity(t *testing.T) {
	// A tiny interval emulates a step without breaking strict ordering.
	tbl := MustTable([]float64{0, 2.0, 2.01, 40}, []float64{-0.018, -0.018, -1.2, -1.2})

	assert.InDelta(t, -0.018, tbl.At(2.0), 1e-12)
	assert.InDelta(t, -1.2, tbl.At(2.01), 1e-12)
	assert.InDelta(t, (-0.018-1.2)/2, tbl.At(2.005), 1e-9)
}

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		name    string
		bp      []float64
		values  []float64
		wantErr error
	}{
		{"length mismatch", []float64{0, 1}, []float64{0}, ErrLengthMismatch},
		{"single point", []float64{0}, []float64{1}, ErrTooFewPoints},
		{"empty", nil, nil, ErrTooFewPoints},
		{"repeated breakpoint", []float64{0, 1, 1}, []float64{0, 1, 2}, ErrNotAscending},
		{"descending", []float64{0, 2, 1}, []float64{0, 1, 2}, ErrNotAscending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.bp, tt.values)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMustTablePanics(t *testing.T) {
	assert.Panics(t, func() { MustTable([]float64{1, 0}, []float64{0, 1}) })
}

func TestTableIsImmutable(t *testing.T) {
	bp := []float64{0, 10}
	values := []float64{0, 1}
	tbl, err := NewTable(bp, values)
	require.NoError(t, err)

	bp[1] = 100
	values[1] = 50
	assert.InDelta(t, 0.5, tbl.At(5), 1e-12)

	got := tbl.Breakpoints()
	got[0] = -1
	if diff := cmp.Diff([]float64{0, 10}, tbl.Breakpoints()); diff != "" {
		t.Errorf("Breakpoints() mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0, 1}, tbl.Values()); diff != "" {
		t.Errorf("Values() mutated (-want +got):\n%s", diff)
	}

	lo, hi := tbl.Domain()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 10.0, hi)
	assert.Equal(t, 2, tbl.Len())
}
