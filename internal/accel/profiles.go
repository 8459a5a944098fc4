package accel

import (
	"fmt"

	"github.com/banshee-data/accel.report/internal/interp"
	"github.com/banshee-data/accel.report/internal/personality"
)

// Limits is a longitudinal acceleration envelope in m/s².
type Limits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Shipped profile tables. Breakpoints are ego speed in m/s, values are
// acceleration in m/s². The min axis uses 0.01 m/s intervals to produce
// near-step transitions.
var (
	minBreakpoints = []float64{0., 2.0, 2.01, 15., 15.01, 20., 20.01, 40.}
	minEco         = []float64{-0.015, -0.015, -1.2, -1.2, -1.2, -1.2, -1.2, -1.2}
	minNormal      = []float64{-0.018, -0.018, -1.2, -1.2, -1.2, -1.2, -1.2, -1.2}
	minSport       = []float64{-0.020, -0.020, -1.2, -1.2, -1.2, -1.2, -1.2, -1.2}

	maxBreakpoints = []float64{0.0, 5., 10., 15., 20., 25., 40.}
	maxEco         = []float64{1.12, 1.11, 0.82, 0.72, 0.65, 0.4, 0.1}
	maxNormal      = []float64{1.13, 1.12, 0.83, 0.75, 0.7, 0.4, 0.1}
	maxSport       = []float64{1.2, 1.16, 0.9, 0.85, 0.8, 0.45, 0.1}
)

// Curve is the min/max table pair for one personality.
type Curve struct {
	Min *interp.Table
	Max *interp.Table
}

// CurveValues is the serialisable form of a Curve's dependent values.
type CurveValues struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// ProfileSet holds the curves for every non-stock personality. All min
// curves share one breakpoint axis and all max curves share another.
type ProfileSet struct {
	Normal Curve
	Eco    Curve
	Sport  Curve
}

// ProfileValues describes a ProfileSet as plain slices, the shape used by
// the JSON config and the HTTP API.
type ProfileValues struct {
	MinBreakpoints []float64   `json:"min_breakpoints"`
	MaxBreakpoints []float64   `json:"max_breakpoints"`
	Normal         CurveValues `json:"normal"`
	Eco            CurveValues `json:"eco"`
	Sport          CurveValues `json:"sport"`
}

var defaultProfiles = MustProfiles(DefaultProfileValues())

// DefaultProfileValues returns the shipped tables.
func DefaultProfileValues() ProfileValues {
	return ProfileValues{
		MinBreakpoints: cp(minBreakpoints),
		MaxBreakpoints: cp(maxBreakpoints),
		Normal:         CurveValues{Min: cp(minNormal), Max: cp(maxNormal)},
		Eco:            CurveValues{Min: cp(minEco), Max: cp(maxEco)},
		Sport:          CurveValues{Min: cp(minSport), Max: cp(maxSport)},
	}
}

func cp(s []float64) []float64 { return append([]float64(nil), s...) }

// DefaultProfiles returns the shipped profile set. Tables are immutable so
// the returned value may be shared.
func DefaultProfiles() *ProfileSet {
	return defaultProfiles
}

// NewProfiles builds and validates a profile set.
func NewProfiles(v ProfileValues) (*ProfileSet, error) {
	normal, err := newCurve(v.MinBreakpoints, v.MaxBreakpoints, v.Normal)
	if err != nil {
		return nil, fmt.Errorf("normal profile: %w", err)
	}
	eco, err := newCurve(v.MinBreakpoints, v.MaxBreakpoints, v.Eco)
	if err != nil {
		return nil, fmt.Errorf("eco profile: %w", err)
	}
	sport, err := newCurve(v.MinBreakpoints, v.MaxBreakpoints, v.Sport)
	if err != nil {
		return nil, fmt.Errorf("sport profile: %w", err)
	}
	return &ProfileSet{Normal: normal, Eco: eco, Sport: sport}, nil
}

// MustProfiles is NewProfiles for static tables.
func MustProfiles(v ProfileValues) *ProfileSet {
	ps, err := NewProfiles(v)
	if err != nil {
		panic(err)
	}
	return ps
}

func newCurve(minBP, maxBP []float64, cv CurveValues) (Curve, error) {
	lo, err := interp.NewTable(minBP, cv.Min)
	if err != nil {
		return Curve{}, fmt.Errorf("min curve: %w", err)
	}
	hi, err := interp.NewTable(maxBP, cv.Max)
	if err != nil {
		return Curve{}, fmt.Errorf("max curve: %w", err)
	}
	return Curve{Min: lo, Max: hi}, nil
}

// Curve returns the tables used for p. Normal is the fallback for every
// personality other than Eco and Sport.
func (ps *ProfileSet) Curve(p personality.Personality) Curve {
	switch p {
	case personality.Eco:
		return ps.Eco
	case personality.Sport:
		return ps.Sport
	default:
		return ps.Normal
	}
}

// Limits evaluates the profile for p at ego speed vEgo (m/s).
func (ps *ProfileSet) Limits(p personality.Personality, vEgo float64) Limits {
	c := ps.Curve(p)
	return Limits{
		Min: c.Min.At(vEgo),
		Max: c.Max.At(vEgo),
	}
}

// Values returns the set as plain slices.
func (ps *ProfileSet) Values() ProfileValues {
	return ProfileValues{
		MinBreakpoints: ps.Normal.Min.Breakpoints(),
		MaxBreakpoints: ps.Normal.Max.Breakpoints(),
		Normal:         CurveValues{Min: ps.Normal.Min.Values(), Max: ps.Normal.Max.Values()},
		Eco:            CurveValues{Min: ps.Eco.Min.Values(), Max: ps.Eco.Max.Values()},
		Sport:          CurveValues{Min: ps.Sport.Min.Values(), Max: ps.Sport.Max.Values()},
	}
}
