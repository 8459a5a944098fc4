// Package chart renders the acceleration profile curves as static PNG
// plots and interactive HTML pages.
package chart

import (
	"fmt"
	"image/color"
	"math"

	"github.com/banshee-data/accel.report/internal/accel"
	"github.com/banshee-data/accel.report/internal/personality"
)

// DefaultMaxSpeed covers the last breakpoint of both shipped tables.
const DefaultMaxSpeed = 40.0

// DefaultStep is the default sampling interval in m/s.
const DefaultStep = 0.25

// MaxSpeedLimit is the highest vMax a curve may be sampled to.
const MaxSpeedLimit = 200.0

// maxPoints bounds the number of samples per curve.
const maxPoints = 100_000

// CheckMaxSpeed reports whether vMax is a finite speed in (0, MaxSpeedLimit].
func CheckMaxSpeed(vMax float64) error {
	if math.IsNaN(vMax) || math.IsInf(vMax, 0) {
		return fmt.Errorf("max speed must be finite, got %g", vMax)
	}
	if vMax <= 0 {
		return fmt.Errorf("max speed must be positive, got %g", vMax)
	}
	if vMax > MaxSpeedLimit {
		return fmt.Errorf("max speed must be at most %g, got %g", MaxSpeedLimit, vMax)
	}
	return nil
}

// Point is one sample of a profile curve.
type Point struct {
	Speed float64 `json:"speed_mps"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Profiled lists the personalities that have their own curves.
var Profiled = []personality.Personality{personality.Eco, personality.Normal, personality.Sport}

var lineColors = map[personality.Personality]color.RGBA{
	personality.Eco:    {R: 0x35, G: 0xb7, B: 0x79, A: 0xff},
	personality.Normal: {R: 0x31, G: 0x68, B: 0x8e, A: 0xff},
	personality.Sport:  {R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// SampleCurves samples the min and max curves of p from 0 to vMax
// inclusive in increments of step. The last point always sits on vMax.
func SampleCurves(ps *accel.ProfileSet, p personality.Personality, vMax, step float64) ([]Point, error) {
	if err := CheckMaxSpeed(vMax); err != nil {
		return nil, err
	}
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %g", step)
	}
	if vMax/step >= maxPoints {
		return nil, fmt.Errorf("step %g is too small for max speed %g", step, vMax)
	}

	n := int(vMax/step) + 1
	pts := make([]Point, 0, n+1)
	for i := 0; i < n; i++ {
		v := float64(i) * step
		if v > vMax {
			break
		}
		pts = append(pts, point(ps, p, v))
	}
	if last := pts[len(pts)-1].Speed; last < vMax {
		pts = append(pts, point(ps, p, vMax))
	}
	return pts, nil
}

func point(ps *accel.ProfileSet, p personality.Personality, v float64) Point {
	l := ps.Limits(p, v)
	return Point{Speed: v, Min: l.Min, Max: l.Max}
}
