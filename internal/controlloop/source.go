package controlloop

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/accel.report/internal/interp"
)

// SpeedSource supplies the ego speed in m/s at a point in loop time.
type SpeedSource interface {
	SpeedAt(elapsed time.Duration) float64
}

// ConstantSpeed reports the same speed forever.
type ConstantSpeed float64

func (c ConstantSpeed) SpeedAt(time.Duration) float64 { return float64(c) }

// TraceSource replays a speed trace, interpolating linearly between
// samples and holding the first and last speeds outside the trace.
type TraceSource struct {
	table *interp.Table
}

// NewTraceSource builds a trace from sample times in seconds and speeds in m/s.
func NewTraceSource(seconds, speeds []float64) (*TraceSource, error) {
	table, err := interp.NewTable(seconds, speeds)
	if err != nil {
		return nil, fmt.Errorf("invalid speed trace: %w", err)
	}
	return &TraceSource{table: table}, nil
}

// ParseTrace parses a trace of the form "t:v,t:v,..." where t is seconds
// and v is m/s, for example "0:0,10:20,30:20".
func ParseTrace(s string) (*TraceSource, error) {
	var seconds, speeds []float64
	for i, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		ts, vs, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("trace point %d %q: expected t:v", i, pair)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
		if err != nil {
			return nil, fmt.Errorf("trace point %d: bad time: %w", i, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(vs), 64)
		if err != nil {
			return nil, fmt.Errorf("trace point %d: bad speed: %w", i, err)
		}
		seconds = append(seconds, t)
		speeds = append(speeds, v)
	}
	return NewTraceSource(seconds, speeds)
}

func (t *TraceSource) SpeedAt(elapsed time.Duration) float64 {
	return t.table.At(elapsed.Seconds())
}

// Duration is the time of the last trace point.
func (t *TraceSource) Duration() time.Duration {
	_, hi := t.table.Domain()
	return time.Duration(hi * float64(time.Second))
}
