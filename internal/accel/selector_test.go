package accel

import (
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/accel.report/internal/monitoring"
	"github.com/banshee-data/accel.report/internal/personality"
)

// fakeParams is an in-memory ParamReader that counts reads.
type fakeParams struct {
	values map[string]string
	reads  int
}

func newFakeParams() *fakeParams {
	return &fakeParams{values: make(map[string]string)}
}

func (f *fakeParams) Get(key string) (string, bool) {
	f.reads++
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeParams) set(v string) { f.values[ParamKey] = v }

func quietLogs(t *testing.T) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })
}

var stockLimits = Limits{Min: -3.5, Max: 2.0}

func TestNewSelectorDefaults(t *testing.T) {
	s := NewSelector(newFakeParams(), SelectorConfig{})
	assert.Equal(t, personality.Stock, s.Personality())
	assert.Equal(t, uint64(0), s.Frame())
	assert.Same(t, DefaultProfiles(), s.Profiles())
}

func TestStockPassThrough(t *testing.T) {
	quietLogs(t)
	p := newFakeParams()
	s := NewSelector(p, SelectorConfig{RefreshFrames: 20})

	for _, v := range []float64{-1, 0, 2.0, 13.3, 40, 120} {
		for _, d := range []Limits{stockLimits, {Min: 0, Max: 0}, {Min: -10, Max: 10}} {
			assert.Equal(t, d, s.GetAccelLimits(v, d))
			s.Update()
		}
	}

	p.set("0")
	assert.Equal(t, stockLimits, s.GetAccelLimits(5, stockLimits))
}

func TestNormalExample(t *testing.T) {
	p := newFakeParams()
	p.set("1")
	s := NewSelector(p, SelectorConfig{RefreshFrames: 20})

	got := s.GetAccelLimits(2.0, stockLimits)
	assert.Equal(t, personality.Normal, s.Personality())
	assert.InDelta(t, -0.018, got.Min, 1e-12)
	assert.InDelta(t, 1.126, got.Max, 1e-12)
}

func TestProfileSelection(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		v    float64
		want Limits
	}{
		{"eco low speed", "2", 0, Limits{Min: -0.015, Max: 1.12}},
		{"sport low speed", "3", 0, Limits{Min: -0.020, Max: 1.2}},
		{"normal mid table", "1", 10, Limits{Min: -1.2, Max: 0.83}},
		{"sport mid segment", "3", 22.5, Limits{Min: -1.2, Max: 0.625}},
		{"eco beyond table", "2", 55, Limits{Min: -1.2, Max: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeParams()
			p.set(tt.raw)
			s := NewSelector(p, SelectorConfig{})

			got := s.GetAccelLimits(tt.v, stockLimits)
			assert.InDelta(t, tt.want.Min, got.Min, 1e-9)
			assert.InDelta(t, tt.want.Max, got.Max, 1e-9)
		})
	}
}

func TestInvalidParamsIgnored(t *testing.T) {
	quietLogs(t)

	for _, raw := range []string{"abc", "99", "-1", "", "2.5"} {
		t.Run(raw, func(t *testing.T) {
			p := newFakeParams()
			p.set("3")
			s := NewSelector(p, SelectorConfig{RefreshFrames: 4})
			s.GetAccelLimits(0, stockLimits)
			require.Equal(t, personality.Sport, s.Personality())

			p.set(raw)
			for i := 0; i < 12; i++ {
				s.Update()
				s.GetAccelLimits(0, stockLimits)
			}
			assert.Equal(t, personality.Sport, s.Personality())
		})
	}
}

func TestAbsentKeyKeepsPersonality(t *testing.T) {
	p := newFakeParams()
	s := NewSelector(p, SelectorConfig{RefreshFrames: 1})
	s.SetAndCheck(personality.Eco)

	for i := 0; i < 5; i++ {
		s.GetAccelLimits(0, stockLimits)
		s.Update()
	}
	assert.Equal(t, personality.Eco, s.Personality())
	assert.Positive(t, p.reads)
}

func TestPollingThrottle(t *testing.T) {
	quietLogs(t)
	const n = 20
	p := newFakeParams()
	p.set("1")
	s := NewSelector(p, SelectorConfig{RefreshFrames: n})

	// Call 1 happens on frame 0 and reads Normal.
	s.GetAccelLimits(0, stockLimits)
	require.Equal(t, personality.Normal, s.Personality())
	p.set("3")

	for call := 2; call <= 2*n-1; call++ {
		s.Update()
		s.GetAccelLimits(0, stockLimits)
		frame := s.Frame()
		if frame < n {
			assert.Equal(t, personality.Normal, s.Personality(), "frame %d", frame)
		} else {
			assert.Equal(t, personality.Sport, s.Personality(), "frame %d", frame)
		}
	}
	assert.Equal(t, uint64(2*n-2), s.Frame())
}

func TestReadsAreThrottled(t *testing.T) {
	const n = 10
	p := newFakeParams()
	s := NewSelector(p, SelectorConfig{RefreshFrames: n})

	for i := 0; i < 3*n; i++ {
		s.GetAccelLimits(0, stockLimits)
		s.Update()
	}
	// Stock stays stock (key absent), so exactly one read per refresh frame.
	assert.Equal(t, 3, p.reads)
}

func TestRefreshFramesLogAtDebug(t *testing.T) {
	quietLogs(t)
	var lines []string
	original := monitoring.Debugf
	monitoring.Debugf = func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	}
	t.Cleanup(func() { monitoring.Debugf = original })

	const n = 10
	p := newFakeParams()
	s := NewSelector(p, SelectorConfig{RefreshFrames: n})
	for i := 0; i < 3*n; i++ {
		s.GetAccelLimits(0, stockLimits)
		s.Update()
	}
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "refresh frame 0")
	assert.Contains(t, lines[2], "refresh frame 20")
}

func TestRepeatedCallsWithinFrameAreIdempotent(t *testing.T) {
	p := newFakeParams()
	p.set("2")
	s := NewSelector(p, SelectorConfig{})

	first := s.GetAccelLimits(7.5, stockLimits)
	second := s.GetAccelLimits(7.5, stockLimits)
	assert.Equal(t, first, second)
}

func TestIsEnabledSideEffect(t *testing.T) {
	s := NewSelector(newFakeParams(), SelectorConfig{})

	assert.True(t, s.IsEnabled(personality.Sport))
	assert.Equal(t, personality.Sport, s.Personality())

	assert.False(t, s.IsEnabled(personality.Stock))
	assert.Equal(t, personality.Stock, s.Personality())
}

func TestSetAndCheckRejectsUnknown(t *testing.T) {
	quietLogs(t)
	s := NewSelector(newFakeParams(), SelectorConfig{})
	require.True(t, s.SetAndCheck(personality.Eco))

	assert.True(t, s.SetAndCheck(personality.Personality(7)))
	assert.Equal(t, personality.Eco, s.Personality())
}

func TestSetAndCheckIsOverriddenByParams(t *testing.T) {
	p := newFakeParams()
	p.set("2")
	s := NewSelector(p, SelectorConfig{RefreshFrames: 5})

	s.SetAndCheck(personality.Sport)
	for i := 0; i < 4; i++ {
		s.Update()
		s.GetAccelLimits(0, stockLimits)
		assert.Equal(t, personality.Sport, s.Personality())
	}
	s.Update()
	s.GetAccelLimits(0, stockLimits)
	assert.Equal(t, personality.Eco, s.Personality())
}

func TestFrameCounterWraps(t *testing.T) {
	p := newFakeParams()
	p.set("3")
	s := NewSelector(p, SelectorConfig{RefreshFrames: 4})
	s.frame = ^uint64(0)

	s.Update()
	assert.Equal(t, uint64(0), s.Frame())
	s.GetAccelLimits(0, stockLimits)
	assert.Equal(t, personality.Sport, s.Personality())
}

func TestNilParamsReader(t *testing.T) {
	s := NewSelector(nil, SelectorConfig{})
	assert.Equal(t, stockLimits, s.GetAccelLimits(3, stockLimits))
	s.SetAndCheck(personality.Normal)
	assert.InDelta(t, 1.126, s.GetAccelLimits(2, stockLimits).Max, 1e-12)
}

func TestCustomKey(t *testing.T) {
	p := newFakeParams()
	p.values["LongitudinalPersonality"] = "2"
	s := NewSelector(p, SelectorConfig{Key: "LongitudinalPersonality"})
	s.GetAccelLimits(0, stockLimits)
	assert.Equal(t, personality.Eco, s.Personality())
}
