// Package accel selects longitudinal acceleration limits for the cruise
// planner according to the driver's acceleration personality.
//
// A Selector is owned by the control loop. Each tick the loop calls
// GetAccelLimits with the current ego speed and the stock limits it would
// otherwise use, then calls Update exactly once. The personality is re-read
// from the params store only on frames that are a multiple of the refresh
// interval, which keeps store lookups near 1 Hz regardless of loop rate.
//
// A Selector is not safe for concurrent use.
package accel

import (
	"github.com/banshee-data/accel.report/internal/monitoring"
	"github.com/banshee-data/accel.report/internal/personality"
)

// ParamKey is the params entry holding the personality ordinal.
const ParamKey = "AccelPersonality"

// DefaultRefreshFrames is the number of model frames per second at the
// planner's 50 ms model period.
const DefaultRefreshFrames = 20

// ParamReader reads a string-valued params entry. The boolean is false when
// the key has never been set.
type ParamReader interface {
	Get(key string) (string, bool)
}

// SelectorConfig configures a Selector. Zero fields take defaults.
type SelectorConfig struct {
	// RefreshFrames is the number of Update calls between params reads;
	// it should equal one second of control-loop ticks.
	RefreshFrames uint64
	// Profiles overrides the shipped tables.
	Profiles *ProfileSet
	// Key overrides ParamKey.
	Key string
}

// Selector computes acceleration limits for the active personality.
type Selector struct {
	params   ParamReader
	profiles *ProfileSet
	key      string
	every    uint64

	personality personality.Personality
	frame       uint64

	// lastRejected suppresses repeated log lines for the same bad value.
	lastRejected string
}

// NewSelector binds a Selector to a params reader. The personality starts
// as Stock and the frame counter at zero.
func NewSelector(params ParamReader, cfg SelectorConfig) *Selector {
	s := &Selector{
		params:      params,
		profiles:    cfg.Profiles,
		key:         cfg.Key,
		every:       cfg.RefreshFrames,
		personality: personality.Stock,
	}
	if s.profiles == nil {
		s.profiles = DefaultProfiles()
	}
	if s.key == "" {
		s.key = ParamKey
	}
	if s.every == 0 {
		s.every = DefaultRefreshFrames
	}
	return s
}

// refresh re-reads the personality on throttled frames. Missing, malformed
// and unknown values leave the current personality in place.
func (s *Selector) refresh() {
	if s.frame%s.every != 0 || s.params == nil {
		return
	}
	raw, ok := s.params.Get(s.key)
	if !ok {
		monitoring.Debugf("accel: refresh frame %d, %s unset, keeping %s", s.frame, s.key, s.personality)
		return
	}
	monitoring.Debugf("accel: refresh frame %d, %s=%q", s.frame, s.key, raw)
	p, ok := personality.Parse(raw)
	if !ok {
		if raw != s.lastRejected {
			monitoring.Logf("accel: ignoring %s=%q, keeping %s", s.key, raw, s.personality)
			s.lastRejected = raw
		}
		return
	}
	s.lastRejected = ""
	if p != s.personality {
		monitoring.Logf("accel: personality %s -> %s (frame %d)", s.personality, p, s.frame)
		s.personality = p
	}
}

func (s *Selector) profileLimits(vEgo float64) Limits {
	s.refresh()
	return s.profiles.Limits(s.personality, vEgo)
}

// GetAccelLimits returns the limits for ego speed vEgo (m/s). With the Stock
// personality defaults is returned unchanged.
func (s *Selector) GetAccelLimits(vEgo float64, defaults Limits) Limits {
	s.refresh()
	if s.personality == personality.Stock {
		return defaults
	}
	return s.profileLimits(vEgo)
}

// SetAndCheck overwrites the personality, bypassing the params store, and
// reports whether profile limits are now active. Unknown values are
// rejected and the current personality is kept.
func (s *Selector) SetAndCheck(p personality.Personality) bool {
	if !p.Valid() {
		monitoring.Logf("accel: rejecting invalid personality %d, keeping %s", int(p), s.personality)
		return s.personality != personality.Stock
	}
	s.personality = p
	return s.personality != personality.Stock
}

// IsEnabled is SetAndCheck under its planner name. Note that it mutates
// the selector.
func (s *Selector) IsEnabled(p personality.Personality) bool {
	return s.SetAndCheck(p)
}

// Update advances the frame counter. Call once per control-loop tick.
func (s *Selector) Update() {
	s.frame++
}

// Personality returns the active personality without refreshing it.
func (s *Selector) Personality() personality.Personality { return s.personality }

// Frame returns the number of Update calls so far, modulo 2^64.
func (s *Selector) Frame() uint64 { return s.frame }

// Profiles returns the tables in use.
func (s *Selector) Profiles() *ProfileSet { return s.profiles }
