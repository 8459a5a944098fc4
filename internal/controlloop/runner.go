// Package controlloop drives an accel.Selector at the model period the way
// the longitudinal planner does: one limits query and one frame advance
// per tick.
package controlloop

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/accel.report/internal/accel"
	"github.com/banshee-data/accel.report/internal/monitoring"
	"github.com/banshee-data/accel.report/internal/personality"
	"github.com/banshee-data/accel.report/internal/timeutil"
)

// Sample is the outcome of one control-loop tick.
type Sample struct {
	RunID       string                  `json:"run_id"`
	Frame       uint64                  `json:"frame"`
	Elapsed     time.Duration           `json:"elapsed_ns"`
	Speed       float64                 `json:"speed_mps"`
	Personality personality.Personality `json:"personality"`
	Limits      accel.Limits            `json:"limits"`
	Time        time.Time               `json:"time"`
}

// Config configures a Runner.
type Config struct {
	// Period is the model period. Zero means 50ms.
	Period time.Duration
	// Stock is passed to GetAccelLimits as the fallback limits.
	Stock accel.Limits
	// Clock paces Run. Nil means the real clock.
	Clock timeutil.Clock
	// Sink, if set, receives every sample from the stepping goroutine.
	Sink func(Sample)
}

// Runner owns a Selector and steps it. Step and Run must be called from a
// single goroutine; Latest may be called from any goroutine.
type Runner struct {
	sel    *accel.Selector
	src    SpeedSource
	cfg    Config
	runID  uuid.UUID
	clock  timeutil.Clock
	period time.Duration
	steps  uint64

	mu     sync.RWMutex
	latest Sample
	ok     bool
}

// NewRunner creates a Runner with a fresh RunID.
func NewRunner(sel *accel.Selector, src SpeedSource, cfg Config) *Runner {
	r := &Runner{
		sel:    sel,
		src:    src,
		cfg:    cfg,
		runID:  uuid.New(),
		clock:  cfg.Clock,
		period: cfg.Period,
	}
	if r.clock == nil {
		r.clock = timeutil.RealClock{}
	}
	if r.period <= 0 {
		r.period = 50 * time.Millisecond
	}
	return r
}

// RunID identifies this runner in logs and samples.
func (r *Runner) RunID() uuid.UUID { return r.runID }

// Period returns the tick period.
func (r *Runner) Period() time.Duration { return r.period }

// Step runs one tick. Elapsed time is derived from the step count so that
// replays are deterministic.
func (r *Runner) Step() Sample {
	elapsed := time.Duration(r.steps) * r.period
	speed := r.src.SpeedAt(elapsed)
	frame := r.sel.Frame()
	limits := r.sel.GetAccelLimits(speed, r.cfg.Stock)
	r.sel.Update()
	r.steps++

	s := Sample{
		RunID:       r.runID.String(),
		Frame:       frame,
		Elapsed:     elapsed,
		Speed:       speed,
		Personality: r.sel.Personality(),
		Limits:      limits,
		Time:        r.clock.Now(),
	}

	r.mu.Lock()
	r.latest = s
	r.ok = true
	r.mu.Unlock()

	if r.cfg.Sink != nil {
		r.cfg.Sink(s)
	}
	return s
}

// StepN runs n ticks back to back without waiting on the clock.
func (r *Runner) StepN(n int) []Sample {
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.Step())
	}
	return out
}

// Run steps once per period until ctx is done and returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.period)
	defer ticker.Stop()

	monitoring.Logf("control loop %s started: period=%s", r.runID, r.period)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("control loop %s stopped after %d frames", r.runID, r.steps)
			return ctx.Err()
		case <-ticker.C():
			r.Step()
		}
	}
}

// Latest returns the most recent sample. The boolean is false before the
// first tick.
func (r *Runner) Latest() (Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.ok
}
