package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/accel.report/internal/accel"
	"github.com/banshee-data/accel.report/internal/controlloop"
	"github.com/banshee-data/accel.report/internal/params"
	"github.com/banshee-data/accel.report/internal/personality"
)

// switchEvent writes a personality to the simulated params store once the
// loop reaches the given time.
type switchEvent struct {
	at time.Duration
	p  personality.Personality
}

// parseSwitches parses "seconds:personality,..." into events sorted by time.
func parseSwitches(s string) ([]switchEvent, error) {
	var events []switchEvent
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		ts, name, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("switch %q: expected seconds:personality", item)
		}
		sec, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("switch %q: bad time", item)
		}
		p, err := personality.ParseName(name)
		if err != nil {
			return nil, fmt.Errorf("switch %q: %w", item, err)
		}
		events = append(events, switchEvent{at: time.Duration(sec * float64(time.Second)), p: p})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].at < events[j].at })
	return events, nil
}

// applySwitches writes every event due at elapsed and returns the rest.
func applySwitches(store params.Store, events []switchEvent, elapsed time.Duration) ([]switchEvent, error) {
	for len(events) > 0 && events[0].at <= elapsed {
		if err := store.Put(accel.ParamKey, events[0].p.Encode()); err != nil {
			return events, fmt.Errorf("failed to store personality at %v: %w", elapsed, err)
		}
		events = events[1:]
	}
	return events, nil
}

func newSpeedSource(speed float64, trace string) (controlloop.SpeedSource, error) {
	if trace == "" {
		return controlloop.ConstantSpeed(speed), nil
	}
	return controlloop.ParseTrace(trace)
}

// cmdSim runs the control loop against an in-memory params store so that
// simulated switches never touch the real one.
func cmdSim(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("sim", stderr)
	speed := fs.Float64("speed", 0, "Constant ego speed in m/s (ignored with --trace)")
	trace := fs.String("trace", "", "Speed trace as seconds:mps pairs, e.g. 0:0,10:20")
	duration := fs.Duration("duration", 0, "Simulated time (defaults to the trace length, else 10s)")
	initial := fs.String("personality", "", "Personality stored before the first frame")
	switches := fs.String("switch", "", "Personality changes as seconds:personality pairs, e.g. 5:eco,15:sport")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	src, err := newSpeedSource(*speed, *trace)
	if err != nil {
		return err
	}
	events, err := parseSwitches(*switches)
	if err != nil {
		return err
	}

	store := params.NewMemoryStore()
	if *initial != "" {
		p, err := personality.ParseName(*initial)
		if err != nil {
			return err
		}
		if err := store.Put(accel.ParamKey, p.Encode()); err != nil {
			return fmt.Errorf("failed to store personality: %w", err)
		}
	}

	total := *duration
	if total <= 0 {
		total = 10 * time.Second
		if ts, ok := src.(*controlloop.TraceSource); ok {
			total = ts.Duration()
		}
	}

	sc, err := cfg.SelectorConfig()
	if err != nil {
		return err
	}
	csvw, err := controlloop.NewCSVWriter(stdout)
	if err != nil {
		return err
	}
	period := cfg.GetModelPeriod()
	runner := controlloop.NewRunner(accel.NewSelector(store, sc), src, controlloop.Config{
		Period: period,
		Stock:  cfg.GetStockLimits(),
		Sink:   csvw.Write,
	})

	frames := int(total/period) + 1
	for i := 0; i < frames; i++ {
		elapsed := time.Duration(i) * period
		if events, err = applySwitches(store, events, elapsed); err != nil {
			return err
		}
		runner.Step()
	}
	return csvw.Flush()
}
