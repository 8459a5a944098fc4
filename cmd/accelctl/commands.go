package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/accel.report/internal/accel"
	"github.com/banshee-data/accel.report/internal/chart"
	"github.com/banshee-data/accel.report/internal/personality"
	"github.com/banshee-data/accel.report/internal/units"
)

func cmdLimits(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("limits", stderr)
	speed := fs.Float64("speed", 0, "Ego speed")
	unit := fs.String("units", units.MPS, "Speed units: "+units.GetValidUnitsString())
	name := fs.String("personality", "", "Personality to look up (defaults to the stored value)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	speedMPS, err := units.ToMPS(*speed, *unit)
	if err != nil {
		return err
	}
	sc, err := cfg.SelectorConfig()
	if err != nil {
		return err
	}

	var limits accel.Limits
	var p personality.Personality
	if *name != "" {
		p, err = personality.ParseName(*name)
		if err != nil {
			return err
		}
		limits = cfg.GetStockLimits()
		if p != personality.Stock {
			limits = sc.Profiles.Limits(p, speedMPS)
		}
	} else {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		sel := accel.NewSelector(store, sc)
		limits = sel.GetAccelLimits(speedMPS, cfg.GetStockLimits())
		p = sel.Personality()
	}

	fmt.Fprintf(stdout, "personality=%s speed=%.2f%s min=%.3f max=%.3f\n", p, *speed, *unit, limits.Min, limits.Max)
	return nil
}

func cmdGet(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("get", stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	raw, ok := store.Get(accel.ParamKey)
	if !ok {
		fmt.Fprintln(stdout, "stock (unset)")
		return nil
	}
	p, valid := personality.Parse(raw)
	if !valid {
		fmt.Fprintf(stdout, "invalid value %q (ignored by the controller)\n", strings.TrimSpace(raw))
		return nil
	}
	fmt.Fprintln(stdout, p)
	return nil
}

func cmdSet(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("set", stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Usage: accelctl set [options] <%s>\n", strings.ReplaceAll(personality.ValidNamesString(), ", ", "|"))
		return errUsage
	}
	p, err := personality.ParseName(fs.Arg(0))
	if err != nil {
		return err
	}

	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Put(accel.ParamKey, p.Encode()); err != nil {
		return fmt.Errorf("failed to store personality: %w", err)
	}
	fmt.Fprintf(stdout, "%s=%s (%s)\n", accel.ParamKey, p.Encode(), p)
	return nil
}

func cmdPlot(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("plot", stderr)
	format := fs.String("format", "", "Output format: png or html (defaults to the --out extension, else png)")
	out := fs.String("out", "", "Output file (defaults to stdout)")
	vMax := fs.Float64("vmax", chart.DefaultMaxSpeed, "Highest speed to plot in m/s")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	ps, err := cfg.GetProfiles()
	if err != nil {
		return err
	}

	f := strings.ToLower(*format)
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(*out)), ".")
	}
	switch f {
	case "":
		f = "png"
	case "htm":
		f = "html"
	}
	if f != "png" && f != "html" {
		return fmt.Errorf("unknown plot format %q: must be png or html", f)
	}
	if err := chart.CheckMaxSpeed(*vMax); err != nil {
		return err
	}

	w := stdout
	if *out != "" {
		file, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *out, err)
		}
		defer file.Close()
		w = file
	}

	if f == "html" {
		return chart.RenderHTML(w, ps, *vMax)
	}
	return chart.WritePNG(w, ps, *vMax)
}
