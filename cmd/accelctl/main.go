package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/accel.report/internal/config"
	"github.com/banshee-data/accel.report/internal/monitoring"
	"github.com/banshee-data/accel.report/internal/params"
	"github.com/banshee-data/accel.report/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "limits":
		err = cmdLimits(rest, stdout, stderr)
	case "get":
		err = cmdGet(rest, stdout, stderr)
	case "set":
		err = cmdSet(rest, stdout, stderr)
	case "plot":
		err = cmdPlot(rest, stdout, stderr)
	case "sim":
		err = cmdSim(rest, stdout, stderr)
	case "serve":
		err = cmdServe(rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "accelctl %s\n", version.String())
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(stderr, "accelctl %s: %v\n", command, err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage error")

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `accelctl - acceleration personality tools

Usage: accelctl <command> [options]

Commands:
  limits     Look up the acceleration limits at a speed
  get        Show the stored acceleration personality
  set        Store an acceleration personality (stock, normal, eco, sport)
  plot       Render the profile curves as PNG or HTML
  sim        Run the control loop offline and print a CSV trace
  serve      Run the control loop with the HTTP API
  version    Show accelctl version
  help       Show this help message

Common Flags:
  --config <file>          Controller config (JSON)
  --params-backend <name>  memory, file or sqlite
  --params-path <path>     Params directory or sqlite file
  --debug                  Enable debug logging

Examples:
  accelctl set sport --params-path ./params
  accelctl limits --speed 45 --units mph --params-path ./params
  accelctl sim --trace 0:0,10:20,30:20 --switch 5:eco,15:sport
  accelctl plot --format html --out profiles.html`)
}

type commonFlags struct {
	configPath *string
	backend    *string
	path       *string
	debug      *bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &commonFlags{
		configPath: fs.String("config", "", "Controller config file (JSON)"),
		backend:    fs.String("params-backend", "", "Params backend: memory, file or sqlite"),
		path:       fs.String("params-path", "", "Params directory (file) or database path (sqlite)"),
		debug:      fs.Bool("debug", false, "Enable debug logging"),
	}
	return fs, c
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// load resolves the controller config and applies flag overrides.
func (c *commonFlags) load(stderr io.Writer) (*config.ControllerConfig, error) {
	monitoring.UseConsole(stderr, *c.debug)

	cfg := config.EmptyControllerConfig()
	if *c.configPath != "" {
		loaded, err := config.LoadControllerConfig(*c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if *c.backend != "" {
		cfg.ParamsBackend = c.backend
	}
	if *c.path != "" {
		cfg.ParamsPath = c.path
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.ControllerConfig) (params.Store, error) {
	store, err := params.Open(cfg.GetParamsBackend(), cfg.GetParamsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open params store: %w", err)
	}
	return store, nil
}
