package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/accel.report/internal/accel"
	"github.com/banshee-data/accel.report/internal/api"
	"github.com/banshee-data/accel.report/internal/controlloop"
	"github.com/banshee-data/accel.report/internal/db"
	"github.com/banshee-data/accel.report/internal/params"
)

func cmdServe(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("serve", stderr)
	listen := fs.String("listen", "", "Listen address (overrides the config)")
	speed := fs.Float64("speed", 0, "Constant ego speed in m/s fed to the control loop")
	trace := fs.String("trace", "", "Speed trace as seconds:mps pairs")
	dev := fs.Bool("dev", false, "Read sqlite migrations from internal/db/migrations on disk")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	db.DevMode = *dev

	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = listen
	}
	src, err := newSpeedSource(*speed, *trace)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sc, err := cfg.SelectorConfig()
	if err != nil {
		return err
	}
	runner := controlloop.NewRunner(accel.NewSelector(store, sc), src, controlloop.Config{
		Period: cfg.GetModelPeriod(),
		Stock:  cfg.GetStockLimits(),
	})
	log.Printf("run %s: backend=%s path=%s period=%s refresh=%d frames",
		runner.RunID(), cfg.GetParamsBackend(), cfg.GetParamsPath(), cfg.GetModelPeriod(), sc.RefreshFrames)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// control loop goroutine; it is the only user of the selector
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("control loop error: %v", err)
		}
	}()

	mux := api.NewServer(store, sc.Profiles, cfg.GetStockLimits(), runner.Latest).ServeMux()
	if sqlStore, ok := store.(*params.SQLStore); ok {
		sqlStore.DB().AttachAdminRoutes(mux)
	}

	server := &http.Server{
		Addr:    cfg.GetListen(),
		Handler: api.LoggingMiddleware(mux),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("failed to start server: %w", err)
		}
		stop()
	}

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	wg.Wait()
	if runErr == nil {
		fmt.Fprintln(stdout, "Graceful shutdown complete")
	}
	return runErr
}
