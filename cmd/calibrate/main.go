package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walktimes.dev/internal/app"
	"walktimes.dev/internal/appconf"
	"walktimes.dev/internal/calibration"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/matrix"
)

func main() {
	appconf.LoadDotEnv()

	var cfg appconf.Config
	finish := appconf.RegisterFlags(flag.CommandLine, &cfg)
	locationsFile := flag.String("locations", "", "File of \"lat, lon\" lines (defaults to the built-in Boston samples)")
	outFile := flag.String("out", "", "Write samples as JSON to this file instead of stdout")
	radius := flag.Float64("radius", calibration.DefaultRadius, "Stop search radius in degrees")
	pause := flag.Duration("pause", calibration.DefaultPause, "Pause between locations")
	flag.Parse()
	if err := finish(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	locations, err := loadLocations(*locationsFile)
	if err != nil {
		logging.LogError(logger, "loading locations", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logging.LogError(logger, "initializing", err)
		os.Exit(1)
	}
	defer application.Close()

	result, err := run(ctx, application, locations, *radius, *pause)
	if err != nil {
		logging.LogError(logger, "calibration failed", err)
		os.Exit(1)
	}

	if err := writeResult(*outFile, result, logger); err != nil {
		logging.LogError(logger, "writing samples", err)
		os.Exit(1)
	}
}

func loadLocations(path string) ([]geo.Coordinate, error) {
	if path == "" {
		return calibration.BostonLocations(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return calibration.ParseLocations(f)
}

func run(ctx context.Context, application *app.Application, locations []geo.Coordinate, radius float64, pause time.Duration) (*calibration.Result, error) {
	if application.MatrixAPI == nil {
		return nil, errors.New("a Mapbox token is required for calibration")
	}

	cfg := calibration.Config{
		Stops: application.StopFinder,
		// Calibration measures the live service, so the travel cache is bypassed.
		Estimator: matrix.NewAdapter(application.MatrixAPI, matrix.WithConcurrency(application.Config.MatrixConcurrency)),
		Radius:    radius,
		Pause:     pause,
		Logger:    application.Logger,
	}
	if application.Store != nil {
		cfg.Recorder = application.Store
	}

	runner, err := calibration.NewRunner(cfg)
	if err != nil {
		return nil, err
	}
	return runner.Run(logging.WithLogger(ctx, application.Logger), locations)
}

func writeResult(path string, result *calibration.Result, logger *slog.Logger) (err error) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer logging.HandleDeferredError(&err, f.Close, logger, "close_output")
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
