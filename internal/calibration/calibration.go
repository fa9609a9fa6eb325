// Package calibration compares straight-line distance with walking distance
// from a set of sample locations to every nearby stop. The samples are used
// to tune the haversine fallback when walking estimates are unavailable.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/matrix"
	"walktimes.dev/internal/mbta"
	"walktimes.dev/internal/store"
)

const (
	DefaultRadius = 0.01
	DefaultPause  = 200 * time.Millisecond
)

type StopFinder interface {
	StopsNear(ctx context.Context, coord geo.Coordinate, radius float64) ([]mbta.Stop, error)
}

type Estimator interface {
	TravelTimes(ctx context.Context, origin geo.Coordinate, stops []matrix.Destination) (map[string]matrix.Estimate, error)
}

// Recorder persists a finished run. *store.Client implements it.
type Recorder interface {
	SaveCalibrationRun(ctx context.Context, samples []store.CalibrationSample) ([]store.CalibrationSample, error)
}

type Config struct {
	Stops     StopFinder
	Estimator Estimator
	// Recorder is optional; without it samples are only returned.
	Recorder Recorder
	Radius   float64
	// Pause is waited between locations. Zero disables it.
	Pause  time.Duration
	Logger *slog.Logger
}

type Runner struct {
	stops     StopFinder
	estimator Estimator
	recorder  Recorder
	radius    float64
	pause     time.Duration
	logger    *slog.Logger
}

// Result is the outcome of one run. Failed counts locations whose stop or
// walking lookup failed; those locations contribute no samples.
type Result struct {
	RunID     string                    `json:"runId"`
	Locations int                       `json:"locations"`
	Failed    int                       `json:"failed"`
	Samples   []store.CalibrationSample `json:"samples"`
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Stops == nil {
		return nil, errors.New("calibration: stop finder is required")
	}
	if cfg.Estimator == nil {
		return nil, errors.New("calibration: estimator is required")
	}
	r := &Runner{
		stops:     cfg.Stops,
		estimator: cfg.Estimator,
		recorder:  cfg.Recorder,
		radius:    cfg.Radius,
		pause:     cfg.Pause,
		logger:    cfg.Logger,
	}
	if r.radius <= 0 {
		r.radius = DefaultRadius
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Run samples every location in order. A failing location is logged and
// skipped; only cancellation or a failed save aborts the run.
func (r *Runner) Run(ctx context.Context, locations []geo.Coordinate) (*Result, error) {
	result := &Result{RunID: uuid.NewString(), Locations: len(locations)}
	logger := r.logger.With(slog.String("run_id", result.RunID))

	var samples []store.CalibrationSample
	for i, loc := range locations {
		if i > 0 {
			if err := r.wait(ctx); err != nil {
				return nil, err
			}
		}

		got, err := r.sample(ctx, result.RunID, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Failed++
			logging.LogError(logger, "calibration location failed", err,
				slog.Float64("lat", loc.Latitude),
				slog.Float64("lon", loc.Longitude))
			continue
		}
		samples = append(samples, got...)
	}

	if r.recorder != nil && len(samples) > 0 {
		saved, err := r.recorder.SaveCalibrationRun(ctx, samples)
		if err != nil {
			return nil, fmt.Errorf("saving calibration run: %w", err)
		}
		samples = saved
	}
	result.Samples = samples

	logging.LogOperation(logger, "calibration_run_completed",
		slog.Int("locations", result.Locations),
		slog.Int("failed", result.Failed),
		slog.Int("samples", len(samples)))
	return result, nil
}

func (r *Runner) sample(ctx context.Context, runID string, loc geo.Coordinate) ([]store.CalibrationSample, error) {
	loc = geo.Quantize(loc, CoordinatePlaces)

	stops, err := r.stops.StopsNear(ctx, loc, r.radius)
	if err != nil {
		return nil, fmt.Errorf("finding stops: %w", err)
	}
	if len(stops) == 0 {
		return nil, nil
	}

	destinations := make([]matrix.Destination, 0, len(stops))
	for _, s := range stops {
		destinations = append(destinations, matrix.Destination{
			StopID:     s.ID,
			Coordinate: geo.Quantize(s.Coordinate(), CoordinatePlaces),
		})
	}
	destinations = matrix.Dedupe(destinations)

	estimates, err := r.estimator.TravelTimes(ctx, loc, destinations)
	if err != nil {
		return nil, fmt.Errorf("walking estimates: %w", err)
	}

	samples := make([]store.CalibrationSample, 0, len(estimates))
	for _, d := range destinations {
		est, ok := estimates[d.StopID]
		if !ok {
			continue
		}
		samples = append(samples, store.CalibrationSample{
			RunID:          runID,
			SourceLat:      loc.Latitude,
			SourceLon:      loc.Longitude,
			StopID:         d.StopID,
			DestinationLat: d.Coordinate.Latitude,
			DestinationLon: d.Coordinate.Longitude,
			HaversineKm:    geo.DistanceKm(loc, d.Coordinate),
			WalkingMiles:   est.DistanceMiles,
			WalkingSeconds: est.DurationSeconds,
		})
	}
	return samples, nil
}

func (r *Runner) wait(ctx context.Context) error {
	if r.pause <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
