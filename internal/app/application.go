package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"walktimes.dev/internal/appconf"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/gtfs"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/matrix"
	"walktimes.dev/internal/mbta"
	"walktimes.dev/internal/metrics"
	"walktimes.dev/internal/nearby"
	"walktimes.dev/internal/store"
)

// travelCacheSize bounds the in-memory walking estimate cache.
const travelCacheSize = 4096

// StopFinder lists stops near a coordinate. Both prediction sources implement it.
type StopFinder interface {
	StopsNear(ctx context.Context, coord geo.Coordinate, radius float64) ([]mbta.Stop, error)
}

// Application holds the dependencies for our HTTP handlers, helpers,
// command line tools and middleware.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	Metrics *metrics.Collector

	// Store is nil when no DSN is configured.
	Store       *store.Client
	MBTA        *mbta.Client
	GtfsManager *gtfs.Manager
	// Matrix is nil without a Mapbox token; boards then carry no walking estimates.
	Matrix     *matrix.Adapter
	MatrixAPI  *matrix.Client
	Nearby     *nearby.Service
	Tracker    *nearby.Tracker
	StopFinder StopFinder
}

// New wires every dependency described by cfg. Close releases them.
func New(ctx context.Context, cfg appconf.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewCollector(),
		Tracker: nearby.NewTracker(),
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}

	if cfg.StoreDSN != "" {
		client, err := store.NewClient(store.NewConfig(cfg.StoreDriver, cfg.StoreDSN, cfg.Env, cfg.Env == appconf.Development))
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		app.Store = client
	}

	app.MBTA = mbta.NewClient(mbta.Config{
		BaseURL:    cfg.MBTABaseURL,
		APIKey:     cfg.MBTAAPIKey,
		Radius:     cfg.MBTARadius,
		RouteTypes: cfg.MBTARouteTypes,
		HTTPClient: httpClient,
		Observer:   app.Metrics,
	})

	var source nearby.PredictionSource = app.MBTA
	app.StopFinder = app.MBTA
	if cfg.Source == appconf.SourceGTFS {
		manager, err := gtfs.InitGTFSManager(logging.WithLogger(ctx, logger), gtfs.Config{
			GtfsURL:                 cfg.GtfsURL,
			TripUpdatesURL:          cfg.TripUpdatesURL,
			VehiclePositionsURL:     cfg.VehiclePositionsURL,
			RealTimeAuthHeaderKey:   cfg.RealTimeAuthHeaderKey,
			RealTimeAuthHeaderValue: cfg.RealTimeAuthHeaderValue,
			RadiusMeters:            cfg.GtfsRadiusMeters,
			TimeZone:                cfg.Location,
			Verbose:                 cfg.Env == appconf.Development,
			HTTPClient:              &http.Client{Timeout: 60 * time.Second},
			Observer:                app.Metrics,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("loading gtfs: %w", err)
		}
		manager.PrintStatistics(logger)
		app.GtfsManager = manager
		source = manager
		app.StopFinder = manager
	}

	var travel nearby.TravelTimer
	if cfg.MapboxToken != "" {
		app.MatrixAPI = matrix.NewClient(matrix.ClientConfig{
			BaseURL:    cfg.MapboxBaseURL,
			Token:      cfg.MapboxToken,
			Profile:    cfg.MapboxProfile,
			HTTPClient: httpClient,
			Observer:   app.Metrics,
		})
		opts := []matrix.AdapterOption{
			matrix.WithConcurrency(cfg.MatrixConcurrency),
			matrix.WithCacheObserver(app.Metrics),
		}
		if cache := app.travelCache(); cache != nil {
			opts = append(opts, matrix.WithCache(cache))
		}
		app.Matrix = matrix.NewAdapter(app.MatrixAPI, opts...)
		travel = app.Matrix
	} else {
		logging.LogOperation(logger, "walking_estimates_disabled",
			slog.String("reason", "no mapbox token"))
	}

	app.Nearby = nearby.NewService(source, travel, nearby.Options{
		PredictionTTL: cfg.PredictionCacheTTL,
		TimeZone:      cfg.Location,
		Observer:      app.Metrics,
	})
	return app, nil
}

// travelCache layers memory over the store. It is nil when caching is disabled.
func (app *Application) travelCache() matrix.Cache {
	ttl := app.Config.TravelCacheTTL
	if ttl <= 0 {
		return nil
	}
	memory := matrix.NewMemoryCache(travelCacheSize, ttl)
	if app.Store == nil {
		return memory
	}
	return matrix.Tiered{memory, matrix.NewStoreCache(app.Store.Queries, ttl)}
}

// Close stops background work and closes the store.
func (app *Application) Close() {
	if app.GtfsManager != nil {
		app.GtfsManager.Shutdown()
	}
	if app.Store != nil {
		logging.SafeCloseWithLogging(app.Store, app.Logger, "store")
	}
}
