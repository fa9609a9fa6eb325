package appconf

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
)

type SourceKind string

const (
	SourceMBTA SourceKind = "mbta"
	SourceGTFS SourceKind = "gtfs"
)

// Config holds every setting shared by the server and the command line tools.
type Config struct {
	Port      int
	Env       Environment
	ApiKeys   []string
	RateLimit int
	LogLevel  slog.Level

	Source SourceKind

	MBTABaseURL    string
	MBTAAPIKey     string
	MBTARadius     float64
	MBTARouteTypes string

	MapboxBaseURL     string
	MapboxToken       string
	MapboxProfile     string
	MatrixConcurrency int

	GtfsURL                 string
	TripUpdatesURL          string
	VehiclePositionsURL     string
	RealTimeAuthHeaderKey   string
	RealTimeAuthHeaderValue string
	GtfsRadiusMeters        float64

	StoreDriver string
	StoreDSN    string

	TravelCacheTTL     time.Duration
	PredictionCacheTTL time.Duration

	DefaultLocation *geo.Coordinate
	Location        *time.Location
	CORSOrigins     []string
	MetricsEnabled  bool

	NATSURL       string
	SubjectPrefix string
}

// flagValues carries the raw flag strings that need parsing after flag.Parse.
type flagValues struct {
	env         string
	logLevel    string
	apiKeys     string
	source      string
	defaultLoc  string
	tz          string
	corsOrigins string
}

// LoadDotEnv reads .env into the process environment; a missing file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// RegisterFlags binds the shared flags to fs, using environment variables as defaults.
// The returned function must be called after fs.Parse to finish building the Config.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) func() error {
	var raw flagValues

	fs.IntVar(&cfg.Port, "port", envInt("PORT", 4000), "API server port")
	fs.StringVar(&raw.env, "env", envOr("APP_ENV", "development"), "Environment (development|test|production)")
	fs.StringVar(&raw.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	fs.StringVar(&raw.apiKeys, "api-keys", envOr("API_KEYS", "test"), "Comma Separated API Keys (test, etc)")
	fs.IntVar(&cfg.RateLimit, "rate-limit", envInt("RATE_LIMIT", 100), "Requests per second per API key")

	fs.StringVar(&raw.source, "source", envOr("PREDICTION_SOURCE", string(SourceMBTA)), "Prediction source (mbta|gtfs)")

	fs.StringVar(&cfg.MBTABaseURL, "mbta-url", envOr("MBTA_BASE_URL", "https://api-v3.mbta.com"), "MBTA v3 API base URL")
	fs.StringVar(&cfg.MBTAAPIKey, "mbta-api-key", envFirst("MBTA_API_KEY", "VITE_MBTA_API_KEY"), "MBTA v3 API key")
	fs.Float64Var(&cfg.MBTARadius, "mbta-radius", envFloat("MBTA_RADIUS", 0.005), "Prediction search radius in degrees")
	fs.StringVar(&cfg.MBTARouteTypes, "mbta-route-types", envOr("MBTA_ROUTE_TYPES", "0,1,2,3"), "Route type filter")

	fs.StringVar(&cfg.MapboxBaseURL, "mapbox-url", envOr("MAPBOX_BASE_URL", "https://api.mapbox.com"), "Mapbox API base URL")
	fs.StringVar(&cfg.MapboxToken, "mapbox-token", envFirst("MAPBOX_TOKEN", "VITE_MAPBOX_TOKEN"), "Mapbox access token")
	fs.StringVar(&cfg.MapboxProfile, "mapbox-profile", envOr("MAPBOX_PROFILE", "mapbox/walking"), "Directions matrix profile")
	fs.IntVar(&cfg.MatrixConcurrency, "matrix-concurrency", envInt("MATRIX_CONCURRENCY", 4), "Concurrent matrix batch requests")

	fs.StringVar(&cfg.GtfsURL, "gtfs-url", envOr("GTFS_URL", "https://cdn.mbta.com/MBTA_GTFS.zip"), "URL or path of a static GTFS zip file")
	fs.StringVar(&cfg.TripUpdatesURL, "trip-updates-url", envOr("TRIP_UPDATES_URL", "https://cdn.mbta.com/realtime/TripUpdates.pb"), "GTFS-RT trip updates URL")
	fs.StringVar(&cfg.VehiclePositionsURL, "vehicle-positions-url", envOr("VEHICLE_POSITIONS_URL", "https://cdn.mbta.com/realtime/VehiclePositions.pb"), "GTFS-RT vehicle positions URL")
	fs.StringVar(&cfg.RealTimeAuthHeaderKey, "realtime-auth-header-name", os.Getenv("REALTIME_AUTH_HEADER_NAME"), "Optional header name for GTFS-RT requests")
	fs.StringVar(&cfg.RealTimeAuthHeaderValue, "realtime-auth-header-value", os.Getenv("REALTIME_AUTH_HEADER_VALUE"), "Optional header value for GTFS-RT requests")
	fs.Float64Var(&cfg.GtfsRadiusMeters, "gtfs-radius", envFloat("GTFS_RADIUS_METERS", 550), "GTFS source search radius in meters")

	fs.StringVar(&cfg.StoreDriver, "store-driver", envOr("STORE_DRIVER", "sqlite"), "Store driver (sqlite|pgx)")
	fs.StringVar(&cfg.StoreDSN, "store-dsn", envFirst("DATABASE_URL", "STORE_DSN"), "Store DSN; empty disables persistence")

	fs.DurationVar(&cfg.TravelCacheTTL, "travel-cache-ttl", envDuration("TRAVEL_CACHE_TTL", 24*time.Hour), "Travel time cache TTL (0 disables)")
	fs.DurationVar(&cfg.PredictionCacheTTL, "prediction-cache-ttl", envDuration("PREDICTION_CACHE_TTL", 10*time.Second), "Prediction cache TTL (0 disables)")

	fs.StringVar(&raw.defaultLoc, "default-location", os.Getenv("DEFAULT_LOCATION"), "Fallback rider location as lat,lon")
	fs.StringVar(&raw.tz, "tz", envOr("TZ", "America/New_York"), "Time zone used for clock times")
	fs.StringVar(&raw.corsOrigins, "cors-origins", envOr("CORS_ORIGINS", "*"), "Comma separated allowed CORS origins")
	fs.BoolVar(&cfg.MetricsEnabled, "metrics", envBool("METRICS_ENABLED", true), "Expose /metrics")

	fs.StringVar(&cfg.NATSURL, "nats-url", envOr("NATS_URL", "nats://127.0.0.1:4222"), "NATS server URL")
	fs.StringVar(&cfg.SubjectPrefix, "subject-prefix", envOr("NATS_SUBJECT_PREFIX", "walktimes"), "NATS subject prefix")

	return func() error {
		return cfg.finish(raw)
	}
}

func (cfg *Config) finish(raw flagValues) error {
	cfg.Env = EnvFlagToEnvironment(raw.env)
	level, err := logging.ParseLevel(raw.logLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level
	cfg.ApiKeys = splitList(raw.apiKeys)
	cfg.CORSOrigins = splitList(raw.corsOrigins)

	switch SourceKind(strings.ToLower(raw.source)) {
	case SourceMBTA:
		cfg.Source = SourceMBTA
	case SourceGTFS:
		cfg.Source = SourceGTFS
	default:
		return fmt.Errorf("invalid prediction source %q", raw.source)
	}

	if raw.defaultLoc != "" {
		loc, err := ParseCoordinate(raw.defaultLoc)
		if err != nil {
			return fmt.Errorf("invalid default location: %w", err)
		}
		cfg.DefaultLocation = &loc
	}

	tz, err := time.LoadLocation(raw.tz)
	if err != nil {
		return fmt.Errorf("invalid TZ: %w", err)
	}
	cfg.Location = tz

	return cfg.Validate()
}

// Validate checks the settings that would otherwise fail at request time.
func (cfg *Config) Validate() error {
	if cfg.Source == SourceMBTA && cfg.MBTABaseURL == "" {
		return errors.New("mbta-url must be set for the mbta source")
	}
	if cfg.Source == SourceGTFS && cfg.GtfsURL == "" {
		return errors.New("gtfs-url must be set for the gtfs source")
	}
	if cfg.MBTARadius <= 0 {
		return fmt.Errorf("invalid mbta-radius: %v", cfg.MBTARadius)
	}
	if cfg.MatrixConcurrency <= 0 {
		return fmt.Errorf("invalid matrix-concurrency: %d", cfg.MatrixConcurrency)
	}
	switch cfg.StoreDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("invalid store-driver: %q", cfg.StoreDriver)
	}
	return nil
}

// ParseCoordinate parses "lat,lon".
func ParseCoordinate(s string) (geo.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Coordinate{}, fmt.Errorf("expected lat,lon: %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	c := geo.Coordinate{Latitude: lat, Longitude: lon}
	return c, geo.Validate(c)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envFirst(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil {
		return v
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}
