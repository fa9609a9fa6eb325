package gtfs

import (
	"net/http"
	"time"

	"walktimes.dev/internal/utils"
)

const (
	DefaultRadiusMeters    = 550.0
	DefaultRefreshInterval = 30 * time.Second
	staticRefreshInterval  = 24 * time.Hour
	metersPerDegree        = 111000.0
)

type Config struct {
	GtfsURL                 string
	TripUpdatesURL          string
	VehiclePositionsURL     string
	RealTimeAuthHeaderKey   string
	RealTimeAuthHeaderValue string

	// RadiusMeters bounds the stops whose predictions are returned.
	RadiusMeters    float64
	RefreshInterval time.Duration
	TimeZone        *time.Location

	Verbose    bool
	HTTPClient *http.Client
	Observer   utils.UpstreamObserver
	Now        func() time.Time
}

func (config Config) realTimeDataEnabled() bool {
	return config.TripUpdatesURL != "" && config.VehiclePositionsURL != ""
}

func (config Config) withDefaults() Config {
	if config.RadiusMeters <= 0 {
		config.RadiusMeters = DefaultRadiusMeters
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	if config.TimeZone == nil {
		config.TimeZone = time.UTC
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return config
}
