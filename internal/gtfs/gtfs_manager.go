package gtfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jamespfennell/gtfs"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/utils"
)

var ErrNotLoaded = errors.New("gtfs static data not loaded")

// Manager keeps a static GTFS feed and the latest GTFS-RT snapshots in memory
// and answers nearby prediction queries from them.
type Manager struct {
	gtfsSource       string
	isLocalFile      bool
	static           *staticIndex
	lastUpdated      time.Time
	staticMutex      sync.RWMutex
	realTimeTrips    []gtfs.Trip
	realTimeVehicles []gtfs.Vehicle
	realTimeUpdated  time.Time
	realTimeMutex    sync.RWMutex
	config           Config
	staticFetcher    *utils.Fetcher
	realtimeFetcher  *utils.Fetcher
	shutdownChan     chan struct{}
	wg               sync.WaitGroup
	shutdownOnce     sync.Once
}

// InitGTFSManager loads the static feed from config.GtfsURL, which can be
// either a URL or a local file path, and starts the background refreshers.
func InitGTFSManager(ctx context.Context, config Config) (*Manager, error) {
	config = config.withDefaults()
	isLocalFile := !strings.HasPrefix(config.GtfsURL, "http://") && !strings.HasPrefix(config.GtfsURL, "https://")

	manager := &Manager{
		gtfsSource:      config.GtfsURL,
		isLocalFile:     isLocalFile,
		config:          config,
		staticFetcher:   utils.NewFetcher("gtfs_static", config.HTTPClient),
		realtimeFetcher: utils.NewFetcher("gtfs_realtime", config.HTTPClient),
		shutdownChan:    make(chan struct{}),
	}
	manager.staticFetcher.Observer = config.Observer
	manager.realtimeFetcher.Observer = config.Observer
	if config.RealTimeAuthHeaderKey != "" && config.RealTimeAuthHeaderValue != "" {
		manager.realtimeFetcher.Header = map[string][]string{
			config.RealTimeAuthHeaderKey: {config.RealTimeAuthHeaderValue},
		}
	}

	staticData, err := manager.loadGTFSData(ctx)
	if err != nil {
		return nil, err
	}
	manager.setStaticGTFS(ctx, staticData)

	if !isLocalFile {
		manager.wg.Add(1)
		go manager.updateStaticGTFS()
	}

	if config.realTimeDataEnabled() {
		rtCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		manager.updateGTFSRealtime(rtCtx)
		manager.wg.Add(1)
		go manager.updateGTFSRealtimePeriodically()
	}

	return manager, nil
}

// Shutdown stops the background refreshers and waits for them to exit.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
		manager.wg.Wait()
	})
}

// Name identifies the source in boards and logs.
func (manager *Manager) Name() string { return "gtfs" }

func (manager *Manager) staticIndex() *staticIndex {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.static
}

// GetStaticData returns the current static feed, or nil before the first load.
func (manager *Manager) GetStaticData() *gtfs.Static {
	if idx := manager.staticIndex(); idx != nil {
		return idx.data
	}
	return nil
}

type stopWithDistance struct {
	stop     *gtfs.Stop
	distance float64
}

// StopsWithin returns the stops within radius meters of coord, nearest first.
func (manager *Manager) StopsWithin(coord geo.Coordinate, radius float64) []*gtfs.Stop {
	idx := manager.staticIndex()
	if idx == nil {
		return nil
	}
	candidates := idx.stopsWithin(coord, radius)
	stops := make([]*gtfs.Stop, 0, len(candidates))
	for _, c := range candidates {
		stops = append(stops, c.stop)
	}
	return stops
}

// Stats summarizes what the manager currently holds.
type Stats struct {
	Source           string         `json:"source"`
	LocalFile        bool           `json:"localFile"`
	LastUpdated      time.Time      `json:"lastUpdated"`
	RealtimeUpdated  time.Time      `json:"realtimeUpdated"`
	Stops            int            `json:"stops"`
	Routes           int            `json:"routes"`
	Trips            int            `json:"trips"`
	Shapes           int            `json:"shapes"`
	RealtimeTrips    int            `json:"realtimeTrips"`
	RealtimeVehicles int            `json:"realtimeVehicles"`
	Center           geo.Coordinate `json:"center"`
}

func (manager *Manager) Stats() Stats {
	stats := Stats{Source: utils.RedactURL(manager.gtfsSource), LocalFile: manager.isLocalFile}

	manager.staticMutex.RLock()
	if idx := manager.static; idx != nil {
		stats.LastUpdated = manager.lastUpdated
		stats.Stops = len(idx.data.Stops)
		stats.Routes = len(idx.data.Routes)
		stats.Trips = len(idx.data.Trips)
		stats.Shapes = len(idx.data.Shapes)
		stats.Center = idx.center
	}
	manager.staticMutex.RUnlock()

	manager.realTimeMutex.RLock()
	stats.RealtimeTrips = len(manager.realTimeTrips)
	stats.RealtimeVehicles = len(manager.realTimeVehicles)
	stats.RealtimeUpdated = manager.realTimeUpdated
	manager.realTimeMutex.RUnlock()

	return stats
}

// PrintStatistics logs the current Stats.
func (manager *Manager) PrintStatistics(logger *slog.Logger) {
	s := manager.Stats()
	logging.LogOperation(logger, "gtfs_statistics",
		slog.String("source", s.Source),
		slog.Bool("local_file", s.LocalFile),
		slog.Time("last_updated", s.LastUpdated),
		slog.Int("stops", s.Stops),
		slog.Int("routes", s.Routes),
		slog.Int("trips", s.Trips),
		slog.Int("realtime_trips", s.RealtimeTrips),
		slog.Int("realtime_vehicles", s.RealtimeVehicles))
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: %d stops, %d routes, %d trips, %d realtime trips", s.Source, s.Stops, s.Routes, s.Trips, s.RealtimeTrips)
}
