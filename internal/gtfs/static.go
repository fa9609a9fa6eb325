package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"time"

	"github.com/jamespfennell/gtfs"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
)

// staticIndex is an immutable lookup view over one parsed static feed.
type staticIndex struct {
	data    *gtfs.Static
	stops   map[string]*gtfs.Stop
	routes  map[string]*gtfs.Route
	trips   map[string]*gtfs.ScheduledTrip
	located []*gtfs.Stop
	center  geo.Coordinate
}

func newStaticIndex(data *gtfs.Static) *staticIndex {
	idx := &staticIndex{
		data:   data,
		stops:  make(map[string]*gtfs.Stop, len(data.Stops)),
		routes: make(map[string]*gtfs.Route, len(data.Routes)),
		trips:  make(map[string]*gtfs.ScheduledTrip, len(data.Trips)),
	}
	for i := range data.Stops {
		stop := &data.Stops[i]
		idx.stops[stop.Id] = stop
		if stop.Latitude != nil && stop.Longitude != nil {
			idx.located = append(idx.located, stop)
		}
	}
	for i := range data.Routes {
		idx.routes[data.Routes[i].Id] = &data.Routes[i]
	}
	for i := range data.Trips {
		idx.trips[data.Trips[i].ID] = &data.Trips[i]
	}
	idx.center = regionCenter(idx.located)
	return idx
}

func stopCoordinate(stop *gtfs.Stop) geo.Coordinate {
	return geo.Coordinate{Latitude: *stop.Latitude, Longitude: *stop.Longitude}
}

// stopsWithin filters on a bounding box first and then on the great-circle distance.
func (idx *staticIndex) stopsWithin(coord geo.Coordinate, radius float64) []stopWithDistance {
	latDelta := radius / metersPerDegree
	lonDelta := radius / (metersPerDegree * math.Cos(coord.Latitude*math.Pi/180))

	var candidates []stopWithDistance
	for _, stop := range idx.located {
		if math.Abs(*stop.Latitude-coord.Latitude) > latDelta || math.Abs(*stop.Longitude-coord.Longitude) > lonDelta {
			continue
		}
		distance := geo.DistanceMeters(coord, stopCoordinate(stop))
		if distance <= radius {
			candidates = append(candidates, stopWithDistance{stop, distance})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	return candidates
}

func (manager *Manager) rawGtfsData(ctx context.Context) ([]byte, error) {
	if manager.isLocalFile {
		b, err := os.ReadFile(manager.gtfsSource)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}
	b, err := manager.staticFetcher.Get(ctx, manager.gtfsSource)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	return b, nil
}

// loadGTFSData loads and parses the static feed from its URL or local file.
func (manager *Manager) loadGTFSData(ctx context.Context) (*gtfs.Static, error) {
	b, err := manager.rawGtfsData(ctx)
	if err != nil {
		return nil, err
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}

	return staticData, nil
}

// updateStaticGTFS reloads a remote feed once a day.
func (manager *Manager) updateStaticGTFS() {
	defer manager.wg.Done()

	logger := slog.Default().With(slog.String("component", "gtfs_static_updater"))

	ticker := time.NewTicker(staticRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			ctx = logging.WithLogger(ctx, logger)
			staticData, err := manager.loadGTFSData(ctx)
			cancel()

			if err != nil {
				logging.LogError(logger, "Error updating GTFS data", err,
					slog.String("source", manager.Stats().Source))
				continue
			}

			manager.setStaticGTFS(ctx, staticData)
		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_static_updates")
			return
		}
	}
}

func (manager *Manager) setStaticGTFS(ctx context.Context, staticData *gtfs.Static) {
	idx := newStaticIndex(staticData)

	manager.staticMutex.Lock()
	manager.static = idx
	manager.lastUpdated = manager.config.Now()
	manager.staticMutex.Unlock()

	if manager.config.Verbose {
		logging.LogOperation(logging.FromContext(ctx), "gtfs_static_loaded",
			slog.Int("stops", len(staticData.Stops)),
			slog.Int("routes", len(staticData.Routes)),
			slog.Int("trips", len(staticData.Trips)))
	}
}
