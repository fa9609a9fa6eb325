package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jamespfennell/gtfs"
	"walktimes.dev/internal/logging"
)

// GetRealTimeTrips returns the real-time trip updates
func (manager *Manager) GetRealTimeTrips() []gtfs.Trip {
	manager.realTimeMutex.RLock()
	defer manager.realTimeMutex.RUnlock()
	return manager.realTimeTrips
}

// GetRealTimeVehicles returns the real-time vehicle positions
func (manager *Manager) GetRealTimeVehicles() []gtfs.Vehicle {
	manager.realTimeMutex.RLock()
	defer manager.realTimeMutex.RUnlock()
	return manager.realTimeVehicles
}

func (manager *Manager) loadRealtimeData(ctx context.Context, source string) (*gtfs.Realtime, error) {
	b, err := manager.realtimeFetcher.Get(ctx, source)
	if err != nil {
		return nil, err
	}
	data, err := gtfs.ParseRealtime(b, &gtfs.ParseRealtimeOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS-RT data: %w", err)
	}
	return data, nil
}

func (manager *Manager) updateGTFSRealtime(ctx context.Context) {
	logger := logging.FromContext(ctx).With(slog.String("component", "gtfs_realtime"))
	config := manager.config

	var wg sync.WaitGroup
	var tripData, vehicleData *gtfs.Realtime
	var tripErr, vehicleErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		tripData, tripErr = manager.loadRealtimeData(ctx, config.TripUpdatesURL)
		if tripErr != nil {
			logging.LogError(logger, "Error loading GTFS-RT trip updates data", tripErr)
		}
	}()
	go func() {
		defer wg.Done()
		vehicleData, vehicleErr = manager.loadRealtimeData(ctx, config.VehiclePositionsURL)
		if vehicleErr != nil {
			logging.LogError(logger, "Error loading GTFS-RT vehicle positions data", vehicleErr)
		}
	}()
	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	// Keep the previous snapshot of whichever feed failed.
	manager.realTimeMutex.Lock()
	defer manager.realTimeMutex.Unlock()

	if tripErr == nil && tripData != nil {
		manager.realTimeTrips = tripData.Trips
	}
	if vehicleErr == nil && vehicleData != nil {
		manager.realTimeVehicles = vehicleData.Vehicles
	}
	if tripErr == nil || vehicleErr == nil {
		manager.realTimeUpdated = config.Now()
	}
}

func (manager *Manager) updateGTFSRealtimePeriodically() {
	defer manager.wg.Done()

	logger := slog.Default().With(slog.String("component", "gtfs_realtime_updater"))

	ticker := time.NewTicker(manager.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			ctx = logging.WithLogger(ctx, logger)

			logging.LogOperation(logger, "updating_gtfs_realtime_data")
			manager.updateGTFSRealtime(ctx)
			cancel()
		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_realtime_updates")
			return
		}
	}
}
