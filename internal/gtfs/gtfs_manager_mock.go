package gtfs

import (
	"github.com/jamespfennell/gtfs"
)

// MockSetRealtime replaces the realtime snapshot without fetching feeds.
func (manager *Manager) MockSetRealtime(trips []gtfs.Trip, vehicles []gtfs.Vehicle) {
	manager.realTimeMutex.Lock()
	defer manager.realTimeMutex.Unlock()
	manager.realTimeTrips = trips
	manager.realTimeVehicles = vehicles
	manager.realTimeUpdated = manager.config.Now()
}

// MockAddVehicle appends a vehicle serving tripID unless vehicleID is already present.
func (manager *Manager) MockAddVehicle(vehicleID, tripID, routeID string, position *gtfs.Position) {
	manager.realTimeMutex.Lock()
	defer manager.realTimeMutex.Unlock()
	for _, v := range manager.realTimeVehicles {
		if v.ID != nil && v.ID.ID == vehicleID {
			return
		}
	}
	manager.realTimeVehicles = append(manager.realTimeVehicles, gtfs.Vehicle{
		ID: &gtfs.VehicleID{ID: vehicleID},
		Trip: &gtfs.Trip{
			ID: gtfs.TripID{
				ID:      tripID,
				RouteID: routeID,
			},
		},
		Position: position,
	})
}
