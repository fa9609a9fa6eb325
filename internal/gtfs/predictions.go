package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jamespfennell/gtfs"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/mbta"
)

// Predictions converts the GTFS-RT stop time updates at stops near coord into
// the same payload shape the MBTA API returns, so both sources feed one pipeline.
func (manager *Manager) Predictions(ctx context.Context, coord geo.Coordinate) (*mbta.Payload, error) {
	idx := manager.staticIndex()
	if idx == nil {
		return nil, ErrNotLoaded
	}

	manager.realTimeMutex.RLock()
	trips, vehicles := manager.realTimeTrips, manager.realTimeVehicles
	manager.realTimeMutex.RUnlock()

	b := newPayloadBuilder(idx, manager.config.TimeZone)
	b.build(idx.stopsWithin(coord, manager.config.RadiusMeters), trips, vehicles, manager.config.Now())

	if b.skipped > 0 {
		logging.LogOperation(logging.FromContext(ctx), "gtfs_realtime_trips_skipped",
			slog.String("component", "gtfs_source"),
			slog.Int("count", b.skipped))
	}
	return &b.payload, nil
}

// StopsNear lists stops within radius degrees of coord, nearest first.
func (manager *Manager) StopsNear(_ context.Context, coord geo.Coordinate, radius float64) ([]mbta.Stop, error) {
	idx := manager.staticIndex()
	if idx == nil {
		return nil, ErrNotLoaded
	}
	candidates := idx.stopsWithin(coord, radius*metersPerDegree)
	stops := make([]mbta.Stop, 0, len(candidates))
	for _, c := range candidates {
		stops = append(stops, stopRecord(c.stop))
	}
	return stops, nil
}

type payloadBuilder struct {
	static  *staticIndex
	loc     *time.Location
	payload mbta.Payload
	seen    map[mbta.Kind]map[string]bool
	skipped int
}

func newPayloadBuilder(idx *staticIndex, loc *time.Location) *payloadBuilder {
	return &payloadBuilder{
		static:  idx,
		loc:     loc,
		payload: mbta.Payload{Data: []mbta.Prediction{}, Included: []mbta.Resource{}},
		seen:    map[mbta.Kind]map[string]bool{},
	}
}

// include reports whether kind/id is new and marks it as included.
func (b *payloadBuilder) include(kind mbta.Kind, id string) bool {
	if b.seen[kind] == nil {
		b.seen[kind] = map[string]bool{}
	}
	if b.seen[kind][id] {
		return false
	}
	b.seen[kind][id] = true
	return true
}

func (b *payloadBuilder) build(nearby []stopWithDistance, trips []gtfs.Trip, vehicles []gtfs.Vehicle, now time.Time) {
	if len(nearby) == 0 {
		return
	}
	near := make(map[string]*gtfs.Stop, len(nearby))
	for _, c := range nearby {
		near[c.stop.Id] = c.stop
	}

	vehicleByTrip := map[string]*gtfs.Vehicle{}
	for i := range vehicles {
		v := &vehicles[i]
		if v.Trip != nil && v.Trip.ID.ID != "" && v.ID != nil {
			vehicleByTrip[v.Trip.ID.ID] = v
		}
	}

	for i := range trips {
		trip := &trips[i]
		scheduled := b.static.trips[trip.ID.ID]
		if scheduled == nil || scheduled.Route == nil {
			b.skipped++
			continue
		}
		vehicle := vehicleByTrip[trip.ID.ID]
		if vehicle == nil && trip.Vehicle != nil && trip.Vehicle.ID != nil {
			vehicle = trip.Vehicle
		}

		for _, update := range trip.StopTimeUpdates {
			if update.StopID == nil {
				continue
			}
			stop := near[*update.StopID]
			if stop == nil {
				continue
			}
			arrival, departure := eventTime(update.Arrival), eventTime(update.Departure)
			effective := departure
			if effective == nil {
				effective = arrival
			}
			if effective == nil || effective.Before(now) {
				continue
			}

			seq := -1
			if update.StopSequence != nil {
				seq = int(*update.StopSequence)
			}
			pred := mbta.Prediction{
				ID: predictionID(trip.ID.ID, stop.Id, seq),
				Attributes: mbta.PredictionAttributes{
					ArrivalTime:   b.format(arrival),
					DepartureTime: b.format(departure),
				},
				Relationships: mbta.PredictionRelationships{
					Route: mbta.One(mbta.KindRoute, scheduled.Route.Id),
					Stop:  mbta.One(mbta.KindStop, stop.Id),
					Trip:  mbta.One(mbta.KindTrip, scheduled.ID),
				},
			}
			if vehicle != nil {
				pred.Relationships.Vehicle = mbta.One(mbta.KindVehicle, vehicle.ID.ID)
				b.addVehicle(vehicle)
			}
			b.payload.Data = append(b.payload.Data, pred)
			b.addStop(stop)
			b.addTrip(scheduled)
		}
	}
}

func eventTime(event *gtfs.StopTimeEvent) *time.Time {
	if event == nil || event.Time == nil || event.Time.IsZero() {
		return nil
	}
	return event.Time
}

func (b *payloadBuilder) format(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.In(b.loc).Format(time.RFC3339)
	return &s
}

func predictionID(tripID, stopID string, seq int) string {
	return fmt.Sprintf("prediction-%s-%s-%d", tripID, stopID, seq)
}

func stopRecord(stop *gtfs.Stop) mbta.Stop {
	return mbta.Stop{
		ID: stop.Id,
		Attributes: mbta.StopAttributes{
			Latitude:  *stop.Latitude,
			Longitude: *stop.Longitude,
			Name:      stop.Name,
		},
	}
}

func (b *payloadBuilder) addStop(stop *gtfs.Stop) {
	if b.include(mbta.KindStop, stop.Id) {
		b.payload.Included = append(b.payload.Included, mbta.StopResource(stopRecord(stop)))
	}
}

func (b *payloadBuilder) addRoute(route *gtfs.Route) {
	if !b.include(mbta.KindRoute, route.Id) {
		return
	}
	b.payload.Included = append(b.payload.Included, mbta.RouteResource(mbta.Route{
		ID: route.Id,
		Attributes: mbta.RouteAttributes{
			Color:     route.Color,
			TextColor: route.TextColor,
			ShortName: route.ShortName,
			LongName:  route.LongName,
			Type:      int(route.Type),
		},
	}))
}

// routePatternID groups trips of a route that share a direction and a
// shape, or a headsign when the feed has no shapes.
func routePatternID(trip *gtfs.ScheduledTrip) string {
	variant := trip.Headsign
	if trip.Shape != nil && trip.Shape.ID != "" {
		variant = trip.Shape.ID
	}
	return trip.Route.Id + "-" + directionCode(trip.DirectionId) + "-" + variant
}

// directionCode renders a direction the way trips.txt spells it.
func directionCode(d gtfs.DirectionID) string {
	switch d {
	case gtfs.DirectionID_False:
		return "0"
	case gtfs.DirectionID_True:
		return "1"
	default:
		return ""
	}
}

// patternName follows the "First Stop - Last Stop" naming of route patterns.
func patternName(trip *gtfs.ScheduledTrip) string {
	first, last := -1, -1
	for i, st := range trip.StopTimes {
		if st.Stop == nil {
			continue
		}
		if first < 0 || st.StopSequence < trip.StopTimes[first].StopSequence {
			first = i
		}
		if last < 0 || st.StopSequence > trip.StopTimes[last].StopSequence {
			last = i
		}
	}
	if first < 0 || first == last {
		return trip.Headsign
	}
	return trip.StopTimes[first].Stop.Name + " - " + trip.StopTimes[last].Stop.Name
}

func (b *payloadBuilder) addTrip(trip *gtfs.ScheduledTrip) {
	if !b.include(mbta.KindTrip, trip.ID) {
		return
	}
	b.addRoute(trip.Route)

	patternID := routePatternID(trip)
	shapeID := ""
	if trip.Shape != nil {
		shapeID = trip.Shape.ID
	}
	b.payload.Included = append(b.payload.Included, mbta.TripResource(mbta.Trip{
		ID:         trip.ID,
		Attributes: mbta.TripAttributes{Headsign: trip.Headsign},
		Relationships: mbta.TripRelationships{
			Route:        mbta.One(mbta.KindRoute, trip.Route.Id),
			RoutePattern: mbta.One(mbta.KindRoutePattern, patternID),
			Shape:        mbta.One(mbta.KindShape, shapeID),
		},
	}))

	if b.include(mbta.KindRoutePattern, patternID) {
		b.payload.Included = append(b.payload.Included, mbta.RoutePatternResource(mbta.RoutePattern{
			ID: patternID,
			Attributes: mbta.RoutePatternAttributes{
				Canonical: true,
				Name:      patternName(trip),
			},
			Relationships: mbta.RoutePatternRelationships{
				Route:              mbta.One(mbta.KindRoute, trip.Route.Id),
				RepresentativeTrip: mbta.One(mbta.KindTrip, trip.ID),
			},
		}))
	}

	if trip.Shape != nil && shapeID != "" && b.include(mbta.KindShape, shapeID) {
		b.payload.Included = append(b.payload.Included, mbta.ShapeResource(mbta.Shape{
			ID:         shapeID,
			Attributes: mbta.ShapeAttributes{Polyline: encodeShape(trip.Shape)},
		}))
	}
}

func (b *payloadBuilder) addVehicle(v *gtfs.Vehicle) {
	if !b.include(mbta.KindVehicle, v.ID.ID) {
		return
	}
	record := mbta.Vehicle{
		ID:         v.ID.ID,
		Attributes: mbta.VehicleAttributes{Label: v.ID.Label},
	}
	if p := v.Position; p != nil {
		if p.Latitude != nil && p.Longitude != nil {
			record.Attributes.Latitude = float64(*p.Latitude)
			record.Attributes.Longitude = float64(*p.Longitude)
		}
		if p.Bearing != nil {
			bearing := float64(*p.Bearing)
			record.Attributes.Bearing = &bearing
		}
	}
	if v.CurrentStatus != nil {
		record.Attributes.CurrentStatus = currentStatus(int(*v.CurrentStatus))
	}
	b.payload.Included = append(b.payload.Included, mbta.VehicleResource(record))
}

func currentStatus(status int) string {
	switch status {
	case 0:
		return "INCOMING_AT"
	case 1:
		return "STOPPED_AT"
	default:
		return "IN_TRANSIT_TO"
	}
}
