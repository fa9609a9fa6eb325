package mbta

import (
	"encoding/json"
	"fmt"
	"io"
)

// Index holds the included records of one payload keyed by id. A later
// record with the same id replaces an earlier one.
type Index struct {
	Stops         map[string]Stop
	Trips         map[string]Trip
	Routes        map[string]Route
	RoutePatterns map[string]RoutePattern
	Shapes        map[string]Shape
	Vehicles      map[string]Vehicle
}

func NewIndex(included []Resource) *Index {
	idx := &Index{
		Stops:         make(map[string]Stop),
		Trips:         make(map[string]Trip),
		Routes:        make(map[string]Route),
		RoutePatterns: make(map[string]RoutePattern),
		Shapes:        make(map[string]Shape),
		Vehicles:      make(map[string]Vehicle),
	}
	for _, r := range included {
		switch r.Kind {
		case KindStop:
			idx.Stops[r.ID] = *r.Stop
		case KindTrip:
			idx.Trips[r.ID] = *r.Trip
		case KindRoute:
			idx.Routes[r.ID] = *r.Route
		case KindRoutePattern:
			idx.RoutePatterns[r.ID] = *r.RoutePattern
		case KindShape:
			idx.Shapes[r.ID] = *r.Shape
		case KindVehicle:
			idx.Vehicles[r.ID] = *r.Vehicle
		}
	}
	return idx
}

// Index builds the lookup tables for the payload's included records.
func (p *Payload) Index() *Index {
	return NewIndex(p.Included)
}

// Headsign returns the headsign of the prediction's trip, or "" when the
// trip is not included.
func (idx *Index) Headsign(p Prediction) string {
	return idx.Trips[p.TripID()].Attributes.Headsign
}

// ShapeForPattern follows a route pattern to its representative trip's shape.
func (idx *Index) ShapeForPattern(routePatternID string) (Shape, bool) {
	pattern, ok := idx.RoutePatterns[routePatternID]
	if !ok {
		return Shape{}, false
	}
	trip, ok := idx.Trips[pattern.Relationships.RepresentativeTrip.ID()]
	if !ok {
		return Shape{}, false
	}
	shape, ok := idx.Shapes[trip.Relationships.Shape.ID()]
	return shape, ok
}

// DecodePayload reads a prediction response document.
func DecodePayload(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding predictions payload: %w", err)
	}
	return &p, nil
}
