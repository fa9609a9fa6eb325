package mbta

import (
	"time"

	"walktimes.dev/internal/geo"
)

// Ref is a JSON:API resource identifier.
type Ref struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// Relationship is a to-one JSON:API relationship. Data is nil when the
// upstream reports the relationship as null.
type Relationship struct {
	Data *Ref `json:"data"`
}

// ID returns the referenced id, or "" for a null relationship.
func (r Relationship) ID() string {
	if r.Data == nil {
		return ""
	}
	return r.Data.ID
}

// One builds a to-one relationship pointing at id.
func One(kind Kind, id string) Relationship {
	if id == "" {
		return Relationship{}
	}
	return Relationship{Data: &Ref{ID: id, Type: string(kind)}}
}

// ToMany is a to-many JSON:API relationship.
type ToMany struct {
	Data []Ref `json:"data"`
}

// IDs returns the referenced ids in upstream order.
func (r ToMany) IDs() []string {
	ids := make([]string, 0, len(r.Data))
	for _, ref := range r.Data {
		ids = append(ids, ref.ID)
	}
	return ids
}

type PredictionAttributes struct {
	ArrivalTime          *string `json:"arrival_time"`
	DepartureTime        *string `json:"departure_time"`
	ArrivalUncertainty   *int    `json:"arrival_uncertainty"`
	DepartureUncertainty *int    `json:"departure_uncertainty"`
	DirectionID          int     `json:"direction_id"`
	LastTrip             bool    `json:"last_trip"`
	Status               *string `json:"status"`
}

type PredictionRelationships struct {
	Route   Relationship `json:"route"`
	Stop    Relationship `json:"stop"`
	Trip    Relationship `json:"trip"`
	Vehicle Relationship `json:"vehicle"`
}

// Prediction is one arrival/departure event at a stop.
type Prediction struct {
	ID            string                  `json:"id"`
	Attributes    PredictionAttributes    `json:"attributes"`
	Relationships PredictionRelationships `json:"relationships"`
}

func (p Prediction) RouteID() string   { return p.Relationships.Route.ID() }
func (p Prediction) StopID() string    { return p.Relationships.Stop.ID() }
func (p Prediction) TripID() string    { return p.Relationships.Trip.ID() }
func (p Prediction) VehicleID() string { return p.Relationships.Vehicle.ID() }

// EffectiveTime is the departure time when present, else the arrival time,
// else "". The string is kept verbatim so ISO-8601 values sort lexicographically.
func (p Prediction) EffectiveTime() string {
	if p.Attributes.DepartureTime != nil {
		return *p.Attributes.DepartureTime
	}
	if p.Attributes.ArrivalTime != nil {
		return *p.Attributes.ArrivalTime
	}
	return ""
}

// Departure parses the departure time. ok is false when it is absent or unparseable.
func (p Prediction) Departure() (t time.Time, ok bool) {
	return parseTime(p.Attributes.DepartureTime)
}

// Arrival parses the arrival time. ok is false when it is absent or unparseable.
func (p Prediction) Arrival() (t time.Time, ok bool) {
	return parseTime(p.Attributes.ArrivalTime)
}

// Uncertain reports whether the upstream attached an uncertainty value to either time.
func (p Prediction) Uncertain() bool {
	return p.Attributes.ArrivalUncertainty != nil || p.Attributes.DepartureUncertainty != nil
}

func parseTime(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type StopAttributes struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

type Stop struct {
	ID         string         `json:"id"`
	Attributes StopAttributes `json:"attributes"`
}

func (s Stop) Coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: s.Attributes.Latitude, Longitude: s.Attributes.Longitude}
}

type TripAttributes struct {
	Headsign    string `json:"headsign"`
	DirectionID int    `json:"direction_id"`
}

type TripRelationships struct {
	Route        Relationship `json:"route"`
	RoutePattern Relationship `json:"route_pattern"`
	Shape        Relationship `json:"shape"`
}

type Trip struct {
	ID            string            `json:"id"`
	Attributes    TripAttributes    `json:"attributes"`
	Relationships TripRelationships `json:"relationships"`
}

type RouteAttributes struct {
	Color     string `json:"color"`
	TextColor string `json:"text_color"`
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
	Type      int    `json:"type"`
}

type RouteRelationships struct {
	RoutePatterns ToMany `json:"route_patterns"`
}

type Route struct {
	ID            string             `json:"id"`
	Attributes    RouteAttributes    `json:"attributes"`
	Relationships RouteRelationships `json:"relationships"`
}

type RoutePatternAttributes struct {
	Canonical   bool    `json:"canonical"`
	DirectionID int     `json:"direction_id"`
	Name        string  `json:"name"`
	SortOrder   int     `json:"sort_order"`
	TimeDesc    *string `json:"time_desc"`
	Typicality  int     `json:"typicality"`
}

type RoutePatternRelationships struct {
	Route              Relationship `json:"route"`
	RepresentativeTrip Relationship `json:"representative_trip"`
}

type RoutePattern struct {
	ID            string                    `json:"id"`
	Attributes    RoutePatternAttributes    `json:"attributes"`
	Relationships RoutePatternRelationships `json:"relationships"`
}

type ShapeAttributes struct {
	// Polyline is Google encoded polyline text at precision 5.
	Polyline string `json:"polyline"`
}

type Shape struct {
	ID         string          `json:"id"`
	Attributes ShapeAttributes `json:"attributes"`
}

type VehicleAttributes struct {
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Bearing       *float64 `json:"bearing"`
	CurrentStatus string   `json:"current_status"`
	Label         string   `json:"label"`
}

type Vehicle struct {
	ID         string            `json:"id"`
	Attributes VehicleAttributes `json:"attributes"`
}

// Payload is one prediction response: the predictions plus every
// record they reference.
type Payload struct {
	Data     []Prediction `json:"data"`
	Included []Resource   `json:"included"`
}
