package mbta

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the JSON:API type discriminant of an included record.
type Kind string

const (
	KindStop         Kind = "stop"
	KindTrip         Kind = "trip"
	KindRoute        Kind = "route"
	KindRoutePattern Kind = "route_pattern"
	KindShape        Kind = "shape"
	KindVehicle      Kind = "vehicle"
	KindPrediction   Kind = "prediction"
	KindUnknown      Kind = ""
)

var ErrMissingType = errors.New("resource has no type")

// Resource is one record of the included array. Exactly one of the entity
// pointers is set, selected by Kind. Records of unrecognized types keep
// their raw JSON and have Kind == KindUnknown.
type Resource struct {
	Kind         Kind
	ID           string
	Type         string
	Stop         *Stop
	Trip         *Trip
	Route        *Route
	RoutePattern *RoutePattern
	Shape        *Shape
	Vehicle      *Vehicle
	Raw          json.RawMessage
}

func StopResource(s Stop) Resource {
	return Resource{Kind: KindStop, ID: s.ID, Type: string(KindStop), Stop: &s}
}

func TripResource(t Trip) Resource {
	return Resource{Kind: KindTrip, ID: t.ID, Type: string(KindTrip), Trip: &t}
}

func RouteResource(r Route) Resource {
	return Resource{Kind: KindRoute, ID: r.ID, Type: string(KindRoute), Route: &r}
}

func RoutePatternResource(p RoutePattern) Resource {
	return Resource{Kind: KindRoutePattern, ID: p.ID, Type: string(KindRoutePattern), RoutePattern: &p}
}

func ShapeResource(s Shape) Resource {
	return Resource{Kind: KindShape, ID: s.ID, Type: string(KindShape), Shape: &s}
}

func VehicleResource(v Vehicle) Resource {
	return Resource{Kind: KindVehicle, ID: v.ID, Type: string(KindVehicle), Vehicle: &v}
}

func (r *Resource) UnmarshalJSON(b []byte) error {
	var head struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	if head.Type == "" {
		return fmt.Errorf("%w (id %q)", ErrMissingType, head.ID)
	}

	*r = Resource{ID: head.ID, Type: head.Type, Kind: Kind(head.Type)}
	var err error
	switch Kind(head.Type) {
	case KindStop:
		r.Stop = new(Stop)
		err = json.Unmarshal(b, r.Stop)
	case KindTrip:
		r.Trip = new(Trip)
		err = json.Unmarshal(b, r.Trip)
	case KindRoute:
		r.Route = new(Route)
		err = json.Unmarshal(b, r.Route)
	case KindRoutePattern:
		r.RoutePattern = new(RoutePattern)
		err = json.Unmarshal(b, r.RoutePattern)
	case KindShape:
		r.Shape = new(Shape)
		err = json.Unmarshal(b, r.Shape)
	case KindVehicle:
		r.Vehicle = new(Vehicle)
		err = json.Unmarshal(b, r.Vehicle)
	default:
		r.Kind = KindUnknown
		r.Raw = append(json.RawMessage(nil), b...)
	}
	if err != nil {
		return fmt.Errorf("decoding %s %q: %w", head.Type, head.ID, err)
	}
	return nil
}

func (r Resource) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindStop:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Stop
		}{r.Kind, r.Stop})
	case KindTrip:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Trip
		}{r.Kind, r.Trip})
	case KindRoute:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Route
		}{r.Kind, r.Route})
	case KindRoutePattern:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*RoutePattern
		}{r.Kind, r.RoutePattern})
	case KindShape:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Shape
		}{r.Kind, r.Shape})
	case KindVehicle:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Vehicle
		}{r.Kind, r.Vehicle})
	}
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(Ref{ID: r.ID, Type: r.Type})
}
