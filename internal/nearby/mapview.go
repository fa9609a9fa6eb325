package nearby

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	polyline "github.com/twpayne/go-polyline"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
)

const (
	// DefaultZoom frames a few blocks around the rider.
	DefaultZoom = 16
	MeMarkerID  = "me"
)

// SnapPoints are the drawer heights, as fractions of the viewport, a client
// may rest at. The map is never padded by more than the middle one.
var SnapPoints = []float64{0.15, 0.5, 0.95}

const (
	MarkerStop    = "stop"
	MarkerVehicle = "vehicle"
	MarkerMe      = "me"
)

type Marker struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Label   string   `json:"label,omitempty"`
	Bearing *float64 `json:"bearing,omitempty"`
}

type Padding struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// ShapeLine is a pattern's path in [lon, lat] order, as map renderers expect.
type ShapeLine struct {
	RouteID        string       `json:"routeId"`
	RoutePatternID string       `json:"routePatternId"`
	ShapeID        string       `json:"shapeId"`
	Color          string       `json:"color"`
	Coordinates    [][2]float64 `json:"coordinates"`
}

type MapView struct {
	Center  geo.Coordinate `json:"center"`
	Zoom    int            `json:"zoom"`
	Padding Padding        `json:"padding"`
	Markers []Marker       `json:"markers"`
	Shapes  []ShapeLine    `json:"shapes"`
}

// BottomPadding keeps the rider visible above a drawer resting at snap.
func BottomPadding(snap, viewportHeight float64) float64 {
	if snap <= 0 || viewportHeight <= 0 {
		return 0
	}
	return math.Min(snap, SnapPoints[1]) * viewportHeight
}

// MapView builds markers for every included stop, every included vehicle and
// the rider, plus the shape of each displayed route pattern.
func (s *Service) MapView(ctx context.Context, coord geo.Coordinate, padding Padding) (*MapView, error) {
	snap, err := s.Snapshot(ctx, coord)
	if err != nil {
		return nil, err
	}
	return BuildMapView(ctx, snap, padding), nil
}

// BuildMapView renders what it can. A shape that fails to decode is logged and
// left off; the markers are always present.
func BuildMapView(ctx context.Context, snap *Snapshot, padding Padding) *MapView {
	view := &MapView{
		Center:  snap.Location,
		Zoom:    DefaultZoom,
		Padding: padding,
	}

	stopIDs := make([]string, 0, len(snap.Index.Stops))
	for id := range snap.Index.Stops {
		stopIDs = append(stopIDs, id)
	}
	sort.Strings(stopIDs)
	for _, id := range stopIDs {
		stop := snap.Index.Stops[id]
		view.Markers = append(view.Markers, Marker{
			ID:    id,
			Kind:  MarkerStop,
			Lat:   stop.Attributes.Latitude,
			Lon:   stop.Attributes.Longitude,
			Label: stop.Attributes.Name,
		})
	}

	vehicleIDs := make([]string, 0, len(snap.Index.Vehicles))
	for id := range snap.Index.Vehicles {
		vehicleIDs = append(vehicleIDs, id)
	}
	sort.Strings(vehicleIDs)
	for _, id := range vehicleIDs {
		v := snap.Index.Vehicles[id]
		view.Markers = append(view.Markers, Marker{
			ID:      "vehicle-" + id,
			Kind:    MarkerVehicle,
			Lat:     v.Attributes.Latitude,
			Lon:     v.Attributes.Longitude,
			Label:   v.Attributes.Label,
			Bearing: v.Attributes.Bearing,
		})
	}

	view.Markers = append(view.Markers, Marker{
		ID:   MeMarkerID,
		Kind: MarkerMe,
		Lat:  snap.Location.Latitude,
		Lon:  snap.Location.Longitude,
	})

	for _, rg := range snap.Groups {
		color := snap.Index.Routes[rg.RouteID].Attributes.Color
		for _, pg := range rg.Patterns {
			shape, ok := snap.Index.ShapeForPattern(pg.RoutePatternID)
			if !ok || shape.Attributes.Polyline == "" {
				continue
			}
			coords, err := DecodeShape(shape.Attributes.Polyline)
			if err != nil {
				logging.LogError(logging.FromContext(ctx), "skipping undecodable shape", err,
					slog.String("shape_id", shape.ID),
					slog.String("route_pattern_id", pg.RoutePatternID))
				continue
			}
			view.Shapes = append(view.Shapes, ShapeLine{
				RouteID:        rg.RouteID,
				RoutePatternID: pg.RoutePatternID,
				ShapeID:        shape.ID,
				Color:          color,
				Coordinates:    coords,
			})
		}
	}
	return view
}

// DecodeShape turns an encoded polyline into [lon, lat] pairs.
func DecodeShape(encoded string) ([][2]float64, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding polyline: %w", err)
	}
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		out[i] = [2]float64{c[1], c[0]}
	}
	return out, nil
}
