package nearby

import (
	"fmt"
	"time"

	"walktimes.dev/internal/departures"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/matrix"
	"walktimes.dev/internal/mbta"
)

// Board is everything a rider at Location needs to pick a departure.
type Board struct {
	Location           geo.Coordinate `json:"location"`
	GeneratedAt        time.Time      `json:"generatedAt"`
	Source             string         `json:"source"`
	WalkingUnavailable bool           `json:"walkingUnavailable"`
	Routes             []RouteEntry   `json:"routes"`
}

type RouteEntry struct {
	RouteID     string         `json:"routeId"`
	DisplayName string         `json:"displayName"`
	Color       string         `json:"color"`
	TextColor   string         `json:"textColor"`
	Patterns    []PatternEntry `json:"patterns"`
}

type PatternEntry struct {
	RoutePatternID string           `json:"routePatternId"`
	PatternName    string           `json:"patternName"`
	Headsign       string           `json:"headsign"`
	Stop           StopEntry        `json:"stop"`
	Next           DepartureEntry   `json:"next"`
	Upcoming       []DepartureEntry `json:"upcoming"`
}

type StopEntry struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Lat           float64  `json:"lat"`
	Lon           float64  `json:"lon"`
	Direction     string   `json:"direction"`
	DistanceMiles *float64 `json:"distanceMiles,omitempty"`
	WalkSeconds   *float64 `json:"walkSeconds,omitempty"`
}

type DepartureEntry struct {
	PredictionID  string     `json:"predictionId"`
	TripID        string     `json:"tripId"`
	VehicleID     string     `json:"vehicleId,omitempty"`
	ArrivalTime   *string    `json:"arrivalTime"`
	DepartureTime *string    `json:"departureTime"`
	Status        *string    `json:"status"`
	Uncertain     bool       `json:"uncertain"`
	PrimaryText   string     `json:"primaryText"`
	LeaveAt       *time.Time `json:"leaveAt,omitempty"`
	Reachable     bool       `json:"reachable"`
}

// BuildInput is one fetch cycle's immutable inputs.
type BuildInput struct {
	Location  geo.Coordinate
	Source    string
	Index     *mbta.Index
	Groups    []departures.RouteGroup
	Estimates map[string]matrix.Estimate
	// WalkingUnavailable marks a board whose estimates could not be fetched.
	WalkingUnavailable bool
	Now                time.Time
	TimeZone           *time.Location
}

// BuildBoard renders grouped predictions into a board. It fails with
// departures.ErrInconsistentData when a grouped route is not included.
func BuildBoard(in BuildInput) (*Board, error) {
	board := &Board{
		Location:           in.Location,
		GeneratedAt:        in.Now,
		Source:             in.Source,
		WalkingUnavailable: in.WalkingUnavailable,
		Routes:             make([]RouteEntry, 0, len(in.Groups)),
	}

	for _, rg := range in.Groups {
		route, ok := in.Index.Routes[rg.RouteID]
		if !ok {
			return nil, fmt.Errorf("%w: route %q not included", departures.ErrInconsistentData, rg.RouteID)
		}
		entry := RouteEntry{
			RouteID:     rg.RouteID,
			DisplayName: departures.RouteDisplayName(route),
			Color:       route.Attributes.Color,
			TextColor:   route.Attributes.TextColor,
			Patterns:    make([]PatternEntry, 0, len(rg.Patterns)),
		}
		for _, pg := range rg.Patterns {
			pe, err := buildPattern(in, pg)
			if err != nil {
				return nil, err
			}
			entry.Patterns = append(entry.Patterns, pe)
		}
		board.Routes = append(board.Routes, entry)
	}
	return board, nil
}

func buildPattern(in BuildInput, pg departures.PatternGroup) (PatternEntry, error) {
	stop := in.Index.Stops[pg.Nearest.StopID]
	stopEntry := StopEntry{
		ID:        stop.ID,
		Name:      stop.Attributes.Name,
		Lat:       stop.Attributes.Latitude,
		Lon:       stop.Attributes.Longitude,
		Direction: geo.Compass(in.Location, stop.Coordinate()),
	}

	var walk *float64
	if est, ok := in.Estimates[stop.ID]; ok {
		distance, duration := est.DistanceMiles, est.DurationSeconds
		stopEntry.DistanceMiles = &distance
		stopEntry.WalkSeconds = &duration
		walk = &duration
	}

	sel, err := departures.SelectNext(pg.Nearest.Predictions, walk, in.Now)
	if err != nil {
		return PatternEntry{}, fmt.Errorf("route pattern %q: %w", pg.RoutePatternID, err)
	}

	pe := PatternEntry{
		RoutePatternID: pg.RoutePatternID,
		PatternName:    in.Index.RoutePatterns[pg.RoutePatternID].Attributes.Name,
		Headsign:       in.Index.Headsign(sel.All[0]),
		Stop:           stopEntry,
		Next:           departure(sel.Next, walk, in.Now, in.TimeZone),
		Upcoming:       make([]DepartureEntry, 0, len(sel.All)),
	}
	for _, p := range sel.All {
		pe.Upcoming = append(pe.Upcoming, departure(p, walk, in.Now, in.TimeZone))
	}
	return pe, nil
}

func departure(p mbta.Prediction, walk *float64, now time.Time, loc *time.Location) DepartureEntry {
	d := departures.Describe(p, walk, now, loc)
	return DepartureEntry{
		PredictionID:  p.ID,
		TripID:        p.TripID(),
		VehicleID:     p.VehicleID(),
		ArrivalTime:   p.Attributes.ArrivalTime,
		DepartureTime: p.Attributes.DepartureTime,
		Status:        p.Attributes.Status,
		Uncertain:     p.Uncertain(),
		PrimaryText:   d.PrimaryText,
		LeaveAt:       d.LeaveAt,
		Reachable:     d.Reachable,
	}
}

// Destinations lists the retained stops of groups as matrix destinations.
func Destinations(groups []departures.RouteGroup, idx *mbta.Index) []matrix.Destination {
	ids := departures.StopIDs(groups)
	out := make([]matrix.Destination, 0, len(ids))
	for _, id := range ids {
		stop, ok := idx.Stops[id]
		if !ok {
			continue
		}
		out = append(out, matrix.Destination{StopID: id, Coordinate: stop.Coordinate()})
	}
	return out
}
