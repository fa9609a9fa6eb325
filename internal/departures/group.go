// Package departures turns a flat prediction payload into the per-pattern
// departure rows a rider sees: grouping by route, pattern and nearest stop,
// then choosing the next departure worth walking to.
package departures

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/mbta"
)

// ErrInconsistentData reports a payload whose predictions reference records
// it does not include.
var ErrInconsistentData = errors.New("inconsistent upstream data")

// StopGroup is one stop's predictions in upstream order.
type StopGroup struct {
	StopID      string            `json:"stopId"`
	Predictions []mbta.Prediction `json:"predictions"`
}

// PatternGroup keeps only the stop nearest to the rider.
type PatternGroup struct {
	RoutePatternID string    `json:"routePatternId"`
	Nearest        StopGroup `json:"nearest"`
}

type RouteGroup struct {
	RouteID  string         `json:"routeId"`
	Patterns []PatternGroup `json:"patterns"`
}

// StopIDs lists the retained stop ids across all groups, first occurrence order, without duplicates.
func StopIDs(groups []RouteGroup) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, rg := range groups {
		for _, pg := range rg.Patterns {
			if id := pg.Nearest.StopID; !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// RoutePatternForTrip resolves the route pattern a trip belongs to.
func RoutePatternForTrip(idx *mbta.Index, tripID string) (mbta.RoutePattern, error) {
	trip, ok := idx.Trips[tripID]
	if !ok {
		return mbta.RoutePattern{}, fmt.Errorf("%w: trip %q not included", ErrInconsistentData, tripID)
	}
	patternID := trip.Relationships.RoutePattern.ID()
	if patternID == "" {
		return mbta.RoutePattern{}, fmt.Errorf("%w: trip %q has no route pattern", ErrInconsistentData, tripID)
	}
	pattern, ok := idx.RoutePatterns[patternID]
	if !ok {
		return mbta.RoutePattern{}, fmt.Errorf("%w: route pattern %q of trip %q not included", ErrInconsistentData, patternID, tripID)
	}
	return pattern, nil
}

// Group partitions predictions by route, route pattern and stop, keeping
// first-seen order at every level. Routes are then ordered by id with a
// numeric-aware collation and each pattern keeps only the stop nearest to
// current. Predictions are not reordered.
func Group(predictions []mbta.Prediction, idx *mbta.Index, current geo.Coordinate) ([]RouteGroup, error) {
	type patternAcc struct {
		id        string
		stopOrder []string
		byStop    map[string][]mbta.Prediction
	}
	type routeAcc struct {
		id           string
		patternOrder []string
		byPattern    map[string]*patternAcc
	}

	var routeOrder []string
	byRoute := make(map[string]*routeAcc)

	for _, p := range predictions {
		pattern, err := RoutePatternForTrip(idx, p.TripID())
		if err != nil {
			return nil, fmt.Errorf("prediction %q: %w", p.ID, err)
		}

		routeID := p.RouteID()
		ra, ok := byRoute[routeID]
		if !ok {
			ra = &routeAcc{id: routeID, byPattern: make(map[string]*patternAcc)}
			byRoute[routeID] = ra
			routeOrder = append(routeOrder, routeID)
		}

		pa, ok := ra.byPattern[pattern.ID]
		if !ok {
			pa = &patternAcc{id: pattern.ID, byStop: make(map[string][]mbta.Prediction)}
			ra.byPattern[pattern.ID] = pa
			ra.patternOrder = append(ra.patternOrder, pattern.ID)
		}

		stopID := p.StopID()
		if _, ok := pa.byStop[stopID]; !ok {
			pa.stopOrder = append(pa.stopOrder, stopID)
		}
		pa.byStop[stopID] = append(pa.byStop[stopID], p)
	}

	SortRouteIDs(routeOrder)

	groups := make([]RouteGroup, 0, len(routeOrder))
	for _, routeID := range routeOrder {
		ra := byRoute[routeID]
		rg := RouteGroup{RouteID: routeID, Patterns: make([]PatternGroup, 0, len(ra.patternOrder))}
		for _, patternID := range ra.patternOrder {
			pa := ra.byPattern[patternID]
			nearest, err := nearestStop(pa.stopOrder, idx, current)
			if err != nil {
				return nil, fmt.Errorf("route pattern %q: %w", patternID, err)
			}
			rg.Patterns = append(rg.Patterns, PatternGroup{
				RoutePatternID: patternID,
				Nearest:        StopGroup{StopID: nearest, Predictions: pa.byStop[nearest]},
			})
		}
		groups = append(groups, rg)
	}
	return groups, nil
}

// nearestStop returns the first stop with the smallest central angle to current.
func nearestStop(stopIDs []string, idx *mbta.Index, current geo.Coordinate) (string, error) {
	best := -1
	bestAngle := 0.0
	for i, id := range stopIDs {
		stop, ok := idx.Stops[id]
		if !ok {
			return "", fmt.Errorf("%w: stop %q not included", ErrInconsistentData, id)
		}
		angle := geo.CentralAngle(stop.Coordinate(), current)
		if best < 0 || angle < bestAngle {
			best, bestAngle = i, angle
		}
	}
	return stopIDs[best], nil
}

// SortRouteIDs orders route ids the way riders read them: digit runs compare
// numerically while letter case and accents are ignored. The sort is stable.
func SortRouteIDs(ids []string) {
	// A Collator is not safe for concurrent use.
	c := collate.New(language.Und, collate.Numeric, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(ids, func(i, j int) bool {
		return c.CompareString(ids[i], ids[j]) < 0
	})
}
