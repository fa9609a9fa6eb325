package departures

import (
	"errors"
	"sort"
	"strings"
	"time"

	"walktimes.dev/internal/mbta"
)

var ErrNoPredictions = errors.New("no predictions")

// SortByEffectiveTime returns a copy of preds ordered by departure time,
// falling back to arrival time, compared as strings. Equal keys keep their order.
func SortByEffectiveTime(preds []mbta.Prediction) []mbta.Prediction {
	sorted := make([]mbta.Prediction, len(preds))
	copy(sorted, preds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveTime() < sorted[j].EffectiveTime()
	})
	return sorted
}

// Selection is the prediction to feature plus every prediction in effective time order.
type Selection struct {
	Next mbta.Prediction
	All  []mbta.Prediction
}

// SelectNext picks the earliest prediction whose departure is strictly after
// now plus the walk. With no walk estimate, or when nothing is reachable, the
// earliest prediction is picked. walkSeconds is nil when unknown.
func SelectNext(preds []mbta.Prediction, walkSeconds *float64, now time.Time) (Selection, error) {
	if len(preds) == 0 {
		return Selection{}, ErrNoPredictions
	}
	sorted := SortByEffectiveTime(preds)
	sel := Selection{Next: sorted[0], All: sorted}
	if walkSeconds == nil {
		return sel, nil
	}

	arrive := now.Add(secondsToDuration(*walkSeconds))
	for _, p := range sorted {
		if dep, ok := p.Departure(); ok && dep.After(arrive) {
			sel.Next = p
			break
		}
	}
	return sel, nil
}

// Reachable reports whether p departs strictly after now plus the walk.
// Predictions without a departure time are never reachable.
func Reachable(p mbta.Prediction, walkSeconds *float64, now time.Time) bool {
	dep, ok := p.Departure()
	if !ok {
		return false
	}
	if walkSeconds == nil {
		return dep.After(now)
	}
	return dep.After(now.Add(secondsToDuration(*walkSeconds)))
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// RouteDisplayName is the short name, or the long name without a trailing " Line".
func RouteDisplayName(route mbta.Route) string {
	if route.Attributes.ShortName != "" {
		return route.Attributes.ShortName
	}
	return strings.TrimSuffix(route.Attributes.LongName, " Line")
}
