package departures

import (
	"time"

	"walktimes.dev/internal/mbta"
)

// ClockLayout renders departure and arrival times for the board.
const ClockLayout = "15:04"

// Display holds the rendered fields for a featured prediction.
type Display struct {
	// PrimaryText is the upstream status when present, else the departure
	// clock time, else the arrival clock time.
	PrimaryText string
	// FromStatus is set when PrimaryText came from the status string.
	FromStatus bool
	// LeaveAt is the departure time minus the walk; nil when either is unknown.
	LeaveAt   *time.Time
	Reachable bool
}

// Describe applies the display rule to next. Clock times are rendered in loc.
func Describe(next mbta.Prediction, walkSeconds *float64, now time.Time, loc *time.Location) Display {
	if loc == nil {
		loc = time.Local
	}
	d := Display{Reachable: Reachable(next, walkSeconds, now)}

	dep, hasDep := next.Departure()
	switch {
	case next.Attributes.Status != nil:
		d.PrimaryText = *next.Attributes.Status
		d.FromStatus = true
	case hasDep:
		d.PrimaryText = dep.In(loc).Format(ClockLayout)
	default:
		if arr, ok := next.Arrival(); ok {
			d.PrimaryText = arr.In(loc).Format(ClockLayout)
		}
	}

	if hasDep && walkSeconds != nil {
		leave := dep.Add(-secondsToDuration(*walkSeconds))
		d.LeaveAt = &leave
	}
	return d
}
