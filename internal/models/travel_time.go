package models

// TravelTimeEntry is one walking estimate from an origin to a stop.
type TravelTimeEntry struct {
	StopID          string  `json:"stopId"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	DistanceMiles   float64 `json:"distanceMiles"`
	DurationSeconds float64 `json:"durationSeconds"`
}
