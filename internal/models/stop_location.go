package models

// StopLocation is a stop near the rider with straight-line and, when the
// matrix answered, walking distance.
type StopLocation struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	DistanceKm float64 `json:"distanceKm"`
	Direction  string  `json:"direction"`

	WalkingDistanceMiles *float64 `json:"walkingDistanceMiles,omitempty"`
	WalkSeconds          *float64 `json:"walkSeconds,omitempty"`
}
