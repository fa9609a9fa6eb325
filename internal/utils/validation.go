package utils

import (
	"errors"
	"math"
	"regexp"

	"walktimes.dev/internal/geo"
)

// Allow alphanumeric, underscore, hyphen, dot and colon - common in transit IDs
var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// MaxRadiusDegrees bounds stop searches to roughly 11 km.
const MaxRadiusDegrees = 0.1

// ValidateID validates that an ID is safe and within reasonable limits
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > 100 {
		return errors.New("id too long (max 100 characters)")
	}
	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}
	return nil
}

// ValidateLatitude validates latitude values
func ValidateLatitude(lat float64) error {
	if math.IsNaN(lat) || lat < -90.0 || lat > 90.0 {
		return geo.ErrLatitudeRange
	}
	return nil
}

// ValidateLongitude validates longitude values
func ValidateLongitude(lon float64) error {
	if math.IsNaN(lon) || lon < -180.0 || lon > 180.0 {
		return geo.ErrLongitudeRange
	}
	return nil
}

// ValidateRadius validates a search radius in degrees.
func ValidateRadius(radius float64) error {
	if radius < 0 {
		return errors.New("radius must be non-negative")
	}
	if radius > MaxRadiusDegrees {
		return errors.New("radius too large (max 0.1 degrees)")
	}
	return nil
}

// ValidateSnap validates a sheet snap point as a fraction of the viewport.
func ValidateSnap(snap float64) error {
	if snap < 0 || snap > 1 {
		return errors.New("snap must be between 0 and 1")
	}
	return nil
}

// ValidateViewportHeight validates a viewport height in pixels.
func ValidateViewportHeight(height float64) error {
	if height <= 0 || height > 10000 {
		return errors.New("height must be between 0 and 10000")
	}
	return nil
}

// ValidateLocationParams validates a complete set of location parameters.
// A zero radius means the caller's default.
func ValidateLocationParams(lat, lon, radius float64) map[string][]string {
	fieldErrors := make(map[string][]string)

	if err := ValidateLatitude(lat); err != nil {
		fieldErrors["lat"] = append(fieldErrors["lat"], err.Error())
	}
	if err := ValidateLongitude(lon); err != nil {
		fieldErrors["lon"] = append(fieldErrors["lon"], err.Error())
	}
	if radius != 0 {
		if err := ValidateRadius(radius); err != nil {
			fieldErrors["radius"] = append(fieldErrors["radius"], err.Error())
		}
	}

	return fieldErrors
}
