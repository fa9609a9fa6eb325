package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"walktimes.dev/internal/geo"
)

// ParseFloatParam retrieves a float64 value from the provided URL query parameters.
// A missing key yields 0 and no error; an unparsable value is recorded in fieldErrors.
func ParseFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return 0, fieldErrors
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
	}
	return f, fieldErrors
}

// ParseRequiredFloatParam is ParseFloatParam for keys that must be present.
func ParseRequiredFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}
	if params.Get(key) == "" {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Missing required field %q.", key))
		return 0, fieldErrors
	}
	return ParseFloatParam(params, key, fieldErrors)
}

// ParseLocation reads the required lat and lon parameters and checks their ranges.
func ParseLocation(params url.Values, fieldErrors map[string][]string) (geo.Coordinate, map[string][]string) {
	lat, fieldErrors := ParseRequiredFloatParam(params, "lat", fieldErrors)
	lon, fieldErrors := ParseRequiredFloatParam(params, "lon", fieldErrors)
	if len(fieldErrors) > 0 {
		return geo.Coordinate{}, fieldErrors
	}
	for field, errs := range ValidateLocationParams(lat, lon, 0) {
		fieldErrors[field] = append(fieldErrors[field], errs...)
	}
	return geo.Coordinate{Latitude: lat, Longitude: lon}, fieldErrors
}

// StopPoint is one entry of a stops=id:lat:lon,... parameter.
type StopPoint struct {
	ID         string
	Coordinate geo.Coordinate
}

// ParseStopList parses "id:lat:lon" entries separated by commas. Stop ids may
// themselves contain colons, so the last two fields are the coordinate.
func ParseStopList(raw string, maxStops int) ([]StopPoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("no stops given")
	}

	entries := strings.Split(raw, ",")
	if maxStops > 0 && len(entries) > maxStops {
		return nil, fmt.Errorf("too many stops (max %d)", maxStops)
	}

	stops := make([]StopPoint, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 3 {
			return nil, fmt.Errorf("invalid stop %q, expected id:lat:lon", entry)
		}
		n := len(parts)
		id := strings.Join(parts[:n-2], ":")
		if err := ValidateID(id); err != nil {
			return nil, fmt.Errorf("invalid stop %q: %w", entry, err)
		}
		lat, err := strconv.ParseFloat(parts[n-2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in %q", entry)
		}
		lon, err := strconv.ParseFloat(parts[n-1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in %q", entry)
		}
		c := geo.Coordinate{Latitude: lat, Longitude: lon}
		if err := geo.Validate(c); err != nil {
			return nil, fmt.Errorf("invalid stop %q: %w", entry, err)
		}
		stops = append(stops, StopPoint{ID: id, Coordinate: c})
	}
	return stops, nil
}
