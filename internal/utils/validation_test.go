package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
		errMsg  string
	}{
		{name: "numeric stop", id: "70075"},
		{name: "parent station", id: "place-pktrm"},
		{name: "route pattern", id: "Red-1-0"},
		{name: "colon separated", id: "node:door:1"},
		{name: "valid ID with dots", id: "stop.456"},
		{name: "empty ID", id: "", wantErr: true, errMsg: "id cannot be empty"},
		{name: "ID too long", id: strings.Repeat("a", 101), wantErr: true, errMsg: "id too long (max 100 characters)"},
		{name: "ID with markup", id: "stop<script>", wantErr: true, errMsg: "id contains invalid characters"},
		{name: "ID with SQL injection attempt", id: "x'; DROP TABLE travel_times; --", wantErr: true, errMsg: "id contains invalid characters"},
		{name: "ID with path traversal", id: "../../../etc/passwd", wantErr: true, errMsg: "id contains invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if tt.wantErr {
				assert.ErrorContains(t, err, tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name     string
		validate func(float64) error
		value    float64
		wantErr  bool
	}{
		{name: "latitude in range", validate: ValidateLatitude, value: 42.3551},
		{name: "latitude at pole", validate: ValidateLatitude, value: -90},
		{name: "latitude too large", validate: ValidateLatitude, value: 90.1, wantErr: true},
		{name: "longitude in range", validate: ValidateLongitude, value: -71.0656},
		{name: "longitude at antimeridian", validate: ValidateLongitude, value: 180},
		{name: "longitude too small", validate: ValidateLongitude, value: -180.5, wantErr: true},
		{name: "radius default", validate: ValidateRadius, value: 0.005},
		{name: "radius at max", validate: ValidateRadius, value: MaxRadiusDegrees},
		{name: "radius negative", validate: ValidateRadius, value: -0.01, wantErr: true},
		{name: "radius too large", validate: ValidateRadius, value: 0.5, wantErr: true},
		{name: "snap half", validate: ValidateSnap, value: 0.5},
		{name: "snap above one", validate: ValidateSnap, value: 1.5, wantErr: true},
		{name: "height typical", validate: ValidateViewportHeight, value: 844},
		{name: "height zero", validate: ValidateViewportHeight, value: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateLocationParams(t *testing.T) {
	assert.Empty(t, ValidateLocationParams(42.3551, -71.0656, 0))
	assert.Empty(t, ValidateLocationParams(42.3551, -71.0656, 0.01))

	errs := ValidateLocationParams(91, -181, 1)
	assert.Len(t, errs, 3)
	assert.Contains(t, errs["lat"], "latitude must be between -90 and 90")
	assert.Contains(t, errs["lon"], "longitude must be between -180 and 180")
	assert.Contains(t, errs["radius"], "radius too large (max 0.1 degrees)")
}
