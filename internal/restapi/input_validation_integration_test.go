package restapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputValidationIntegration(t *testing.T) {
	api := newTestAPI(t, testOptions{})
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	tests := []struct {
		name           string
		endpoint       string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "SQL injection in run id",
			endpoint:       "/api/where/calibration/" + url.PathEscape("run'; DROP TABLE calibration_samples; --") + "?key=TEST",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "id contains invalid characters",
		},
		{
			name:           "Long run id",
			endpoint:       "/api/where/calibration/" + strings.Repeat("a", 101) + "?key=TEST",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "id too long",
		},
		{
			name:           "Path traversal in run id",
			endpoint:       "/api/where/calibration/../../../etc/passwd?key=TEST",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Invalid latitude too high",
			endpoint:       "/api/where/stops-for-location.json?key=TEST&lat=91.0&lon=-71.06",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "latitude must be between -90 and 90",
		},
		{
			name:           "Invalid longitude too high",
			endpoint:       "/api/where/stops-for-location.json?key=TEST&lat=42.35&lon=181.0",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "longitude must be between -180 and 180",
		},
		{
			name:           "Negative radius",
			endpoint:       "/api/where/stops-for-location.json?key=TEST&lat=42.35&lon=-71.06&radius=-0.01",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "radius must be non-negative",
		},
		{
			name:           "Radius too large",
			endpoint:       "/api/where/stops-for-location.json?key=TEST&lat=42.35&lon=-71.06&radius=5",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "radius too large",
		},
		{
			name:           "Script injection in latitude",
			endpoint:       "/api/where/nearby.json?key=TEST&lon=-71.06&lat=" + url.QueryEscape("<script>alert('xss')</script>"),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid field value",
		},
		{
			name:           "Malformed stop list",
			endpoint:       "/api/where/travel-times.json?key=TEST&" + riderQuery + "&stops=" + url.QueryEscape("place-pktrm:north:west"),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid latitude",
		},
		{
			name:           "Snap out of range",
			endpoint:       "/api/where/map.json?key=TEST&" + riderQuery + "&snap=1.5&height=800",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "snap must be between 0 and 1",
		},
		{
			name:           "Negative bottom padding",
			endpoint:       "/api/where/map.json?key=TEST&" + riderQuery + "&padBottom=-10",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "padBottom must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.endpoint)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode, "Expected status code mismatch")

			if tt.expectedError != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), tt.expectedError, "Response should contain expected error message")
			}
		})
	}
}
