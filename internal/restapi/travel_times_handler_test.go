package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTravelTimesHandler(t *testing.T) {
	api := newTestAPI(t, testOptions{})

	data := serveOK(t, api, "/api/where/travel-times.json?key=TEST&"+riderQuery+
		"&stops=place-pktrm:42.3564:-71.0624,stop-near:42.3552:-71.0648,place-pktrm:42.3564:-71.0624")

	list := data["list"].([]interface{})
	require.Len(t, list, 2, "repeated stops are estimated once")
	first := list[0].(map[string]interface{})
	assert.Equal(t, "place-pktrm", first["stopId"])
	assert.Equal(t, 300.0, first["durationSeconds"])
	assert.InDelta(t, 0.25, first["distanceMiles"], 1e-3)
}

func TestTravelTimesHandlerOmitsUnroutableStops(t *testing.T) {
	api := newTestAPI(t, testOptions{matrix: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok","distances":[[0,null,804.672]],"durations":[[0,null,600]]}`))
	}})

	data := serveOK(t, api, "/api/where/travel-times.json?key=TEST&"+riderQuery+
		"&stops=island:42.3:-70.9,stop-near:42.3552:-71.0648")

	list := data["list"].([]interface{})
	require.Len(t, list, 1, "a stop with null cells is absent")
	near := list[0].(map[string]interface{})
	assert.Equal(t, "stop-near", near["stopId"])
	assert.Equal(t, 600.0, near["durationSeconds"])
}

func TestTravelTimesHandlerErrors(t *testing.T) {
	api := newTestAPI(t, testOptions{})

	testCases := []struct {
		name  string
		stops string
	}{
		{name: "missing", stops: ""},
		{name: "no coordinate", stops: "place-pktrm"},
		{name: "bad latitude", stops: "place-pktrm:north:-71.06"},
		{name: "out of range", stops: "place-pktrm:142.3:-71.06"},
		{name: "bad id", stops: "park%20street:42.3:-71.06"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			response := serveError(t, api, "/api/where/travel-times.json?key=TEST&"+riderQuery+"&stops="+tc.stops, http.StatusBadRequest)
			assert.Contains(t, response.FieldErrors, "stops")
		})
	}

	t.Run("matrix not configured", func(t *testing.T) {
		api := newTestAPI(t, testOptions{noWalk: true})
		response := serveError(t, api, "/api/where/travel-times.json?key=TEST&"+riderQuery+"&stops=a:42.3:-71.06", http.StatusServiceUnavailable)
		assert.Equal(t, "walking estimates unavailable", response.Text)
	})

	t.Run("matrix error code", func(t *testing.T) {
		api := newTestAPI(t, testOptions{matrix: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":"NoRoute"}`))
		}})
		response := serveError(t, api, "/api/where/travel-times.json?key=TEST&"+riderQuery+"&stops=a:42.3:-71.06", http.StatusBadGateway)
		assert.Equal(t, "upstream unavailable", response.Text)
	})
}
