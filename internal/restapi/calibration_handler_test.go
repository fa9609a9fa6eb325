package restapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"walktimes.dev/internal/app"
	"walktimes.dev/internal/appconf"
	"walktimes.dev/internal/store"
)

func withStore(t *testing.T) func(*app.Application) {
	return func(application *app.Application) {
		client, err := store.NewClient(store.NewConfig(store.DriverSQLite, ":memory:", appconf.Test, false))
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		application.Store = client
	}
}

func TestCalibrationHandlers(t *testing.T) {
	api := newTestAPI(t, testOptions{prepare: withStore(t)})

	_, err := api.Store.SaveCalibrationRun(context.Background(), []store.CalibrationSample{
		{RunID: "run-1", SourceLat: 42.3551, SourceLon: -71.0656, StopID: "stop-near",
			DestinationLat: 42.3552, DestinationLon: -71.0648, HaversineKm: 0.1, WalkingMiles: 0.1, WalkingSeconds: 120},
		{RunID: "run-1", SourceLat: 42.3551, SourceLon: -71.0656, StopID: "place-pktrm",
			DestinationLat: 42.3564, DestinationLon: -71.0624, HaversineKm: 0.3, WalkingMiles: 0.25, WalkingSeconds: 300},
	})
	require.NoError(t, err)

	t.Run("summary", func(t *testing.T) {
		data := serveOK(t, api, "/api/where/calibration.json?key=TEST")
		entry := data["entry"].(map[string]interface{})
		assert.Equal(t, 2.0, entry["samples"])
		assert.Equal(t, 1.0, entry["runs"])
		assert.InDelta(t, 210.0, entry["avgWalkingSeconds"], 1e-9)
	})

	t.Run("run", func(t *testing.T) {
		data := serveOK(t, api, "/api/where/calibration/run-1.json?key=TEST")
		list := data["list"].([]interface{})
		require.Len(t, list, 2)
		assert.Equal(t, "run-1", list[0].(map[string]interface{})["runId"])
	})

	t.Run("unknown run", func(t *testing.T) {
		response := serveError(t, api, "/api/where/calibration/run-2.json?key=TEST", http.StatusNotFound)
		assert.Equal(t, "resource not found", response.Text)
	})

	t.Run("invalid run id", func(t *testing.T) {
		response := serveError(t, api, "/api/where/calibration/run%3B1.json?key=TEST", http.StatusBadRequest)
		assert.Contains(t, response.FieldErrors, "id")
	})
}

func TestCalibrationHandlersWithoutStore(t *testing.T) {
	api := newTestAPI(t, testOptions{})

	response := serveError(t, api, "/api/where/calibration.json?key=TEST", http.StatusServiceUnavailable)
	assert.Equal(t, "store not configured", response.Text)
	serveError(t, api, "/api/where/calibration/run-1.json?key=TEST", http.StatusServiceUnavailable)
}
