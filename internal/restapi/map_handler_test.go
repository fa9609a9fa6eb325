package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHandler(t *testing.T) {
	api := newTestAPI(t, testOptions{})

	testCases := []struct {
		name   string
		query  string
		bottom float64
	}{
		{name: "no padding", query: "", bottom: 0},
		{name: "explicit padding", query: "&padBottom=240", bottom: 240},
		{name: "drawer at middle snap", query: "&snap=0.5&height=800", bottom: 400},
		{name: "drawer above middle snap is capped", query: "&snap=0.95&height=800", bottom: 400},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := serveOK(t, api, "/api/where/map.json?key=TEST&"+riderQuery+tc.query)
			entry := data["entry"].(map[string]interface{})

			padding := entry["padding"].(map[string]interface{})
			assert.Equal(t, tc.bottom, padding["bottom"])

			markers := entry["markers"].([]interface{})
			require.Len(t, markers, 4, "two stops, one vehicle and the rider")
			me := markers[len(markers)-1].(map[string]interface{})
			assert.Equal(t, "me", me["kind"])
			assert.Equal(t, 42.3551, me["lat"])
		})
	}
}

func TestMapHandlerValidation(t *testing.T) {
	api := newTestAPI(t, testOptions{})

	testCases := []struct {
		name  string
		query string
		field string
	}{
		{name: "negative padding", query: "&padBottom=-1", field: "padBottom"},
		{name: "snap out of range", query: "&snap=2&height=800", field: "snap"},
		{name: "snap without height", query: "&snap=0.5", field: "height"},
		{name: "zero height", query: "&snap=0.5&height=0", field: "height"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			response := serveError(t, api, "/api/where/map.json?key=TEST&"+riderQuery+tc.query, http.StatusBadRequest)
			assert.Contains(t, response.FieldErrors, tc.field)
		})
	}
}
