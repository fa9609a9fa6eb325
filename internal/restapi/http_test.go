package restapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"walktimes.dev/internal/app"
	"walktimes.dev/internal/appconf"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/matrix"
	"walktimes.dev/internal/mbta"
	"walktimes.dev/internal/metrics"
	"walktimes.dev/internal/models"
	"walktimes.dev/internal/nearby"
)

var rider = geo.Coordinate{Latitude: 42.3551, Longitude: -71.0656}

const riderQuery = "lat=42.3551&lon=-71.0656"

const testStops = `{"data":[
{"type":"stop","id":"place-pktrm","attributes":{"latitude":42.3564,"longitude":-71.0624,"name":"Park Street"}},
{"type":"stop","id":"stop-near","attributes":{"latitude":42.3552,"longitude":-71.0648,"name":"Tremont St @ Boylston St"}}
]}`

func boston(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// mbtaHandler serves the predictions fixture and a two-stop /stops document.
func mbtaHandler(t *testing.T) http.Handler {
	t.Helper()
	fixture, err := os.ReadFile(models.GetFixturePath(t, "predictions.json"))
	require.NoError(t, err)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.api+json")
		switch r.URL.Path {
		case "/predictions":
			_, _ = w.Write(fixture)
		case "/stops":
			_, _ = w.Write([]byte(testStops))
		default:
			http.NotFound(w, r)
		}
	})
}

// matrixHandler answers every destination with a quarter mile walk of
// 300 seconds.
func matrixHandler(w http.ResponseWriter, r *http.Request) {
	segments := strings.Split(r.URL.Path, "/")
	waypoints := strings.Count(segments[len(segments)-1], ";") + 1

	distances := make([]string, waypoints)
	durations := make([]string, waypoints)
	distances[0], durations[0] = "0", "0"
	for i := 1; i < waypoints; i++ {
		distances[i], durations[i] = "402.336", "300"
	}
	_, _ = fmt.Fprintf(w, `{"code":"Ok","distances":[[%s]],"durations":[[%s]]}`,
		strings.Join(distances, ","), strings.Join(durations, ","))
}

type testOptions struct {
	mbta    http.Handler
	matrix  http.HandlerFunc
	noWalk  bool
	config  func(*appconf.Config)
	prepare func(*app.Application)
}

func newTestAPI(t *testing.T, opts testOptions) *RestAPI {
	t.Helper()
	loc := boston(t)

	if opts.mbta == nil {
		opts.mbta = mbtaHandler(t)
	}
	mbtaServer := httptest.NewServer(opts.mbta)
	t.Cleanup(mbtaServer.Close)

	cfg := appconf.Config{
		Env:            appconf.Test,
		ApiKeys:        []string{"TEST"},
		RateLimit:      100,
		Source:         appconf.SourceMBTA,
		Location:       loc,
		MetricsEnabled: true,
	}
	if opts.config != nil {
		opts.config(&cfg)
	}

	collector := metrics.NewCollector()
	client := mbta.NewClient(mbta.Config{BaseURL: mbtaServer.URL, Observer: collector})

	application := &app.Application{
		Config:     cfg,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:    collector,
		MBTA:       client,
		StopFinder: client,
		Tracker:    nearby.NewTracker(),
	}

	var travel nearby.TravelTimer
	if !opts.noWalk {
		if opts.matrix == nil {
			opts.matrix = matrixHandler
		}
		matrixServer := httptest.NewServer(opts.matrix)
		t.Cleanup(matrixServer.Close)
		application.MatrixAPI = matrix.NewClient(matrix.ClientConfig{BaseURL: matrixServer.URL, Token: "pk.test"})
		application.Matrix = matrix.NewAdapter(application.MatrixAPI)
		travel = application.Matrix
	}

	now := time.Date(2024, 5, 1, 9, 50, 0, 0, loc)
	application.Nearby = nearby.NewService(client, travel, nearby.Options{
		TimeZone: loc,
		Observer: collector,
		Now:      func() time.Time { return now },
	})
	if opts.prepare != nil {
		opts.prepare(application)
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Close)
	return api
}

func serve(t *testing.T, api *RestAPI, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

// serveOK requests path, expects a 200 envelope and returns its data object.
func serveOK(t *testing.T, api *RestAPI, path string) map[string]interface{} {
	t.Helper()
	rec := serve(t, api, path)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response models.ResponseModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 200, response.Code)
	require.Equal(t, "OK", response.Text)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok, "data should be an object")
	return data
}

func serveError(t *testing.T, api *RestAPI, path string, status int) models.ErrorResponse {
	t.Helper()
	rec := serve(t, api, path)
	require.Equal(t, status, rec.Code, rec.Body.String())

	var response models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, status, response.Code)
	return response
}
