package webui

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"walktimes.dev/internal/app"
	"walktimes.dev/internal/geo"
)

// WebUI serves human-readable dumps of each pipeline stage.
type WebUI struct {
	*app.Application
}

func SetWebUIRoutes(router *httprouter.Router, application *app.Application) {
	webUI := &WebUI{Application: application}
	router.HandlerFunc(http.MethodGet, "/debug/", webUI.debugIndexHandler)
}

func (webUI *WebUI) pipelineStage(r *http.Request, stage string, coord geo.Coordinate) (interface{}, string) {
	ctx := r.Context()
	source := webUI.Nearby.SourceName()

	if stage == "board" {
		board, err := webUI.Nearby.Board(ctx, coord)
		if err != nil {
			return errorData(err), "Board - error"
		}
		return board, "Board (" + source + ") at " + coord.String()
	}

	snap, err := webUI.Nearby.Snapshot(ctx, coord)
	if err != nil {
		return errorData(err), "Snapshot - error"
	}
	if stage == "grouped" {
		return snap.Groups, "Grouped predictions (" + source + ") at " + coord.String()
	}
	return snap.Payload, "Prediction payload (" + source + ") at " + coord.String()
}

func (webUI *WebUI) gtfsData(dataType string) (interface{}, string) {
	if webUI.GtfsManager == nil {
		return map[string]string{"error": "the gtfs source is not enabled"}, "GTFS"
	}
	switch dataType {
	case "realtime_trips":
		return webUI.GtfsManager.GetRealTimeTrips(), "GTFS Realtime - Trips"
	case "realtime_vehicles":
		return webUI.GtfsManager.GetRealTimeVehicles(), "GTFS Realtime - Vehicles"
	default:
		return webUI.GtfsManager.Stats(), "GTFS Statistics"
	}
}

func (webUI *WebUI) storeData(r *http.Request) (interface{}, string) {
	if webUI.Store == nil {
		return map[string]string{"error": "no store configured"}, "Store"
	}
	counts, err := webUI.Store.TableCounts(r.Context())
	if err != nil {
		return errorData(err), "Store - error"
	}
	return counts, "Store - row counts"
}

func errorData(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
