package restapi

import (
	"net/http"

	"walktimes.dev/internal/matrix"
	"walktimes.dev/internal/models"
	"walktimes.dev/internal/utils"
)

// maxTravelTimeStops keeps one request to a handful of matrix batches.
const maxTravelTimeStops = 100

// travelTimesHandler exposes the adapter directly: stops=id:lat:lon,...
// Stops the matrix could not route to are left out of the list.
func (api *RestAPI) travelTimesHandler(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	coord, fieldErrors := api.riderLocation(params)
	stops, err := utils.ParseStopList(params.Get("stops"), maxTravelTimeStops)
	if err != nil {
		if fieldErrors == nil {
			fieldErrors = make(map[string][]string)
		}
		fieldErrors["stops"] = append(fieldErrors["stops"], err.Error())
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	if api.Matrix == nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "walking estimates unavailable", nil)
		return
	}

	dests := make([]matrix.Destination, len(stops))
	for i, s := range stops {
		dests[i] = matrix.Destination{StopID: s.ID, Coordinate: s.Coordinate}
	}
	estimates, err := api.Matrix.TravelTimes(r.Context(), coord, dests)
	if err != nil {
		api.upstreamErrorResponse(w, r, err)
		return
	}

	entries := make([]models.TravelTimeEntry, 0, len(dests))
	for _, d := range matrix.Dedupe(dests) {
		e, ok := estimates[d.StopID]
		if !ok {
			continue
		}
		entries = append(entries, models.TravelTimeEntry{
			StopID:          d.StopID,
			Lat:             d.Coordinate.Latitude,
			Lon:             d.Coordinate.Longitude,
			DistanceMiles:   e.DistanceMiles,
			DurationSeconds: e.DurationSeconds,
		})
	}
	api.sendResponse(w, r, models.NewListResponse(entries, models.NewEmptyReferences()))
}
