package restapi

import (
	"log/slog"
	"net/http"
	"sort"

	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/matrix"
	"walktimes.dev/internal/models"
	"walktimes.dev/internal/utils"
)

const (
	// defaultStopRadius is in degrees, as the stops endpoint of the feed expects.
	defaultStopRadius = 0.01
	maxStopsReturned  = 100
)

func (api *RestAPI) stopsForLocationHandler(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()

	coord, fieldErrors := api.riderLocation(queryParams)
	radius, fieldErrors := utils.ParseFloatParam(queryParams, "radius", fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	if locationErrors := utils.ValidateLocationParams(coord.Latitude, coord.Longitude, radius); len(locationErrors) > 0 {
		api.validationErrorResponse(w, r, locationErrors)
		return
	}
	if radius == 0 {
		radius = defaultStopRadius
	}

	ctx := r.Context()
	stops, err := api.StopFinder.StopsNear(ctx, coord, radius)
	if err != nil {
		api.upstreamErrorResponse(w, r, err)
		return
	}

	results := make([]models.StopLocation, 0, len(stops))
	for _, stop := range stops {
		c := stop.Coordinate()
		results = append(results, models.StopLocation{
			ID:         stop.ID,
			Name:       stop.Attributes.Name,
			Lat:        c.Latitude,
			Lon:        c.Longitude,
			DistanceKm: geo.DistanceKm(coord, c),
			Direction:  geo.Compass(coord, c),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	limitExceeded := len(results) > maxStopsReturned
	if limitExceeded {
		results = results[:maxStopsReturned]
	}

	api.addWalkingEstimates(r, coord, results)

	refs := models.NewEmptyReferences()
	for _, s := range results {
		refs.Stops = append(refs.Stops, models.NewStopReference(s.ID, s.Name, s.Lat, s.Lon))
	}
	api.sendResponse(w, r, models.NewListResponseWithLimit(results, refs, limitExceeded))
}

// addWalkingEstimates fills in walking figures where the matrix has them. A
// matrix failure leaves the straight-line figures alone.
func (api *RestAPI) addWalkingEstimates(r *http.Request, coord geo.Coordinate, results []models.StopLocation) {
	if api.Matrix == nil || len(results) == 0 {
		return
	}
	dests := make([]matrix.Destination, len(results))
	for i, s := range results {
		dests[i] = matrix.Destination{StopID: s.ID, Coordinate: geo.Coordinate{Latitude: s.Lat, Longitude: s.Lon}}
	}
	estimates, err := api.Matrix.TravelTimes(r.Context(), coord, dests)
	if err != nil {
		logging.LogError(logging.FromContext(r.Context()), "walking estimates unavailable", err,
			slog.Int("stops", len(dests)))
		return
	}
	for i := range results {
		if e, ok := estimates[results[i].ID]; ok {
			results[i].WalkingDistanceMiles = &e.DistanceMiles
			results[i].WalkSeconds = &e.DurationSeconds
		}
	}
}
