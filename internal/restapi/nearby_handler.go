package restapi

import (
	"net/http"
	"net/url"

	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/mbta"
	"walktimes.dev/internal/models"
	"walktimes.dev/internal/nearby"
	"walktimes.dev/internal/utils"
)

// riderLocation reads lat and lon, falling back to the configured default
// location when both are omitted.
func (api *RestAPI) riderLocation(params url.Values) (geo.Coordinate, map[string][]string) {
	if params.Get("lat") == "" && params.Get("lon") == "" && api.Config.DefaultLocation != nil {
		return *api.Config.DefaultLocation, nil
	}
	return utils.ParseLocation(params, nil)
}

func (api *RestAPI) nearbyHandler(w http.ResponseWriter, r *http.Request) {
	coord, fieldErrors := api.riderLocation(r.URL.Query())
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	board, snap, err := api.Nearby.BoardWithSnapshot(r.Context(), coord)
	if err != nil {
		api.upstreamErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(board, boardReferences(board, snap.Index)))
}

// boardReferences lists the routes and stops shown on the board, in board order.
func boardReferences(board *nearby.Board, idx *mbta.Index) models.ReferencesModel {
	refs := models.NewEmptyReferences()
	seenStops := make(map[string]bool)
	for _, entry := range board.Routes {
		if route, ok := idx.Routes[entry.RouteID]; ok {
			a := route.Attributes
			refs.Routes = append(refs.Routes,
				models.NewRouteReference(route.ID, a.ShortName, a.LongName, a.Color, a.TextColor, a.Type))
		}
		for _, p := range entry.Patterns {
			if seenStops[p.Stop.ID] {
				continue
			}
			seenStops[p.Stop.ID] = true
			refs.Stops = append(refs.Stops, models.NewStopReference(p.Stop.ID, p.Stop.Name, p.Stop.Lat, p.Stop.Lon))
		}
	}
	return refs
}
