package restapi

import (
	"net/http"

	"walktimes.dev/internal/models"
	"walktimes.dev/internal/utils"
)

const maxCalibrationSamples = 1000

func (api *RestAPI) calibrationSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if api.Store == nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "store not configured", nil)
		return
	}
	summary, err := api.Store.Queries.CalibrationSummary(r.Context())
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(summary, models.NewEmptyReferences()))
}

func (api *RestAPI) calibrationRunHandler(w http.ResponseWriter, r *http.Request) {
	id := utils.ExtractIDFromParams(r, "id")
	if err := utils.ValidateID(id); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"id": {err.Error()}})
		return
	}
	if api.Store == nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "store not configured", nil)
		return
	}

	samples, err := api.Store.Queries.ListCalibrationSamples(r.Context(), id, maxCalibrationSamples+1)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if len(samples) == 0 {
		api.sendNotFound(w, r)
		return
	}
	limitExceeded := len(samples) > maxCalibrationSamples
	if limitExceeded {
		samples = samples[:maxCalibrationSamples]
	}
	api.sendResponse(w, r, models.NewListResponseWithLimit(samples, models.NewEmptyReferences(), limitExceeded))
}
