package restapi

import (
	"net/http"

	"walktimes.dev/internal/models"
	"walktimes.dev/internal/nearby"
	"walktimes.dev/internal/utils"
)

// mapHandler returns markers, shapes and padding for the map behind the board.
// Bottom padding is either given in pixels (padBottom) or derived from the
// drawer position (snap and height).
func (api *RestAPI) mapHandler(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	coord, fieldErrors := api.riderLocation(params)
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	var padding nearby.Padding
	switch {
	case params.Has("padBottom"):
		padding.Bottom, fieldErrors = utils.ParseFloatParam(params, "padBottom", fieldErrors)
		if padding.Bottom < 0 {
			fieldErrors["padBottom"] = append(fieldErrors["padBottom"], "padBottom must be non-negative")
		}
	case params.Has("snap"):
		var snap, height float64
		snap, fieldErrors = utils.ParseFloatParam(params, "snap", fieldErrors)
		height, fieldErrors = utils.ParseRequiredFloatParam(params, "height", fieldErrors)
		if len(fieldErrors) == 0 {
			if err := utils.ValidateSnap(snap); err != nil {
				fieldErrors["snap"] = append(fieldErrors["snap"], err.Error())
			}
			if err := utils.ValidateViewportHeight(height); err != nil {
				fieldErrors["height"] = append(fieldErrors["height"], err.Error())
			}
		}
		padding.Bottom = nearby.BottomPadding(snap, height)
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	view, err := api.Nearby.MapView(r.Context(), coord, padding)
	if err != nil {
		api.upstreamErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(view, models.NewEmptyReferences()))
}
