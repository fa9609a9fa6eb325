package restapi

import (
	"net/http"
	"time"

	"walktimes.dev/internal/models"
)

// currentTimeHandler reports the server clock in the zone departures are shown in.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	timeData := models.NewCurrentTimeData(time.Now(), api.Config.Location)
	api.sendResponse(w, r, models.NewOKResponse(timeData))
}
