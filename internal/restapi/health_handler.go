package restapi

import (
	"context"
	"net/http"
	"time"

	"walktimes.dev/internal/gtfs"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/models"
)

type healthStatus struct {
	Status string      `json:"status"`
	Source string      `json:"source"`
	Store  string      `json:"store"`
	Gtfs   *gtfs.Stats `json:"gtfs,omitempty"`
}

// healthHandler needs no key. It fails only when a configured store is unreachable.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Source: api.Nearby.SourceName(), Store: "disabled"}

	if api.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := api.Store.Ping(ctx); err != nil {
			logging.LogError(logging.FromContext(r.Context()), "store health check failed", err)
			api.sendError(w, r, http.StatusServiceUnavailable, "store unavailable", nil)
			return
		}
		status.Store = "ok"
	}
	if api.GtfsManager != nil {
		stats := api.GtfsManager.Stats()
		status.Gtfs = &stats
	}

	api.sendResponse(w, r, models.NewOKResponse(status))
}
