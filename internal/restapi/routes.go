package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"walktimes.dev/internal/webui"
)

func validateAPIKey(api *RestAPI, finalHandler http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

// protected requires a valid key and counts the request against its rate limit.
func (api *RestAPI) protected(h http.HandlerFunc) http.Handler {
	return api.rateLimiter(validateAPIKey(api, h))
}

func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/api/where/nearby.json", api.protected(api.nearbyHandler))
	router.Handler(http.MethodGet, "/api/where/map.json", api.protected(api.mapHandler))
	router.Handler(http.MethodGet, "/api/where/stops-for-location.json", api.protected(api.stopsForLocationHandler))
	router.Handler(http.MethodGet, "/api/where/travel-times.json", api.protected(api.travelTimesHandler))
	router.Handler(http.MethodGet, "/api/where/calibration.json", api.protected(api.calibrationSummaryHandler))
	router.Handler(http.MethodGet, "/api/where/calibration/:id", api.protected(api.calibrationRunHandler))
	router.Handler(http.MethodGet, "/api/where/current-time.json", api.protected(api.currentTimeHandler))

	router.HandlerFunc(http.MethodGet, "/healthz", api.healthHandler)
	if api.Config.MetricsEnabled && api.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", api.Metrics.Handler())
	}
	webui.SetWebUIRoutes(router, api.Application)

	router.NotFound = http.HandlerFunc(api.sendNotFound)
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.sendError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
}

// Handler is the full server handler: routes wrapped in compression, CORS,
// security headers and request logging, outermost last.
func (api *RestAPI) Handler() http.Handler {
	router := httprouter.New()
	// CORS answers preflights before the router sees them.
	router.HandleOPTIONS = false
	api.SetRoutes(router)

	var handler http.Handler = router
	handler = CompressionMiddleware(handler)
	handler = corsMiddleware(api.Config.CORSOrigins)(handler)
	handler = securityHeaders(handler)
	var observer HTTPObserver
	if api.Metrics != nil {
		observer = api.Metrics
	}
	handler = NewRequestLoggingMiddleware(api.Logger, observer)(handler)
	return handler
}
