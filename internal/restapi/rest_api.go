package restapi

import (
	"net/http"
	"time"

	"walktimes.dev/internal/app"
)

type RestAPI struct {
	*app.Application
	limiter *RateLimitMiddleware
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
		limiter:     NewRateLimitMiddleware(app.Config.RateLimit, time.Second),
	}
}

func (api *RestAPI) rateLimiter(next http.Handler) http.Handler {
	return api.limiter.Handler(next)
}

// Close stops the rate limiter's cleanup goroutine.
func (api *RestAPI) Close() {
	api.limiter.Stop()
}
