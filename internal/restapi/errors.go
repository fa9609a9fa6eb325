package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"walktimes.dev/internal/departures"
	"walktimes.dev/internal/gtfs"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/matrix"
	"walktimes.dev/internal/models"
	"walktimes.dev/internal/utils"
)

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, text string, fieldErrors map[string][]string) {
	setJSONResponseType(&w)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(models.NewErrorResponse(code, text, fieldErrors)); err != nil {
		logging.LogError(api.Logger, "failed to encode error response", err,
			slog.Int("status", code))
	}
}

// invalidAPIKeyResponse sends a 401 Unauthorized response for missing or unknown keys.
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied", nil)
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "internal server error", err,
		slog.String("path", r.URL.Path))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error", nil)
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	api.sendError(w, r, http.StatusBadRequest, "invalid request", fieldErrors)
}

// upstreamErrorResponse maps a failed fetch cycle to a status. Inconsistent
// payloads and exhausted upstream retries are both gateway errors, with
// different texts so clients can tell them apart.
func (api *RestAPI) upstreamErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())
	switch {
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// The client went away; nobody is left to read a response.
		logging.LogOperation(logger, "request_cancelled", slog.String("path", r.URL.Path))
	case errors.Is(err, context.DeadlineExceeded):
		logging.LogError(logger, "upstream timeout", err)
		api.sendError(w, r, http.StatusGatewayTimeout, "upstream timeout", nil)
	case errors.Is(err, departures.ErrInconsistentData):
		api.sendError(w, r, http.StatusBadGateway, "inconsistent upstream data", nil)
	case errors.Is(err, utils.ErrUpstream), errors.Is(err, matrix.ErrMatrixCode):
		logging.LogError(logger, "upstream unavailable", err)
		api.sendError(w, r, http.StatusBadGateway, "upstream unavailable", nil)
	case errors.Is(err, gtfs.ErrNotLoaded):
		api.sendError(w, r, http.StatusServiceUnavailable, "schedule not loaded", nil)
	default:
		api.serverErrorResponse(w, r, err)
	}
}
