package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/windrider/windrider/internal/api/response"
	"github.com/windrider/windrider/internal/route"
	"github.com/windrider/windrider/internal/scoring"
)

// maxJSONBodyBytes bounds JSON request bodies. A route with the maximum number
// of coordinates fits comfortably.
const maxJSONBodyBytes = 8 << 20

// decodeJSON decodes the request body into v, writing a 400 and returning
// false when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			response.PayloadTooLarge(w, r, "request body too large")
		case errors.Is(err, io.EOF):
			response.BadRequest(w, r, "request body is required", nil)
		default:
			response.BadRequest(w, r, "invalid JSON body", nil)
		}
		return false
	}
	return true
}

// writeServiceError maps errors returned by the route and scoring services to
// problem responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var routeErr *route.ValidationError
	var scoringErr *scoring.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		response.PayloadTooLarge(w, r, "request body too large")
	case errors.As(err, &routeErr):
		response.BadRequest(w, r, "validation error", routeErr.Errors)
	case errors.As(err, &scoringErr):
		response.BadRequest(w, r, "validation error", scoringErr.Errors)
	case errors.Is(err, route.ErrRouteNotFound):
		response.NotFound(w, r, "route not found")
	default:
		response.InternalError(w, r, fallback)
	}
}
