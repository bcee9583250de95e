package middleware

import (
	"mime"
	"net/http"
	"strings"

	"github.com/windrider/windrider/internal/api/models"
)

// ContentTypeJSON sets the Content-Type header to application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only set if not already set (allows handlers to override)
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// GPXMediaTypes are the request media types accepted for GPX uploads.
var GPXMediaTypes = []string{
	"application/gpx+xml",
	"application/xml",
	"text/xml",
	"application/octet-stream",
}

// RequireContentType rejects POST, PUT and PATCH requests whose Content-Type
// is set and is not one of the allowed media types. Parameters such as
// charset are ignored.
func RequireContentType(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				contentType := r.Header.Get("Content-Type")
				if contentType != "" && !mediaTypeAllowed(contentType, allowed) {
					problem := models.NewUnsupportedMediaType(
						GetRequestID(r.Context()),
						"Content-Type must be one of "+strings.Join(allowed, ", "),
					)
					problem.Instance = r.URL.Path
					problem.Write(w)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON is RequireContentType for application/json.
func RequireJSON(next http.Handler) http.Handler {
	return RequireContentType("application/json")(next)
}

func mediaTypeAllowed(contentType string, allowed []string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(mediaType, a) {
			return true
		}
	}
	return false
}
