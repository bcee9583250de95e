package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/windrider/windrider/internal/api/models"
	"github.com/windrider/windrider/internal/auth"
)

type deviceIDKey struct{}

// TokenValidator validates a bearer token and returns the device it belongs to.
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

// Auth requires a valid device bearer token and puts the device ID on the
// request context. Failures are answered with a 401 problem and a
// WWW-Authenticate challenge.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r.Header.Get("Authorization"))
			if problem != "" {
				unauthorized(w, r, "", problem)
				return
			}

			deviceID, err := validator.ValidateAccessToken(token)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrAccessTokenExpired):
				unauthorized(w, r, "invalid_token", "access token has expired")
				return
			case errors.Is(err, auth.ErrInvalidAccessToken):
				unauthorized(w, r, "invalid_token", "invalid access token")
				return
			default:
				unauthorized(w, r, "invalid_token", "authentication failed")
				return
			}

			recordDeviceID(r.Context(), deviceID)
			next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), deviceID)))
		})
	}
}

// bearerToken extracts the token from an Authorization header. The scheme
// name is case-insensitive. A non-empty second value describes why the
// header is unusable.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

// unauthorized writes the problem directly; the response package imports
// this one.
func unauthorized(w http.ResponseWriter, r *http.Request, errCode, detail string) {
	challenge := `Bearer realm="windrider"`
	if errCode != "" {
		challenge += `, error="` + errCode + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)

	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// WithDeviceID returns a copy of ctx carrying the authenticated device ID.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, deviceID)
}

// GetDeviceID returns the authenticated device ID, or "" outside Auth.
func GetDeviceID(ctx context.Context) string {
	id, _ := ctx.Value(deviceIDKey{}).(string)
	return id
}
