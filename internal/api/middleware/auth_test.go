package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrider/windrider/internal/api/middleware"
	"github.com/windrider/windrider/internal/auth"
)

const (
	testSigningKey = "test-secret-key-for-testing-only"
	testIssuer     = "https://api.windrider.app"
	testAudience   = "windrider-api"
)

func createTestAuthService(t *testing.T) *auth.Service {
	t.Helper()
	return auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: testSigningKey,
			Issuer:     testIssuer,
			Audience:   testAudience,
		}),
		Logger: zerolog.Nop(),
	})
}

func expiredToken(t *testing.T) string {
	t.Helper()
	issuedAt := time.Now().Add(-48 * time.Hour)
	stale := auth.NewJWTService(auth.JWTConfig{
		SigningKey:  testSigningKey,
		Issuer:      testIssuer,
		Audience:    testAudience,
		TokenExpiry: time.Hour,
		Now:         func() time.Time { return issuedAt },
	})
	token, _, err := stale.GenerateAccessToken("dev_expired")
	require.NoError(t, err)
	return token
}

func TestAuth(t *testing.T) {
	authService := createTestAuthService(t)
	issued, err := authService.RegisterDevice(&auth.DeviceTokenRequest{Platform: auth.PlatformIOS})
	require.NoError(t, err)

	tests := []struct {
		name          string
		header        string
		wantStatus    int
		wantDetail    string
		wantChallenge string
	}{
		{"valid token", "Bearer " + issued.AccessToken, http.StatusOK, "", ""},
		{"lowercase scheme", "bearer " + issued.AccessToken, http.StatusOK, "", ""},
		{"uppercase scheme", "BEARER " + issued.AccessToken, http.StatusOK, "", ""},
		{"missing header", "", http.StatusUnauthorized, "missing authorization header", `Bearer realm="windrider"`},
		{"no scheme", "token123", http.StatusUnauthorized, "invalid authorization header format", `Bearer realm="windrider"`},
		{"basic auth", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "invalid authorization header format", `Bearer realm="windrider"`},
		{"scheme without token", "Bearer", http.StatusUnauthorized, "invalid authorization header format", `Bearer realm="windrider"`},
		{"blank token", "Bearer   ", http.StatusUnauthorized, "missing bearer token", `Bearer realm="windrider"`},
		{"malformed token", "Bearer invalid.jwt.token", http.StatusUnauthorized, "invalid access token", `Bearer realm="windrider", error="invalid_token"`},
		{"expired token", "Bearer " + expiredToken(t), http.StatusUnauthorized, "access token has expired", `Bearer realm="windrider", error="invalid_token"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var deviceID string
			handler := middleware.Auth(authService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				deviceID = middleware.GetDeviceID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/routes", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantChallenge, rec.Header().Get("WWW-Authenticate"))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, issued.DeviceID, deviceID)
				return
			}
			assert.Empty(t, deviceID)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.wantDetail)
		})
	}
}

func TestGetDeviceID_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/routes", http.NoBody)
	assert.Empty(t, middleware.GetDeviceID(req.Context()))
}
