package handler

import (
	"errors"
	"net/http"

	"github.com/windrider/windrider/internal/api/models"
	"github.com/windrider/windrider/internal/api/response"
	"github.com/windrider/windrider/internal/auth"
)

// AuthHandler handles device authentication endpoints.
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterDevice handles POST /v1/auth/device - mint an anonymous device token.
// An empty body is accepted.
func (h *AuthHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req auth.DeviceTokenRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", toFieldErrors(errs))
		return
	}

	tokenResp, err := h.authService.RegisterDevice(&req)
	if err != nil {
		response.InternalError(w, r, "device registration failed")
		return
	}

	response.JSON(w, r, http.StatusCreated, tokenResp)
}

// RefreshToken handles POST /v1/auth/refresh - exchange an expired token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req auth.RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", toFieldErrors(errs))
		return
	}

	tokenResp, err := h.authService.Refresh(&req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshWindowOver):
			response.Unauthorized(w, r, "access token is too old to refresh")
		case errors.Is(err, auth.ErrInvalidAccessToken):
			response.Unauthorized(w, r, "invalid access token")
		default:
			response.InternalError(w, r, "token refresh failed")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

func toFieldErrors(errs []auth.FieldError) []models.FieldError {
	fieldErrors := make([]models.FieldError, len(errs))
	for i, e := range errs {
		fieldErrors[i] = models.FieldError{
			Field:   e.Field,
			Message: e.Message,
			Code:    e.Code,
		}
	}
	return fieldErrors
}
