package handler

import (
	"net/http"

	"github.com/windrider/windrider/internal/api/models"
	"github.com/windrider/windrider/internal/api/response"
	"github.com/windrider/windrider/internal/scoring"
)

// ScoringHandler handles the device's cycling score configuration.
type ScoringHandler struct {
	scoring *scoring.Service
}

// NewScoringHandler creates a new ScoringHandler.
func NewScoringHandler(scoringService *scoring.Service) *ScoringHandler {
	return &ScoringHandler{scoring: scoringService}
}

// GetScoringConfiguration handles GET /v1/me/scoring-configuration. Devices
// that never saved one get the defaults with isDefault set.
func (h *ScoringHandler) GetScoringConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.scoring.Get(r.Context(), GetDeviceID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "failed to get scoring configuration")
		return
	}

	response.JSON(w, r, http.StatusOK, cfg)
}

// PutScoringConfiguration handles PUT /v1/me/scoring-configuration.
func (h *ScoringHandler) PutScoringConfiguration(w http.ResponseWriter, r *http.Request) {
	var input models.ScoringConfiguration
	if !decodeJSON(w, r, &input) {
		return
	}

	cfg, err := h.scoring.Put(r.Context(), GetDeviceID(r.Context()), input)
	if err != nil {
		writeServiceError(w, r, err, "failed to save scoring configuration")
		return
	}

	response.JSON(w, r, http.StatusOK, cfg)
}

// DeleteScoringConfiguration handles DELETE /v1/me/scoring-configuration -
// revert to the defaults.
func (h *ScoringHandler) DeleteScoringConfiguration(w http.ResponseWriter, r *http.Request) {
	if err := h.scoring.Reset(r.Context(), GetDeviceID(r.Context())); err != nil {
		writeServiceError(w, r, err, "failed to reset scoring configuration")
		return
	}

	response.NoContent(w, r)
}
