package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/windrider/windrider/internal/analysis"
	"github.com/windrider/windrider/internal/api/models"
	"github.com/windrider/windrider/internal/api/response"
	"github.com/windrider/windrider/internal/route"
	"github.com/windrider/windrider/internal/scoring"
	"github.com/windrider/windrider/internal/windimpact"
)

const latestAnalysisLocation = "/v1/me/analysis/latest"

// AnalysisHandler handles wind impact analysis endpoints.
type AnalysisHandler struct {
	analysis *analysis.Service
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService *analysis.Service) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysisService}
}

// AnalyzeRoute handles POST /v1/routes/{routeId}/analysis - fetch the current
// wind at the route and analyse it. With ?async=true the analysis runs in the
// background and 202 is returned.
func (h *AnalysisHandler) AnalyzeRoute(w http.ResponseWriter, r *http.Request) {
	deviceID := GetDeviceID(r.Context())
	routeID := chi.URLParam(r, "routeId")

	async, err := parseBoolQuery(r, "async")
	if err != nil {
		response.BadRequest(w, r, "validation error", []models.FieldError{{
			Field:   "async",
			Message: "must be true or false",
			Code:    "INVALID_BOOLEAN",
		}})
		return
	}

	if async {
		ticket, err := h.analysis.AnalyzeAsync(r.Context(), deviceID, routeID, nil)
		if err != nil {
			writeServiceError(w, r, err, "failed to start analysis")
			return
		}
		response.Accepted(w, r, latestAnalysisLocation, models.AnalysisAccepted{
			RouteID:    ticket.RouteID,
			Generation: ticket.Generation,
		})
		return
	}

	report, err := h.analysis.AnalyzeRoute(r.Context(), deviceID, routeID)
	if err != nil {
		writeServiceError(w, r, err, "failed to analyse route")
		return
	}

	response.JSON(w, r, http.StatusOK, toAnalysis(report))
}

// GetLatestAnalysis handles GET /v1/me/analysis/latest - the most recent
// analysis of the device's selected route.
func (h *AnalysisHandler) GetLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	report, ok := h.analysis.Latest(GetDeviceID(r.Context()))
	if !ok {
		response.NotFound(w, r, "no analysis available")
		return
	}

	response.JSON(w, r, http.StatusOK, toAnalysis(report))
}

// ClearAnalysis handles DELETE /v1/me/analysis - deselects the device's route,
// dropping its latest analysis and any analysis still running.
func (h *AnalysisHandler) ClearAnalysis(w http.ResponseWriter, r *http.Request) {
	h.analysis.Forget(GetDeviceID(r.Context()))
	response.NoContent(w, r)
}

// PreviewAnalysis handles POST /v1/analysis:preview - analyse coordinates
// against a supplied wind and temperature without contacting the weather
// provider, optionally with a scoring configuration that is not saved.
func (h *AnalysisHandler) PreviewAnalysis(w http.ResponseWriter, r *http.Request) {
	var input models.AnalysisPreviewRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	coords, errs := route.CoordinatesFromPoints(input.Coordinates, "coordinates")
	if !isFinite(input.Wind.SpeedMetersPerSecond) || input.Wind.SpeedMetersPerSecond < 0 {
		errs = append(errs, models.FieldError{Field: "wind.speedMetersPerSecond", Message: "must be a finite number >= 0"})
	}
	if !isFinite(input.Wind.DirectionDegrees) {
		errs = append(errs, models.FieldError{Field: "wind.directionDegrees", Message: "must be a finite number"})
	}
	if !isFinite(input.TemperatureKelvin) || input.TemperatureKelvin <= 0 {
		errs = append(errs, models.FieldError{Field: "temperatureKelvin", Message: "must be a finite number > 0"})
	}

	var override *windimpact.ScoringConfiguration
	if input.ScoringOverride != nil {
		for _, e := range scoring.Validate(*input.ScoringOverride) {
			e.Field = "scoringOverride." + e.Field
			errs = append(errs, e)
		}
		cfg := scoring.FromAPI(*input.ScoringOverride)
		override = &cfg
	}

	if len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	report := h.analysis.Preview(
		r.Context(),
		GetDeviceID(r.Context()),
		coords,
		windimpact.NewWindObservation(input.Wind.SpeedMetersPerSecond, input.Wind.DirectionDegrees),
		windimpact.Kelvin(input.TemperatureKelvin),
		override,
	)

	response.JSON(w, r, http.StatusOK, toAnalysis(report))
}

// toAnalysis converts an analysis report to its API representation.
func toAnalysis(report *analysis.Report) models.Analysis {
	result := report.Result

	out := models.Analysis{
		RouteID:  report.RouteID,
		Status:   models.AnalysisStatus(result.Status),
		Provider: report.Provider,
		Path: models.PathImpact{
			HeadwindPercentage:  result.Path.HeadwindPercentage,
			CrosswindPercentage: result.Path.CrosswindPercentage,
			TailwindPercentage:  result.Path.TailwindPercentage,
			WindSpeed:           result.Path.WindSpeed,
			TemperatureCelsius:  float64(result.Path.Temperature),
			CyclingScore:        result.Path.CyclingScore,
			AdvisoryMessage:     result.Path.AdvisoryMessage,
		},
		Segments:    make([]models.SegmentImpact, len(result.Segments)),
		GeneratedAt: models.Timestamp(report.GeneratedAt),
	}

	if result.Wind != nil {
		out.Wind = &models.Wind{
			SpeedMetersPerSecond: result.Wind.SpeedMetersPerSecond,
			DirectionDegrees:     result.Wind.DirectionDegrees,
		}
	}
	if report.WeatherPoint != nil {
		out.WeatherPoint = &models.Point{
			Lat: report.WeatherPoint.Latitude,
			Lon: report.WeatherPoint.Longitude,
		}
	}

	for i, impact := range result.Segments {
		segment := models.SegmentImpact{
			Index:     i,
			Band:      string(impact.Band()),
			Headwind:  impact.Headwind,
			Crosswind: impact.Crosswind,
			Tailwind:  impact.Tailwind,
		}
		if i < len(result.Colors) {
			segment.Color = result.Colors[i].Hex()
		}
		out.Segments[i] = segment
	}

	return out
}

func parseBoolQuery(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
