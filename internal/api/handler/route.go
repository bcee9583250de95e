package handler

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/windrider/windrider/internal/api/models"
	"github.com/windrider/windrider/internal/api/response"
	"github.com/windrider/windrider/internal/route"
)

// Pagination limits for route listings.
const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// maxGPXBytes bounds GPX uploads.
const maxGPXBytes = 32 << 20

// RouteHandler handles saved route endpoints.
type RouteHandler struct {
	routes *route.Service
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routes *route.Service) *RouteHandler {
	return &RouteHandler{routes: routes}
}

// ListRoutes handles GET /v1/routes - list the device's saved routes.
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxPageLimit {
			response.BadRequest(w, r, "validation error", []models.FieldError{{
				Field:   "limit",
				Message: fmt.Sprintf("must be an integer between 1 and %d", maxPageLimit),
				Code:    "OUT_OF_RANGE",
			}})
			return
		}
		limit = parsed
	}

	page, err := h.routes.List(r.Context(), GetDeviceID(r.Context()), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeServiceError(w, r, err, "failed to list routes")
		return
	}

	response.JSON(w, r, http.StatusOK, page)
}

// CreateRoute handles POST /v1/routes - save a route from coordinates or a polyline.
func (h *RouteHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var input models.RouteCreateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	created, err := h.routes.Create(r.Context(), GetDeviceID(r.Context()), &input)
	if err != nil {
		writeServiceError(w, r, err, "failed to create route")
		return
	}

	response.Created(w, r, routeLocation(created.ID), created)
}

// ImportGPX handles POST /v1/routes:import-gpx - save a route from a GPX
// document sent as the request body. The name comes from ?name=, then the
// document, then the uploaded file name.
func (h *RouteHandler) ImportGPX(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxGPXBytes)

	created, err := h.routes.ImportGPX(
		r.Context(),
		GetDeviceID(r.Context()),
		r.URL.Query().Get("name"),
		uploadName(r),
		body,
	)
	if err != nil {
		writeServiceError(w, r, err, "failed to import route")
		return
	}

	response.Created(w, r, routeLocation(created.ID), created)
}

// GetRoute handles GET /v1/routes/{routeId} - get a saved route.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	rt, err := h.routes.Get(r.Context(), GetDeviceID(r.Context()), chi.URLParam(r, "routeId"))
	if err != nil {
		writeServiceError(w, r, err, "failed to get route")
		return
	}

	response.JSON(w, r, http.StatusOK, rt)
}

// UpdateRoute handles PUT /v1/routes/{routeId} - rename a route or replace its geometry.
func (h *RouteHandler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	var input models.RouteUpdateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	updated, err := h.routes.Update(r.Context(), GetDeviceID(r.Context()), chi.URLParam(r, "routeId"), &input)
	if err != nil {
		writeServiceError(w, r, err, "failed to update route")
		return
	}

	response.JSON(w, r, http.StatusOK, updated)
}

// DeleteRoute handles DELETE /v1/routes/{routeId} - delete a saved route.
func (h *RouteHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := h.routes.Delete(r.Context(), GetDeviceID(r.Context()), chi.URLParam(r, "routeId")); err != nil {
		writeServiceError(w, r, err, "failed to delete route")
		return
	}

	response.NoContent(w, r)
}

// GetRouteStats handles GET /v1/routes/{routeId}/stats - geometry summary.
func (h *RouteHandler) GetRouteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.routes.Stats(r.Context(), GetDeviceID(r.Context()), chi.URLParam(r, "routeId"))
	if err != nil {
		writeServiceError(w, r, err, "failed to compute route stats")
		return
	}

	response.JSON(w, r, http.StatusOK, stats)
}

func routeLocation(routeID string) string {
	return "/v1/routes/" + routeID
}

// uploadName returns the uploaded file's base name without extension, taken
// from ?filename= or the Content-Disposition header.
func uploadName(r *http.Request) string {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		if _, params, err := mime.ParseMediaType(r.Header.Get("Content-Disposition")); err == nil {
			filename = params["filename"]
		}
	}
	if filename == "" {
		return ""
	}

	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
