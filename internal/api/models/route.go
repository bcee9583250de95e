package models

// RouteSource records how a route was created.
type RouteSource string

const (
	RouteSourceManual   RouteSource = "MANUAL"
	RouteSourceGPX      RouteSource = "GPX"
	RouteSourcePolyline RouteSource = "POLYLINE"
	RouteSourceRecorded RouteSource = "RECORDED"
)

// Route represents a saved cycling route.
type Route struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Source          RouteSource `json:"source"`
	Coordinates     []Point     `json:"coordinates"`
	Polyline        string      `json:"polyline"`
	CoordinateCount int         `json:"coordinateCount"`
	SegmentCount    int         `json:"segmentCount"`
	CreatedAt       Timestamp   `json:"createdAt"`
	UpdatedAt       Timestamp   `json:"updatedAt"`
}

// RouteCreateRequest is the request body for creating a route.
// Exactly one of Coordinates or Polyline must be set.
type RouteCreateRequest struct {
	Name        string       `json:"name"`
	Source      *RouteSource `json:"source,omitempty"`
	Coordinates []Point      `json:"coordinates,omitempty"`
	Polyline    *string      `json:"polyline,omitempty"`
}

// RouteUpdateRequest is the request body for updating a route.
type RouteUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Coordinates []Point `json:"coordinates,omitempty"`
	Polyline    *string `json:"polyline,omitempty"`
}

// PagedRoutes represents a paginated list of routes.
type PagedRoutes struct {
	Items []Route           `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// RouteStats summarizes route geometry.
type RouteStats struct {
	RouteID         string  `json:"routeId"`
	CoordinateCount int     `json:"coordinateCount"`
	SegmentCount    int     `json:"segmentCount"`
	VectorLength    float64 `json:"vectorLength"`
	DistanceKm      float64 `json:"distanceKm"`
	WeatherPoint    *Point  `json:"weatherPoint,omitempty"`
}
