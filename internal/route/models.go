// Package route manages saved cycling routes.
package route

import (
	"errors"
	"time"

	"github.com/windrider/windrider/internal/windimpact"
)

// Repository errors.
var (
	ErrRouteNotFound = errors.New("route not found")
)

// Source records how a route was created.
type Source string

const (
	SourceManual   Source = "MANUAL"
	SourceGPX      Source = "GPX"
	SourcePolyline Source = "POLYLINE"
	SourceRecorded Source = "RECORDED"
)

// Route is a saved route owned by a device.
type Route struct {
	ID          string
	OwnerID     string
	Name        string
	Source      Source
	Coordinates []windimpact.Coordinate
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Geometry returns the route as input for the impact engine.
func (r *Route) Geometry() windimpact.Route {
	return windimpact.NewRoute(r.Coordinates)
}

// clone returns a deep copy so callers never share the coordinate slice.
func (r *Route) clone() *Route {
	cpy := *r
	cpy.Coordinates = append([]windimpact.Coordinate(nil), r.Coordinates...)
	return &cpy
}
