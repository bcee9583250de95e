package route

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/windrider/windrider/internal/api/models"
	"github.com/windrider/windrider/internal/windimpact"
	"github.com/windrider/windrider/pkg/polyline"
)

// Validation constants.
const (
	MaxNameLength  = 100
	MaxCoordinates = MaxGPXCoordinates
	DefaultName    = "Untitled route"
)

// Service provides route operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new route service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List retrieves an owner's routes.
func (s *Service) List(ctx context.Context, ownerID string, limit int, cursor string) (*models.PagedRoutes, error) {
	result, err := s.repo.List(ctx, ownerID, ListOptions{Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, err
	}

	items := make([]models.Route, 0, len(result.Items))
	for _, rt := range result.Items {
		items = append(items, ToAPI(rt))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedRoutes{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// Get retrieves a route by ID for its owner.
func (s *Service) Get(ctx context.Context, ownerID, routeID string) (*models.Route, error) {
	rt, err := s.repo.GetByOwnerAndID(ctx, ownerID, routeID)
	if err != nil {
		return nil, err
	}
	result := ToAPI(rt)
	return &result, nil
}

// Load returns the domain route for analysis.
func (s *Service) Load(ctx context.Context, ownerID, routeID string) (*Route, error) {
	return s.repo.GetByOwnerAndID(ctx, ownerID, routeID)
}

// Create creates a new route from coordinates or an encoded polyline.
func (s *Service) Create(ctx context.Context, ownerID string, input *models.RouteCreateRequest) (*models.Route, error) {
	var errs []models.FieldError
	errs = append(errs, validateName(input.Name, true)...)

	coords, source, geomErrs := geometryFromInput(input.Coordinates, input.Polyline)
	errs = append(errs, geomErrs...)
	if input.Coordinates == nil && input.Polyline == nil {
		errs = append(errs, models.FieldError{Field: "coordinates", Message: "coordinates or polyline is required"})
	}

	if input.Source != nil {
		switch *input.Source {
		case models.RouteSourceManual, models.RouteSourceGPX, models.RouteSourcePolyline, models.RouteSourceRecorded:
			source = Source(*input.Source)
		default:
			errs = append(errs, models.FieldError{Field: "source", Message: "must be one of MANUAL, GPX, POLYLINE, RECORDED"})
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	rt := s.newRoute(ownerID, strings.TrimSpace(input.Name), source, coords)
	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, err
	}

	result := ToAPI(rt)
	return &result, nil
}

// ImportGPX creates a route from a GPX document. The route is named from,
// in order: the explicit name, the document's track or metadata name, the
// fallback (usually the upload file name).
func (s *Service) ImportGPX(ctx context.Context, ownerID, name, fallback string, r io.Reader) (*models.Route, error) {
	doc, err := ParseGPX(r)
	if err != nil {
		return nil, &ValidationError{Errors: []models.FieldError{{Field: "body", Message: err.Error()}}, Cause: err}
	}

	resolved := strings.TrimSpace(name)
	if resolved == "" {
		resolved = doc.Name
	}
	if resolved == "" {
		resolved = strings.TrimSpace(fallback)
	}
	if resolved == "" {
		resolved = DefaultName
	}

	var errs []models.FieldError
	errs = append(errs, validateName(resolved, true)...)
	if len(doc.Coordinates) == 0 {
		errs = append(errs, models.FieldError{Field: "body", Message: "contains no track, route or waypoints"})
	}
	errs = append(errs, validateCoordinates(doc.Coordinates, "body")...)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	rt := s.newRoute(ownerID, resolved, SourceGPX, doc.Coordinates)
	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, err
	}

	result := ToAPI(rt)
	return &result, nil
}

// Update updates an existing route for its owner.
func (s *Service) Update(ctx context.Context, ownerID, routeID string, input *models.RouteUpdateRequest) (*models.Route, error) {
	rt, err := s.repo.GetByOwnerAndID(ctx, ownerID, routeID)
	if err != nil {
		return nil, err
	}

	var errs []models.FieldError
	if input.Name != nil {
		errs = append(errs, validateName(*input.Name, false)...)
	}

	var (
		coords []windimpact.Coordinate
		source Source
	)
	if input.Coordinates != nil || input.Polyline != nil {
		var geomErrs []models.FieldError
		coords, source, geomErrs = geometryFromInput(input.Coordinates, input.Polyline)
		errs = append(errs, geomErrs...)
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	if input.Name != nil {
		rt.Name = strings.TrimSpace(*input.Name)
	}
	if coords != nil {
		rt.Coordinates = coords
		if rt.Source != SourceGPX && rt.Source != SourceRecorded {
			rt.Source = source
		}
	}
	rt.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, rt); err != nil {
		return nil, err
	}

	result := ToAPI(rt)
	return &result, nil
}

// Delete deletes a route for its owner.
func (s *Service) Delete(ctx context.Context, ownerID, routeID string) error {
	if _, err := s.repo.GetByOwnerAndID(ctx, ownerID, routeID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, routeID)
}

// Stats summarizes a route's geometry without contacting any provider.
func (s *Service) Stats(ctx context.Context, ownerID, routeID string) (*models.RouteStats, error) {
	rt, err := s.repo.GetByOwnerAndID(ctx, ownerID, routeID)
	if err != nil {
		return nil, err
	}

	geometry := rt.Geometry()
	vectors := geometry.SegmentVectors()

	stats := &models.RouteStats{
		RouteID:         rt.ID,
		CoordinateCount: geometry.Len(),
		SegmentCount:    len(vectors),
		VectorLength:    windimpact.PathLength(vectors),
		DistanceKm:      windimpact.DistanceKm(rt.Coordinates),
	}
	if avg, ok := geometry.AverageCoordinate(); ok {
		stats.WeatherPoint = &models.Point{Lat: avg.Latitude, Lon: avg.Longitude}
	}
	return stats, nil
}

func (s *Service) newRoute(ownerID, name string, source Source, coords []windimpact.Coordinate) *Route {
	now := s.now().UTC()
	return &Route{
		ID:          "rte_" + uuid.New().String()[:22],
		OwnerID:     ownerID,
		Name:        name,
		Source:      source,
		Coordinates: coords,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// geometryFromInput resolves route geometry from either explicit coordinates
// or an encoded polyline. Supplying both is an error.
func geometryFromInput(points []models.Point, encoded *string) ([]windimpact.Coordinate, Source, []models.FieldError) {
	if points != nil && encoded != nil {
		return nil, "", []models.FieldError{{Field: "polyline", Message: "cannot be combined with coordinates"}}
	}

	if encoded != nil {
		decoded, err := polyline.Decode(*encoded)
		if err != nil {
			return nil, "", []models.FieldError{{Field: "polyline", Message: "is not a valid encoded polyline"}}
		}
		coords := make([]windimpact.Coordinate, len(decoded))
		for i, c := range decoded {
			coords[i] = windimpact.Coordinate{Latitude: c.Lat, Longitude: c.Lon}
		}
		return coords, SourcePolyline, validateCoordinates(coords, "polyline")
	}

	if points == nil {
		return nil, "", nil
	}

	coords, errs := CoordinatesFromPoints(points, "coordinates")
	return coords, SourceManual, errs
}

// CoordinatesFromPoints converts API points to coordinates and validates their
// ranges, reporting errors against field.
func CoordinatesFromPoints(points []models.Point, field string) ([]windimpact.Coordinate, []models.FieldError) {
	coords := make([]windimpact.Coordinate, len(points))
	for i, p := range points {
		coords[i] = windimpact.Coordinate{Latitude: p.Lat, Longitude: p.Lon}
	}
	return coords, validateCoordinates(coords, field)
}

func validateName(name string, required bool) []models.FieldError {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		if required {
			return []models.FieldError{{Field: "name", Message: "is required"}}
		}
		return []models.FieldError{{Field: "name", Message: "cannot be empty"}}
	}
	if len(trimmed) > MaxNameLength {
		return []models.FieldError{{Field: "name", Message: fmt.Sprintf("must be at most %d characters", MaxNameLength)}}
	}
	return nil
}

func validateCoordinates(coords []windimpact.Coordinate, field string) []models.FieldError {
	if len(coords) > MaxCoordinates {
		return []models.FieldError{{Field: field, Message: fmt.Sprintf("must contain at most %d coordinates", MaxCoordinates)}}
	}

	var errs []models.FieldError
	for i, c := range coords {
		if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("%s[%d].lat", field, i),
				Message: "must be between -90 and 90",
			})
		}
		if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("%s[%d].lon", field, i),
				Message: "must be between -180 and 180",
			})
		}
		// One bad point usually means the whole payload is off.
		if len(errs) >= 10 {
			break
		}
	}
	return errs
}

// ToAPI converts a domain Route to an API Route.
func ToAPI(rt *Route) models.Route {
	points := make([]models.Point, len(rt.Coordinates))
	encodable := make([]polyline.Coordinate, len(rt.Coordinates))
	for i, c := range rt.Coordinates {
		points[i] = models.Point{Lat: c.Latitude, Lon: c.Longitude}
		encodable[i] = polyline.Coordinate{Lat: c.Latitude, Lon: c.Longitude}
	}

	segments := len(rt.Coordinates) - 1
	if segments < 0 {
		segments = 0
	}

	return models.Route{
		ID:              rt.ID,
		Name:            rt.Name,
		Source:          models.RouteSource(rt.Source),
		Coordinates:     points,
		Polyline:        polyline.Encode(encodable),
		CoordinateCount: len(rt.Coordinates),
		SegmentCount:    segments,
		CreatedAt:       models.Timestamp(rt.CreatedAt),
		UpdatedAt:       models.Timestamp(rt.UpdatedAt),
	}
}

// ValidationError represents validation errors. Cause is set when the errors
// stem from reading the input, such as a malformed or oversized GPX upload.
type ValidationError struct {
	Errors []models.FieldError
	Cause  error
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err means the route does not exist for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRouteNotFound)
}
