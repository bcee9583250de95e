package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/windrider/windrider/internal/windimpact"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Coordinates are stored as a JSONB array of {lat, lon} objects.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL route repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectRouteColumns = `
	SELECT id, owner_id, name, source, coordinates, created_at, updated_at
	FROM routes
`

type storedCoordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func encodeCoordinates(coords []windimpact.Coordinate) ([]byte, error) {
	stored := make([]storedCoordinate, len(coords))
	for i, c := range coords {
		stored[i] = storedCoordinate{Lat: c.Latitude, Lon: c.Longitude}
	}
	return json.Marshal(stored)
}

func decodeCoordinates(raw []byte) ([]windimpact.Coordinate, error) {
	var stored []storedCoordinate
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode coordinates: %w", err)
	}
	coords := make([]windimpact.Coordinate, len(stored))
	for i, s := range stored {
		coords[i] = windimpact.Coordinate{Latitude: s.Lat, Longitude: s.Lon}
	}
	return coords, nil
}

// Get retrieves a route by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Route, error) {
	return r.scanRoute(r.pool.QueryRow(ctx, selectRouteColumns+`WHERE id = $1`, id))
}

// GetByOwnerAndID retrieves a route by owner and route ID.
func (r *PostgresRepository) GetByOwnerAndID(ctx context.Context, ownerID, routeID string) (*Route, error) {
	return r.scanRoute(r.pool.QueryRow(ctx, selectRouteColumns+`WHERE id = $1 AND owner_id = $2`, routeID, ownerID))
}

func (r *PostgresRepository) scanRoute(row pgx.Row) (*Route, error) {
	var (
		rt     Route
		source string
		raw    []byte
	)
	err := row.Scan(&rt.ID, &rt.OwnerID, &rt.Name, &source, &raw, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	rt.Source = Source(source)
	rt.Coordinates, err = decodeCoordinates(raw)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// List retrieves an owner's routes with keyset pagination.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, opts ListOptions) (*ListResult, error) {
	query := selectRouteColumns + `
		WHERE owner_id = $1
		  AND ($2 = '' OR (created_at, id) < (SELECT created_at, id FROM routes WHERE id = $2 AND owner_id = $1))
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	return r.list(ctx, query, opts, ownerID, opts.Cursor)
}

// ListAll pages through every stored route.
func (r *PostgresRepository) ListAll(ctx context.Context, opts ListOptions) (*ListResult, error) {
	query := selectRouteColumns + `
		WHERE ($1 = '' OR (created_at, id) < (SELECT created_at, id FROM routes WHERE id = $1))
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.list(ctx, query, opts, opts.Cursor)
}

func (r *PostgresRepository) list(ctx context.Context, query string, opts ListOptions, args ...any) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to determine if there are more results
	args = append(args, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []*Route
	for rows.Next() {
		rt, err := r.scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: routes}
	if len(routes) > limit {
		result.Items = routes[:limit]
		result.NextCursor = routes[limit-1].ID
	}
	return result, nil
}

// Create stores a new route.
func (r *PostgresRepository) Create(ctx context.Context, rt *Route) error {
	raw, err := encodeCoordinates(rt.Coordinates)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO routes (id, owner_id, name, source, coordinates, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		rt.ID,
		rt.OwnerID,
		rt.Name,
		string(rt.Source),
		raw,
		rt.CreatedAt,
		rt.UpdatedAt,
	)
	return err
}

// Update replaces an existing route.
func (r *PostgresRepository) Update(ctx context.Context, rt *Route) error {
	raw, err := encodeCoordinates(rt.Coordinates)
	if err != nil {
		return err
	}

	query := `
		UPDATE routes SET
			name = $2,
			source = $3,
			coordinates = $4,
			updated_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, rt.ID, rt.Name, string(rt.Source), raw, rt.UpdatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// Delete deletes a route by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
