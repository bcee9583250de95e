package scoring

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/windrider/windrider/internal/windimpact"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Values are stored as a JSONB document so new parameters need no migration.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL scoring configuration repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

type storedValues struct {
	IdealTemperatureC          float64 `json:"ideal_temperature_c"`
	UpperPlausibleTemperatureC float64 `json:"upper_plausible_temperature_c"`
	UpperPlausibleWindSpeed    float64 `json:"upper_plausible_wind_speed"`
	HeadwindWeight             float64 `json:"headwind_weight"`
	TailwindWeight             float64 `json:"tailwind_weight"`
	CrosswindWeight            float64 `json:"crosswind_weight"`
}

// Get retrieves the configuration saved by a device.
func (r *PostgresRepository) Get(ctx context.Context, deviceID string) (*Configuration, error) {
	query := `
		SELECT device_id, value, updated_at
		FROM scoring_configurations
		WHERE device_id = $1
	`

	var (
		cfg       Configuration
		valueJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, deviceID).Scan(
		&cfg.DeviceID,
		&valueJSON,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigurationNotFound
		}
		return nil, err
	}

	var stored storedValues
	if err := json.Unmarshal(valueJSON, &stored); err != nil {
		return nil, err
	}
	cfg.Values = windimpact.ScoringConfiguration(stored)

	return &cfg, nil
}

// Put creates or replaces a device's configuration.
func (r *PostgresRepository) Put(ctx context.Context, cfg *Configuration) error {
	query := `
		INSERT INTO scoring_configurations (device_id, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	valueJSON, err := json.Marshal(storedValues(cfg.Values))
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query, cfg.DeviceID, valueJSON, cfg.UpdatedAt)
	return err
}

// Delete removes a device's configuration.
func (r *PostgresRepository) Delete(ctx context.Context, deviceID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM scoring_configurations WHERE device_id = $1`, deviceID)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
