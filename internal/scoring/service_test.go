package scoring_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrider/windrider/internal/api/models"
	"github.com/windrider/windrider/internal/scoring"
	"github.com/windrider/windrider/internal/windimpact"
)

type countingRepository struct {
	*scoring.InMemoryRepository
	gets atomic.Int32
}

func (r *countingRepository) Get(ctx context.Context, deviceID string) (*scoring.Configuration, error) {
	r.gets.Add(1)
	return r.InMemoryRepository.Get(ctx, deviceID)
}

type failingRepository struct{}

func (failingRepository) Get(context.Context, string) (*scoring.Configuration, error) {
	return nil, errors.New("connection refused")
}

func (failingRepository) Put(context.Context, *scoring.Configuration) error {
	return errors.New("connection refused")
}

func (failingRepository) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func newService(repo scoring.Repository) *scoring.Service {
	return scoring.NewService(scoring.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
	})
}

func customConfiguration() models.ScoringConfiguration {
	return models.ScoringConfiguration{
		IdealTemperatureC:          18,
		UpperPlausibleTemperatureC: 35,
		UpperPlausibleWindSpeed:    15,
		HeadwindWeight:             3,
		TailwindWeight:             0.5,
		CrosswindWeight:            1,
	}
}

func TestService_ResolveDefaults(t *testing.T) {
	svc := newService(scoring.NewInMemoryRepository())

	assert.Equal(t, windimpact.DefaultScoringConfiguration(), svc.Resolve(context.Background(), "dev_1"))
}

func TestService_PutThenResolve(t *testing.T) {
	svc := newService(scoring.NewInMemoryRepository())
	ctx := context.Background()

	resp, err := svc.Put(ctx, "dev_1", customConfiguration())
	require.NoError(t, err)
	assert.False(t, resp.IsDefault)
	assert.NotNil(t, resp.UpdatedAt)

	assert.Equal(t, scoring.FromAPI(customConfiguration()), svc.Resolve(ctx, "dev_1"))
	assert.Equal(t, windimpact.DefaultScoringConfiguration(), svc.Resolve(ctx, "dev_2"))
}

func TestService_Get(t *testing.T) {
	svc := newService(scoring.NewInMemoryRepository())
	ctx := context.Background()

	resp, err := svc.Get(ctx, "dev_1")
	require.NoError(t, err)
	assert.True(t, resp.IsDefault)
	assert.Nil(t, resp.UpdatedAt)
	assert.Equal(t, 23.0, resp.IdealTemperatureC)

	_, err = svc.Put(ctx, "dev_1", customConfiguration())
	require.NoError(t, err)

	resp, err = svc.Get(ctx, "dev_1")
	require.NoError(t, err)
	assert.False(t, resp.IsDefault)
	assert.Equal(t, customConfiguration(), resp.ScoringConfiguration)
}

func TestService_Reset(t *testing.T) {
	svc := newService(scoring.NewInMemoryRepository())
	ctx := context.Background()

	_, err := svc.Put(ctx, "dev_1", customConfiguration())
	require.NoError(t, err)
	require.NoError(t, svc.Reset(ctx, "dev_1"))

	assert.Equal(t, windimpact.DefaultScoringConfiguration(), svc.Resolve(ctx, "dev_1"))
}

func TestService_CachesLookups(t *testing.T) {
	repo := &countingRepository{InMemoryRepository: scoring.NewInMemoryRepository()}
	svc := newService(repo)
	ctx := context.Background()

	svc.Resolve(ctx, "dev_1")
	svc.Resolve(ctx, "dev_1")
	assert.Equal(t, int32(1), repo.gets.Load(), "missing configurations are cached too")

	// A direct repository write is only seen after invalidation.
	require.NoError(t, repo.Put(ctx, &scoring.Configuration{
		DeviceID: "dev_1",
		Values:   scoring.FromAPI(customConfiguration()),
	}))
	assert.Equal(t, windimpact.DefaultScoringConfiguration(), svc.Resolve(ctx, "dev_1"))

	svc.InvalidateCache()
	assert.Equal(t, scoring.FromAPI(customConfiguration()), svc.Resolve(ctx, "dev_1"))
}

func TestService_SweepsExpiredCacheEntries(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := scoring.NewService(scoring.ServiceConfig{
		Repository: scoring.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
		Now:        func() time.Time { return now },
	})
	ctx := context.Background()

	for _, id := range []string{"dev_1", "dev_2", "dev_3"} {
		svc.Resolve(ctx, id)
	}
	assert.Equal(t, 3, svc.CacheLen())

	now = now.Add(2 * time.Minute)
	svc.Resolve(ctx, "dev_4")
	assert.Equal(t, 1, svc.CacheLen(), "expired devices are dropped")

	now = now.Add(30 * time.Second)
	svc.Resolve(ctx, "dev_5")
	assert.Equal(t, 2, svc.CacheLen())
}

func TestService_RepositoryFailure(t *testing.T) {
	svc := newService(failingRepository{})
	ctx := context.Background()

	assert.Equal(t, windimpact.DefaultScoringConfiguration(), svc.Resolve(ctx, "dev_1"))

	_, err := svc.Get(ctx, "dev_1")
	assert.Error(t, err)

	_, err = svc.Put(ctx, "dev_1", customConfiguration())
	assert.Error(t, err)
}

func TestService_CustomDefaults(t *testing.T) {
	defaults := scoring.FromAPI(customConfiguration())
	svc := scoring.NewService(scoring.ServiceConfig{
		Repository: scoring.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
		Defaults:   &defaults,
	})

	assert.Equal(t, defaults, svc.Defaults())
	assert.Equal(t, defaults, svc.Resolve(context.Background(), "dev_1"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*models.ScoringConfiguration)
		wantFields []string
	}{
		{
			name:   "valid",
			mutate: func(*models.ScoringConfiguration) {},
		},
		{
			name: "degenerate but finite is accepted",
			mutate: func(c *models.ScoringConfiguration) {
				c.UpperPlausibleWindSpeed = -1
				c.UpperPlausibleTemperatureC = c.IdealTemperatureC
			},
		},
		{
			name:       "negative headwind weight",
			mutate:     func(c *models.ScoringConfiguration) { c.HeadwindWeight = -1 },
			wantFields: []string{"headwindWeight"},
		},
		{
			name: "negative tail and cross weights",
			mutate: func(c *models.ScoringConfiguration) {
				c.TailwindWeight = -0.1
				c.CrosswindWeight = -2
			},
			wantFields: []string{"tailwindWeight", "crosswindWeight"},
		},
		{
			name:       "NaN temperature",
			mutate:     func(c *models.ScoringConfiguration) { c.IdealTemperatureC = math.NaN() },
			wantFields: []string{"idealTemperatureC"},
		},
		{
			name:       "infinite wind speed",
			mutate:     func(c *models.ScoringConfiguration) { c.UpperPlausibleWindSpeed = math.Inf(1) },
			wantFields: []string{"upperPlausibleWindSpeed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := customConfiguration()
			tt.mutate(&cfg)

			errs := scoring.Validate(cfg)

			fields := make([]string, 0, len(errs))
			for _, fe := range errs {
				fields = append(fields, fe.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestService_PutRejectsInvalid(t *testing.T) {
	svc := newService(scoring.NewInMemoryRepository())

	cfg := customConfiguration()
	cfg.HeadwindWeight = -3

	_, err := svc.Put(context.Background(), "dev_1", cfg)

	var validationErr *scoring.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "headwindWeight", validationErr.Errors[0].Field)
}
