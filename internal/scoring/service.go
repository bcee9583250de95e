package scoring

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/windrider/windrider/internal/api/models"
	"github.com/windrider/windrider/internal/windimpact"
)

// ServiceConfig holds configuration for the scoring service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration // How long to cache a device's configuration
	Defaults   *windimpact.ScoringConfiguration
	Now        func() time.Time
}

// Service resolves the scoring configuration for a device, falling back to
// the defaults when none is saved or storage is unavailable.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults windimpact.ScoringConfiguration
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
	swept time.Time
}

type cacheEntry struct {
	// cfg is nil when the device has no saved configuration.
	cfg       *Configuration
	expiresAt time.Time
}

// NewService creates a new scoring service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute
	}

	defaults := windimpact.DefaultScoringConfiguration()
	if cfg.Defaults != nil {
		defaults = *cfg.Defaults
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		defaults: defaults,
		now:      now,
		cache:    make(map[string]cacheEntry),
	}
}

// Defaults returns the configuration used when a device has none saved.
func (s *Service) Defaults() windimpact.ScoringConfiguration {
	return s.defaults
}

// Resolve returns the configuration to score with for a device. It never
// fails: storage errors are logged and the defaults are used.
func (s *Service) Resolve(ctx context.Context, deviceID string) windimpact.ScoringConfiguration {
	cfg, err := s.lookup(ctx, deviceID)
	if err != nil {
		s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("failed to load scoring configuration, using defaults")
		return s.defaults
	}
	if cfg == nil {
		return s.defaults
	}
	return cfg.Values
}

// Get returns a device's configuration for display.
func (s *Service) Get(ctx context.Context, deviceID string) (*models.ScoringConfigurationResponse, error) {
	cfg, err := s.lookup(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &models.ScoringConfigurationResponse{
			ScoringConfiguration: ToAPI(s.defaults),
			IsDefault:            true,
		}, nil
	}
	return toResponse(cfg), nil
}

// Put validates and saves a device's configuration.
func (s *Service) Put(ctx context.Context, deviceID string, input models.ScoringConfiguration) (*models.ScoringConfigurationResponse, error) {
	if errs := Validate(input); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	cfg := &Configuration{
		DeviceID:  deviceID,
		Values:    FromAPI(input),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, cfg); err != nil {
		return nil, err
	}

	s.setCached(deviceID, cfg)
	return toResponse(cfg), nil
}

// Reset deletes a device's configuration so the defaults apply again.
func (s *Service) Reset(ctx context.Context, deviceID string) error {
	if err := s.repo.Delete(ctx, deviceID); err != nil {
		return err
	}
	s.setCached(deviceID, nil)
	return nil
}

// InvalidateCache clears every cached configuration.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cacheEntry)
}

// CacheLen returns the number of devices currently cached.
func (s *Service) CacheLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// lookup returns the saved configuration, nil when there is none.
func (s *Service) lookup(ctx context.Context, deviceID string) (*Configuration, error) {
	if entry, ok := s.getCached(deviceID); ok {
		return entry.cfg, nil
	}

	cfg, err := s.repo.Get(ctx, deviceID)
	if errors.Is(err, ErrConfigurationNotFound) {
		s.setCached(deviceID, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.setCached(deviceID, cfg)
	return cfg, nil
}

func (s *Service) getCached(deviceID string) (cacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[deviceID]
	if !ok || s.now().After(entry.expiresAt) {
		return cacheEntry{}, false
	}
	return entry, true
}

// setCached caches a lookup and, at most once per TTL, drops expired entries.
func (s *Service) setCached(deviceID string, cfg *Configuration) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[deviceID] = cacheEntry{cfg: cfg, expiresAt: now.Add(s.cacheTTL)}

	if now.Sub(s.swept) < s.cacheTTL {
		return
	}
	s.swept = now
	for id, e := range s.cache {
		if now.After(e.expiresAt) {
			delete(s.cache, id)
		}
	}
}

// Validate checks a configuration supplied by a client. Degenerate but finite
// configurations are accepted; they score 0.
func Validate(input models.ScoringConfiguration) []models.FieldError {
	var errs []models.FieldError

	finite := []struct {
		field string
		value float64
	}{
		{"idealTemperatureC", input.IdealTemperatureC},
		{"upperPlausibleTemperatureC", input.UpperPlausibleTemperatureC},
		{"upperPlausibleWindSpeed", input.UpperPlausibleWindSpeed},
		{"headwindWeight", input.HeadwindWeight},
		{"tailwindWeight", input.TailwindWeight},
		{"crosswindWeight", input.CrosswindWeight},
	}
	for _, f := range finite {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			errs = append(errs, models.FieldError{Field: f.field, Message: "must be a finite number"})
		}
	}

	weights := []struct {
		field string
		value float64
	}{
		{"headwindWeight", input.HeadwindWeight},
		{"tailwindWeight", input.TailwindWeight},
		{"crosswindWeight", input.CrosswindWeight},
	}
	for _, w := range weights {
		if w.value < 0 {
			errs = append(errs, models.FieldError{Field: w.field, Message: "must not be negative"})
		}
	}

	return errs
}

// ToAPI converts engine parameters to their API representation.
func ToAPI(cfg windimpact.ScoringConfiguration) models.ScoringConfiguration {
	return models.ScoringConfiguration{
		IdealTemperatureC:          cfg.IdealTemperatureC,
		UpperPlausibleTemperatureC: cfg.UpperPlausibleTemperatureC,
		UpperPlausibleWindSpeed:    cfg.UpperPlausibleWindSpeed,
		HeadwindWeight:             cfg.HeadwindWeight,
		TailwindWeight:             cfg.TailwindWeight,
		CrosswindWeight:            cfg.CrosswindWeight,
	}
}

// FromAPI converts API parameters to engine parameters.
func FromAPI(cfg models.ScoringConfiguration) windimpact.ScoringConfiguration {
	return windimpact.ScoringConfiguration{
		IdealTemperatureC:          cfg.IdealTemperatureC,
		UpperPlausibleTemperatureC: cfg.UpperPlausibleTemperatureC,
		UpperPlausibleWindSpeed:    cfg.UpperPlausibleWindSpeed,
		HeadwindWeight:             cfg.HeadwindWeight,
		TailwindWeight:             cfg.TailwindWeight,
		CrosswindWeight:            cfg.CrosswindWeight,
	}
}

func toResponse(cfg *Configuration) *models.ScoringConfigurationResponse {
	updatedAt := models.Timestamp(cfg.UpdatedAt)
	return &models.ScoringConfigurationResponse{
		ScoringConfiguration: ToAPI(cfg.Values),
		UpdatedAt:            &updatedAt,
	}
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
