package weather

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/windrider/windrider/internal/telemetry"
)

const operationCurrentWeather = "current_weather"

// Provider fetches current conditions from an upstream weather API.
type Provider interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error)
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long an observation is served without refetching.
	// Default: 10 minutes.
	CacheTTL time.Duration

	// GridSize is the cache cell size in degrees. Lookups that fall in the
	// same cell share one observation. Default: 0.1 (about 11 km).
	GridSize float64

	// StaleTTL is how long after fetching an observation may still be
	// served when the provider fails. Default: 1 hour.
	StaleTTL time.Duration

	// FetchTimeout bounds one shared upstream fetch. It is independent of
	// the callers' contexts. Default: 30 seconds.
	FetchTimeout time.Duration

	// Metrics records provider calls and cache hits. Optional.
	Metrics *telemetry.ProviderMetrics

	// Now replaces time.Now when set.
	Now func() time.Time
}

// Service is a read-through cache in front of a Provider. Concurrent misses
// for one cell share a single upstream call.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	ttl      time.Duration
	grid     float64
	staleTTL time.Duration
	timeout  time.Duration
	metrics  *telemetry.ProviderMetrics
	now      func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[cell]cacheEntry
	swept   time.Time
}

type cell struct{ lat, lon int64 }

func (c cell) String() string {
	return strconv.FormatInt(c.lat, 10) + ":" + strconv.FormatInt(c.lon, 10)
}

type cacheEntry struct {
	obs       *Observation
	fetchedAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		ttl:      cfg.CacheTTL,
		grid:     cfg.GridSize,
		staleTTL: cfg.StaleTTL,
		timeout:  cfg.FetchTimeout,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
		entries:  make(map[cell]cacheEntry),
	}
	if s.ttl <= 0 {
		s.ttl = 10 * time.Minute
	}
	if s.grid <= 0 {
		s.grid = 0.1
	}
	if s.staleTTL < s.ttl {
		s.staleTTL = max(time.Hour, s.ttl)
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Name returns the name of the underlying provider.
func (s *Service) Name() string {
	return s.provider.Name()
}

// GetCurrentWeather returns the observation for the cell containing the
// point, fetching it when the cached one is older than the TTL. If the
// provider fails, an observation younger than the stale TTL is returned
// instead of the error.
//
// The upstream fetch for a cell is shared by every caller missing it and
// runs detached from their contexts; a caller whose ctx ends stops waiting
// with ctx.Err() while the fetch completes for the others.
func (s *Service) GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinates
	}

	key := s.cellOf(lat, lon)
	if e, ok := s.lookup(key); ok && s.now().Sub(e.fetchedAt) < s.ttl {
		s.metrics.RecordCacheHit(ctx, operationCurrentWeather)
		return e.obs, nil
	}
	s.metrics.RecordCacheMiss(ctx, operationCurrentWeather)

	ch := s.group.DoChan(key.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.fetch(fetchCtx, key, lat, lon)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug().Stringer("cell", key).Msg("joined in-flight weather fetch")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Observation), nil
	}
}

func (s *Service) fetch(ctx context.Context, key cell, lat, lon float64) (*Observation, error) {
	start := time.Now()
	obs, err := s.provider.GetCurrentWeather(ctx, lat, lon)
	s.metrics.RecordRequest(ctx, operationCurrentWeather, time.Since(start), err)

	if err != nil {
		log := s.logger.With().Str("provider", s.provider.Name()).Float64("lat", lat).Float64("lon", lon).Logger()
		if e, ok := s.lookup(key); ok && s.now().Sub(e.fetchedAt) < s.staleTTL {
			log.Warn().Err(err).Time("fetched_at", e.fetchedAt).Msg("serving stale weather after provider error")
			return e.obs, nil
		}
		log.Error().Err(err).Msg("weather fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	s.store(key, obs)
	return obs, nil
}

func (s *Service) cellOf(lat, lon float64) cell {
	return cell{
		lat: int64(math.Floor(lat / s.grid)),
		lon: int64(math.Floor(lon / s.grid)),
	}
}

func (s *Service) lookup(key cell) (cacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// store saves an observation and, at most once per TTL, drops entries past
// the stale TTL.
func (s *Service) store(key cell, obs *Observation) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cacheEntry{obs: obs, fetchedAt: now}

	if now.Sub(s.swept) < s.ttl {
		return
	}
	s.swept = now
	for k, e := range s.entries {
		if now.Sub(e.fetchedAt) >= s.staleTTL {
			delete(s.entries, k)
		}
	}
}

// CacheStats describes the cache contents.
type CacheStats struct {
	Entries      int    `json:"entries"`
	FreshEntries int    `json:"freshEntries"`
	Provider     string `json:"provider"`
}

// Stats counts cached cells and how many are still within the TTL.
func (s *Service) Stats() CacheStats {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := CacheStats{Entries: len(s.entries), Provider: s.provider.Name()}
	for _, e := range s.entries {
		if now.Sub(e.fetchedAt) < s.ttl {
			stats.FreshEntries++
		}
	}
	return stats
}
