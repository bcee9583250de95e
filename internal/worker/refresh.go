package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/windrider/windrider/internal/route"
	"github.com/windrider/windrider/internal/weather"
)

// RouteLister pages through every stored route.
type RouteLister interface {
	ListAll(ctx context.Context, opts route.ListOptions) (*route.ListResult, error)
}

// WeatherFetcher fetches, and caches, current weather for a point.
type WeatherFetcher interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error)
}

// RefreshJob fetches the weather at the weather point of every stored route.
type RefreshJob struct {
	config  RefreshConfig
	logger  zerolog.Logger
	routes  RouteLister
	weather WeatherFetcher

	mu      sync.Mutex
	metrics RefreshMetrics
}

// RefreshMetrics accumulates over every run of a RefreshJob.
type RefreshMetrics struct {
	Runs          int64 `json:"runs"`
	Successful    int64 `json:"successful_fetches"`
	Failed        int64 `json:"failed_fetches"`
	RoutesScanned int64 `json:"routes_scanned"`

	LastRunAt       time.Time     `json:"last_run_at"`
	LastRunDuration time.Duration `json:"last_run_duration_ns"`
	TotalDuration   time.Duration `json:"total_duration_ns"`
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config  RefreshConfig
	Logger  zerolog.Logger
	Routes  RouteLister
	Weather WeatherFetcher
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:  cfg.Config.withDefaults(),
		logger:  cfg.Logger,
		routes:  cfg.Routes,
		weather: cfg.Weather,
	}
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Routes      int
	TotalPoints int
	Successful  int
	Failed      int
	Errors      []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	Point Point
	Error string
}

// Targets returns one weather point per grid cell covering the average
// coordinate of every stored route, along with the number of routes read.
// Routes without coordinates have no weather point and are skipped.
func (j *RefreshJob) Targets(ctx context.Context) ([]Point, int, error) {
	if j.routes == nil {
		return nil, 0, nil
	}

	seen := make(map[string]struct{})
	var (
		points []Point
		routes int
		cursor string
	)

	for {
		page, err := j.routes.ListAll(ctx, route.ListOptions{Limit: j.config.PageSize, Cursor: cursor})
		if err != nil {
			return nil, routes, fmt.Errorf("listing routes: %w", err)
		}

		for _, rt := range page.Items {
			routes++
			avg, ok := rt.Geometry().AverageCoordinate()
			if !ok {
				continue
			}
			p := Point{Lat: avg.Latitude, Lon: avg.Longitude}
			key := j.config.cell(p)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			points = append(points, p)
			if len(points) >= j.config.MaxPoints {
				j.logger.Warn().
					Int("max_points", j.config.MaxPoints).
					Msg("weather refresh target limit reached")
				return points, routes, nil
			}
		}

		if page.NextCursor == "" {
			return points, routes, nil
		}
		cursor = page.NextCursor
	}
}

// Run refreshes the weather for every stored route.
func (j *RefreshJob) Run(ctx context.Context) (*RefreshResult, error) {
	points, routes, err := j.Targets(ctx)
	if err != nil {
		return nil, err
	}

	j.logger.Info().
		Int("routes", routes).
		Int("total_points", len(points)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting weather refresh job")

	result := j.RunPoints(ctx, points)
	result.Routes = routes

	j.mu.Lock()
	j.metrics.RoutesScanned += int64(routes)
	j.mu.Unlock()

	return result, nil
}

// RunPoints refreshes the weather for the given points with at most
// Concurrency fetches in flight. Points not started before ctx is done are
// not counted.
func (j *RefreshJob) RunPoints(ctx context.Context, points []Point) *RefreshResult {
	result := &RefreshResult{
		StartTime:   time.Now(),
		TotalPoints: len(points),
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(j.config.Concurrency)

	for _, p := range points {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := j.refreshPoint(ctx, p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, RefreshError{Point: p, Error: err.Error()})
			} else {
				result.Successful++
			}
			return nil
		})
	}
	_ = g.Wait()

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	j.record(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("weather refresh completed")

	return result
}

// HealthCheck fetches the weather at the configured health check point.
func (j *RefreshJob) HealthCheck(ctx context.Context) error {
	result := j.RunPoints(ctx, []Point{j.config.HealthCheckPoint})
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}
	if result.Successful == 0 {
		return fmt.Errorf("health check failed: %w", ctx.Err())
	}
	return nil
}

func (j *RefreshJob) refreshPoint(ctx context.Context, point Point) error {
	if j.weather == nil {
		return nil
	}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := j.weather.GetCurrentWeather(pointCtx, point.Lat, point.Lon)
	return err
}

func (j *RefreshJob) record(result *RefreshResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.metrics.Runs++
	j.metrics.Successful += int64(result.Successful)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// Metrics returns a copy of the accumulated metrics.
func (j *RefreshJob) Metrics() RefreshMetrics {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.metrics
}
