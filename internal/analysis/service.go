// Package analysis runs wind impact analyses for saved routes: it resolves the
// route, the weather at its average coordinate and the device's scoring
// configuration, then hands the snapshot to the impact engine.
package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/windrider/windrider/internal/route"
	"github.com/windrider/windrider/internal/telemetry"
	"github.com/windrider/windrider/internal/weather"
	"github.com/windrider/windrider/internal/windimpact"
)

const instrumentationName = "github.com/windrider/windrider/internal/analysis"

// WeatherSource fetches current conditions for a point.
type WeatherSource interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error)
	Name() string
}

// RouteLoader loads a route owned by a device.
type RouteLoader interface {
	Load(ctx context.Context, ownerID, routeID string) (*route.Route, error)
}

// ConfigurationResolver returns the scoring configuration for a device.
type ConfigurationResolver interface {
	Resolve(ctx context.Context, deviceID string) windimpact.ScoringConfiguration
}

// ServiceConfig holds configuration for the analysis service.
type ServiceConfig struct {
	Weather      WeatherSource
	Routes       RouteLoader
	Scoring      ConfigurationResolver
	Tracker      *Tracker
	Logger       zerolog.Logger
	FetchTimeout time.Duration // Upper bound for one weather fetch
}

// Report is the outcome of one analysis together with the inputs it used.
type Report struct {
	RouteID      string
	Result       windimpact.Result
	WeatherPoint *windimpact.Coordinate
	Observation  *weather.Observation
	Provider     string
	GeneratedAt  time.Time
}

// Service runs analyses and keeps each device's latest current report.
type Service struct {
	weather      WeatherSource
	routes       RouteLoader
	scoring      ConfigurationResolver
	tracker      *Tracker
	logger       zerolog.Logger
	fetchTimeout time.Duration
	tracer       trace.Tracer
	total        metric.Int64Counter
	duration     metric.Float64Histogram

	wg sync.WaitGroup

	mu     sync.RWMutex
	latest map[string]*Report
}

// NewService creates a new analysis service.
func NewService(cfg ServiceConfig) (*Service, error) {
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 10 * time.Second
	}

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = NewTracker()
	}

	meter := telemetry.Meter(instrumentationName)

	total, err := meter.Int64Counter(
		"windrider.analysis.total",
		metric.WithDescription("Total number of route analyses by status"),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"windrider.analysis.duration",
		metric.WithDescription("Duration of route analyses in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		weather:      cfg.Weather,
		routes:       cfg.Routes,
		scoring:      cfg.Scoring,
		tracker:      tracker,
		logger:       cfg.Logger,
		fetchTimeout: fetchTimeout,
		tracer:       telemetry.Tracer(instrumentationName),
		total:        total,
		duration:     duration,
		latest:       make(map[string]*Report),
	}, nil
}

// AnalyzeRoute selects a device's route and analyses it synchronously.
// Route lookup errors are returned as is; weather failures are reported in
// the result as StatusWindUnavailable.
func (s *Service) AnalyzeRoute(ctx context.Context, deviceID, routeID string) (*Report, error) {
	rt, err := s.routes.Load(ctx, deviceID, routeID)
	if err != nil {
		return nil, err
	}

	ticket := s.tracker.Select(deviceID, rt.ID)
	report := s.run(ctx, deviceID, rt)
	s.publish(ticket, report, nil)
	return report, nil
}

// AnalyzeAsync selects a device's route and analyses it in the background.
// The route is loaded before returning so lookup errors reach the caller.
// done, when not nil, is called only if the ticket is still current once the
// analysis finishes; superseded results are dropped.
func (s *Service) AnalyzeAsync(ctx context.Context, deviceID, routeID string, done func(*Report)) (Ticket, error) {
	rt, err := s.routes.Load(ctx, deviceID, routeID)
	if err != nil {
		return Ticket{}, err
	}

	ticket := s.tracker.Select(deviceID, rt.ID)
	bg := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		report := s.run(bg, deviceID, rt)
		s.publish(ticket, report, done)
	}()

	return ticket, nil
}

// Preview analyses ad-hoc coordinates against a supplied observation without
// contacting the weather provider. A nil cfg uses the device's configuration.
func (s *Service) Preview(ctx context.Context, deviceID string, coords []windimpact.Coordinate, wind windimpact.WindObservation, temperature windimpact.Kelvin, cfg *windimpact.ScoringConfiguration) *Report {
	scoring := s.resolve(ctx, deviceID, cfg)
	geometry := windimpact.NewRoute(coords)

	report := &Report{
		Result:      windimpact.Analyze(geometry, wind, temperature, scoring),
		GeneratedAt: time.Now().UTC(),
	}
	if avg, ok := geometry.AverageCoordinate(); ok {
		report.WeatherPoint = &avg
	}
	s.record(ctx, report.Result.Status, "preview", 0)
	return report
}

// Latest returns the most recent current report for a device.
func (s *Service) Latest(deviceID string) (*Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.latest[deviceID]
	return report, ok
}

// Forget clears a device's selection and latest report, dropping any
// analysis still in flight for it.
func (s *Service) Forget(deviceID string) {
	s.tracker.Clear(deviceID)

	s.mu.Lock()
	delete(s.latest, deviceID)
	s.mu.Unlock()
}

// Wait blocks until every background analysis has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context, deviceID string, rt *route.Route) *Report {
	ctx, span := s.tracer.Start(ctx, "analysis.run",
		trace.WithAttributes(attribute.String("route.id", rt.ID)),
	)
	defer span.End()

	start := time.Now()
	geometry := rt.Geometry()
	report := &Report{
		RouteID:  rt.ID,
		Provider: s.weather.Name(),
	}

	avg, ok := geometry.AverageCoordinate()
	if ok {
		report.WeatherPoint = &avg
	}

	switch {
	case len(geometry.SegmentVectors()) == 0:
		report.Result = windimpact.Insufficient(geometry)
	default:
		obs, err := s.fetch(ctx, avg)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("route_id", rt.ID).
				Str("provider", report.Provider).
				Msg("wind unavailable for analysis")
			span.RecordError(err)
			span.SetStatus(codes.Error, "wind unavailable")
			report.Result = windimpact.Unavailable(geometry)
			break
		}
		report.Observation = obs
		report.Result = windimpact.Analyze(geometry, obs.Wind(), obs.Temperature, s.resolve(ctx, deviceID, nil))
	}

	report.GeneratedAt = time.Now().UTC()
	span.SetAttributes(attribute.String("analysis.status", string(report.Result.Status)))
	s.record(ctx, report.Result.Status, "route", time.Since(start))
	return report
}

func (s *Service) fetch(ctx context.Context, point windimpact.Coordinate) (*weather.Observation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	return s.weather.GetCurrentWeather(ctx, point.Latitude, point.Longitude)
}

func (s *Service) resolve(ctx context.Context, deviceID string, override *windimpact.ScoringConfiguration) windimpact.ScoringConfiguration {
	if override != nil {
		return *override
	}
	if s.scoring == nil {
		return windimpact.DefaultScoringConfiguration()
	}
	return s.scoring.Resolve(ctx, deviceID)
}

// publish stores a report as the device's latest if its ticket is current.
func (s *Service) publish(ticket Ticket, report *Report, done func(*Report)) {
	s.mu.Lock()
	if !s.tracker.Current(ticket) {
		s.mu.Unlock()
		s.logger.Debug().
			Str("device_id", ticket.Subject).
			Str("route_id", ticket.RouteID).
			Uint64("generation", ticket.Generation).
			Msg("dropping superseded analysis")
		return
	}
	s.latest[ticket.Subject] = report
	s.mu.Unlock()

	if done != nil {
		done(report)
	}
}

func (s *Service) record(ctx context.Context, status windimpact.Status, kind string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("analysis.status", string(status)),
		attribute.String("analysis.kind", kind),
	)
	s.total.Add(ctx, 1, attrs)
	if elapsed > 0 {
		s.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
