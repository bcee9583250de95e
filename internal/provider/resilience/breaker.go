// Package resilience wraps calls to external weather providers with circuit
// breakers, timeouts and retries, and tracks provider health for ops endpoints.
package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig controls when a provider circuit opens and how it recovers.
type BreakerConfig struct {
	// MinRequests is how many requests the closed circuit must see before
	// the failure ratio is considered.
	MinRequests uint32

	// FailureRatio opens the circuit once failures/requests reaches it.
	FailureRatio float64

	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration

	// HalfOpenRequests is how many probes are let through while half-open.
	HalfOpenRequests uint32

	// Interval clears the closed-state counts periodically. Zero never clears.
	Interval time.Duration
}

// DefaultBreakerConfig opens after at least 5 requests with half of them
// failing, and probes again after a minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MinRequests:      5,
		FailureRatio:     0.5,
		OpenTimeout:      time.Minute,
		HalfOpenRequests: 1,
	}
}

// ShouldTrip reports whether counts open the circuit.
func (c BreakerConfig) ShouldTrip(counts gobreaker.Counts) bool {
	if counts.Requests == 0 || counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

func newBreaker(name string, cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: cfg.ShouldTrip,
		// A caller giving up says nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}
