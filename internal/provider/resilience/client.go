package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the provider while its
// circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// NoRetries disables retrying when set as ClientConfig.MaxRetries.
const NoRetries = -1

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this client in the registry, logs and circuit breaker.
	Name string

	// Timeout bounds a single attempt. Default: 10 seconds.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3. Use NoRetries to disable retrying.
	MaxRetries int

	// InitialInterval and MaxInterval bound the exponential backoff.
	// Defaults: 100ms and 5s. MaxInterval also caps Retry-After hints.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Breaker overrides DefaultBreakerConfig when set.
	Breaker *BreakerConfig

	// Registry receives the client and its request outcomes (optional).
	Registry *Registry

	Logger zerolog.Logger
}

// DefaultClientConfig returns the defaults for a named provider client.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig()
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         &breaker,
		Logger:          zerolog.Nop(),
	}
}

// Client is an HTTP client for one provider. Transport errors, 5xx and 429
// responses are retried with exponential backoff and count against the
// provider's circuit breaker.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	cfg      ClientConfig
	registry *Registry
	logger   zerolog.Logger
}

// NewClient creates a resilient client and registers it when the config
// carries a registry.
func NewClient(cfg ClientConfig) *Client {
	defaults := DefaultClientConfig(cfg.Name)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = defaults.MaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}
	if cfg.Breaker == nil {
		cfg.Breaker = defaults.Breaker
	}

	logger := cfg.Logger.With().Str("provider", cfg.Name).Logger()

	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{Timeout: cfg.Timeout},
		breaker:  newBreaker(cfg.Name, *cfg.Breaker, logger),
		cfg:      cfg,
		registry: cfg.Registry,
		logger:   logger,
	}
	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.name
}

// Do sends req, retrying transient failures until the request context ends.
//
// A response whose retryable status outlived every retry is returned with a
// nil error so the caller can map the status itself; the failure is still
// recorded. ErrCircuitOpen is returned immediately while the circuit is open.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.InitialInterval
	exp.MaxInterval = c.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	hinted := &hintedBackOff{BackOff: exp, limit: c.cfg.MaxInterval}
	policy := backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(c.cfg.MaxRetries)), ctx)

	var last *http.Response
	attempt := 0

	err := backoff.Retry(func() error {
		attempt++
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // closed below or by the caller
			resp, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if retryable(resp.StatusCode) {
				return resp, &StatusError{
					StatusCode: resp.StatusCode,
					RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				}
			}
			return resp, nil
		})

		if last != nil && last != resp {
			last.Body.Close()
		}
		last = resp

		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			hinted.hint = statusErr.RetryAfter
		}
		c.logger.Debug().Err(err).Int("attempt", attempt).Msg("provider request failed")
		return err
	}, policy)

	if err != nil {
		c.record(err)
		if last != nil {
			return last, nil
		}
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	c.record(nil)
	return last, nil
}

func (c *Client) record(err error) {
	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.RecordFailure(c.name, err)
		return
	}
	c.registry.RecordSuccess(c.name)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the counts of the current breaker generation.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

// StatusError is a retryable HTTP status from a provider.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// parseRetryAfter reads the delay-seconds form of Retry-After. HTTP dates
// are ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// hintedBackOff stretches the next backoff to a server-provided hint,
// capped at limit. The hint applies to one retry only.
type hintedBackOff struct {
	backoff.BackOff
	hint  time.Duration
	limit time.Duration
}

func (b *hintedBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if hint := min(b.hint, b.limit); hint > next {
		next = hint
	}
	b.hint = 0
	return next
}
