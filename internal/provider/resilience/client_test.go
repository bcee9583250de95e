package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrider/windrider/internal/provider/resilience"
)

func newRequest(t *testing.T, ctx context.Context, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return req
}

// scripted answers each request with the next status in statuses, repeating
// the last one once the script runs out.
func scripted(statuses ...int) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.WriteHeader(statuses[n])
	}))
	return srv, &calls
}

// fastClient retries quickly and never trips unless breaker says so.
func fastClient(name string, maxRetries int, breaker *resilience.BreakerConfig) *resilience.Client {
	if breaker == nil {
		b := resilience.DefaultBreakerConfig()
		b.MinRequests = 1000
		breaker = &b
	}
	return resilience.NewClient(resilience.ClientConfig{
		Name:            name,
		Timeout:         2 * time.Second,
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Breaker:         breaker,
	})
}

func TestClient_Retries(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"first attempt succeeds", []int{200}, 3, 200, 1},
		{"recovers after 5xx", []int{503, 502, 200}, 5, 200, 3},
		{"recovers after 429", []int{429, 200}, 3, 200, 2},
		{"client errors are not retried", []int{404, 200}, 3, 404, 1},
		{"exhausted retries return the last response", []int{500}, 2, 500, 3},
		{"no retries", []int{503, 200}, resilience.NoRetries, 503, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := scripted(tt.statuses...)
			defer srv.Close()

			resp, err := fastClient("owm", tt.maxRetries, nil).Do(newRequest(t, context.Background(), srv.URL))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestClient_HonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	var first time.Time
	var gap atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			first = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		gap.Store(int64(time.Since(first)))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := resilience.NewClient(resilience.ClientConfig{
		Name:            "owm",
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Second,
	})

	resp, err := client.Do(newRequest(t, context.Background(), srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, time.Duration(gap.Load()), 900*time.Millisecond)
}

func TestClient_CircuitOpens(t *testing.T) {
	srv, calls := scripted(http.StatusInternalServerError)
	defer srv.Close()

	client := fastClient("owm", resilience.NoRetries, &resilience.BreakerConfig{
		MinRequests:      3,
		FailureRatio:     0.5,
		OpenTimeout:      time.Minute,
		HalfOpenRequests: 1,
	})

	for range 3 {
		resp, err := client.Do(newRequest(t, context.Background(), srv.URL))
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateOpen, client.CircuitBreakerState())

	_, err := client.Do(newRequest(t, context.Background(), srv.URL))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load(), "open circuit must not reach the provider")
}

func TestClient_CancelledCallerDoesNotTrip(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	client := fastClient("owm", resilience.NoRetries, &resilience.BreakerConfig{
		MinRequests:  1,
		FailureRatio: 0.1,
		OpenTimeout:  time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := client.Do(newRequest(t, ctx, srv.URL))
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, client.CircuitBreakerState())
	assert.Zero(t, client.CircuitBreakerCounts().TotalFailures)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := resilience.NewClient(resilience.ClientConfig{
		Name:       "owm",
		Timeout:    30 * time.Millisecond,
		MaxRetries: resilience.NoRetries,
	})

	start := time.Now()
	_, err := client.Do(newRequest(t, context.Background(), srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owm")
	assert.Less(t, time.Since(start), time.Second)
}

func TestBreakerConfig_ShouldTrip(t *testing.T) {
	cfg := resilience.DefaultBreakerConfig()

	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"no requests", gobreaker.Counts{}, false},
		{"below minimum", gobreaker.Counts{Requests: 4, TotalFailures: 4}, false},
		{"low failure ratio", gobreaker.Counts{Requests: 10, TotalFailures: 4}, false},
		{"ratio reached", gobreaker.Counts{Requests: 10, TotalFailures: 5}, true},
		{"minimum all failing", gobreaker.Counts{Requests: 5, TotalFailures: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ShouldTrip(tt.counts))
		})
	}
}

func TestStatusError(t *testing.T) {
	err := &resilience.StatusError{StatusCode: http.StatusTooManyRequests}
	assert.Equal(t, "provider returned 429 Too Many Requests", err.Error())
}
