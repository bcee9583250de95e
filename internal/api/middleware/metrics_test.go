package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/windrider/windrider/internal/api/middleware"
)

func setupTestMeter(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
		_ = mp.Shutdown(context.Background())
	})
	return reader
}

// requestTotals returns the request counter keyed by route and status.
func requestTotals(t *testing.T, reader *sdkmetric.ManualReader) map[[2]string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := map[[2]string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http.server.request.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value(attribute.Key("http.route"))
				status, _ := dp.Attributes.Value(attribute.Key("http.status_code"))
				totals[[2]string{route.AsString(), status.AsString()}] += dp.Value
			}
		}
	}
	return totals
}

func TestMetrics_RecordsByRoutePattern(t *testing.T) {
	reader := setupTestMeter(t)
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/routes/{routeId}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "routeId") == "rt_missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"rt_1"}`))
	})

	for _, path := range []string{"/v1/routes/rt_1", "/v1/routes/rt_2", "/v1/routes/rt_missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	totals := requestTotals(t, reader)
	assert.Equal(t, int64(2), totals[[2]string{"/v1/routes/{routeId}", "200"}])
	assert.Equal(t, int64(1), totals[[2]string{"/v1/routes/{routeId}", "404"}])
	assert.Len(t, totals, 2)
}

func TestMetrics_PassesResponseThrough(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	tests := []struct {
		name   string
		status int
		want   int
	}{
		{"explicit status", http.StatusAccepted, http.StatusAccepted},
		{"server error", http.StatusInternalServerError, http.StatusInternalServerError},
		{"implicit status", 0, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte("body"))
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/routes", http.NoBody))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "body", rec.Body.String())
		})
	}
}

func TestRoutePattern(t *testing.T) {
	var pattern string

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			pattern = middleware.RoutePattern(r)
		})
	})
	r.Route("/v1/routes", func(r chi.Router) {
		r.Get("/{routeId}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/routes/rte_123", http.NoBody))
	assert.Equal(t, "/v1/routes/{routeId}", pattern)

	unrouted := httptest.NewRequest(http.MethodGet, "/plain", http.NoBody)
	assert.Equal(t, "/plain", middleware.RoutePattern(unrouted))
}
