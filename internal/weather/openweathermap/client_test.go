package openweathermap_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrider/windrider/internal/provider/resilience"
	"github.com/windrider/windrider/internal/weather"
	"github.com/windrider/windrider/internal/weather/openweathermap"
	"github.com/windrider/windrider/internal/windimpact"
)

func newTestClient(baseURL string) *openweathermap.Client {
	cfg := resilience.DefaultClientConfig("test")
	cfg.MaxRetries = resilience.NoRetries
	return openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		HTTPClient: resilience.NewClient(cfg),
	})
}

func TestClient_GetCurrentWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "52.370000", r.URL.Query().Get("lat"))
		assert.Equal(t, "4.895000", r.URL.Query().Get("lon"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Empty(t, r.URL.Query().Get("units"), "standard units keep temperature in Kelvin")

		response := map[string]interface{}{
			"coord": map[string]float64{"lat": 52.370, "lon": 4.895},
			"weather": []map[string]interface{}{
				{"id": 800, "main": "Clear", "description": "clear sky"},
			},
			"main": map[string]float64{"temp": 291.65, "pressure": 1015.0, "humidity": 72.0},
			"wind": map[string]float64{"speed": 4.5, "deg": 220.0, "gust": 7.2},
			"dt":   time.Now().Unix(),
			"name": "Amsterdam",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	obs, err := newTestClient(server.URL).GetCurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, 52.370, obs.Lat)
	assert.Equal(t, 4.895, obs.Lon)
	assert.Equal(t, windimpact.Kelvin(291.65), obs.Temperature)
	assert.Equal(t, 4.5, obs.WindSpeed)
	assert.Equal(t, 220.0, obs.WindDirection)
	assert.Equal(t, 7.2, obs.WindGust)
	assert.Equal(t, weather.ConditionClear, obs.Condition)
	assert.Equal(t, "clear sky", obs.Description)
}

func TestClient_GetCurrentWeather_CalmWind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"coord":{"lat":1,"lon":2},"main":{"temp":280},"wind":{"speed":0,"deg":0},"dt":0}`))
	}))
	defer server.Close()

	obs, err := newTestClient(server.URL).GetCurrentWeather(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Zero(t, obs.WindSpeed)
	assert.Equal(t, weather.ConditionUnknown, obs.Condition)
}

func TestClient_GetCurrentWeather_MissingWind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"coord":{"lat":1,"lon":2},"main":{"temp":280},"dt":0}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetCurrentWeather(context.Background(), 1, 2)
	assert.ErrorIs(t, err, weather.ErrNoDataForLocation)
}

func TestClient_GetCurrentWeather_Conditions(t *testing.T) {
	tests := []struct {
		id   int
		want weather.Condition
	}{
		{211, weather.ConditionThunderstorm},
		{301, weather.ConditionDrizzle},
		{502, weather.ConditionRain},
		{601, weather.ConditionSnow},
		{701, weather.ConditionMist},
		{741, weather.ConditionFog},
		{721, weather.ConditionHaze},
		{781, weather.ConditionHaze},
		{800, weather.ConditionClear},
		{804, weather.ConditionClouds},
		{999, weather.ConditionUnknown},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.id), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = fmt.Fprintf(w, `{"coord":{"lat":52,"lon":4},"weather":[{"id":%d,"description":"x"}],"main":{"temp":293.15},"wind":{"speed":5,"deg":180},"dt":0}`, tt.id)
			}))
			defer server.Close()

			obs, err := newTestClient(server.URL).GetCurrentWeather(context.Background(), 52, 4)
			require.NoError(t, err)
			assert.Equal(t, tt.want, obs.Condition)
		})
	}
}

func TestClient_GetCurrentWeather_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected error
		contains string
	}{
		{"unauthorized", http.StatusUnauthorized, openweathermap.ErrUnauthorized, ""},
		{"not found", http.StatusNotFound, weather.ErrNoDataForLocation, ""},
		{"rate limited", http.StatusTooManyRequests, openweathermap.ErrRateLimited, ""},
		{"bad request", http.StatusBadRequest, nil, "400"},
		{"server error", http.StatusInternalServerError, nil, "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).GetCurrentWeather(context.Background(), 52.370, 4.895)
			require.Error(t, err)
			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestClient_GetCurrentWeather_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).GetCurrentWeather(ctx, 52.370, 4.895)
	require.Error(t, err)
}

func TestClient_Name(t *testing.T) {
	client := openweathermap.NewClient(openweathermap.ClientConfig{APIKey: "test-key"})
	assert.Equal(t, "openweathermap", client.Name())
}
