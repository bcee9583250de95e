// Package openweathermap implements weather.Provider against the
// OpenWeatherMap current weather API.
package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/windrider/windrider/internal/provider/resilience"
	"github.com/windrider/windrider/internal/weather"
	"github.com/windrider/windrider/internal/windimpact"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
)

// Errors mapped from OpenWeatherMap status codes.
var (
	ErrUnauthorized = errors.New("openweathermap: invalid api key")
	ErrRateLimited  = errors.New("openweathermap: rate limit exceeded")
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	APIKey  string
	BaseURL string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey  string
	baseURL string
	http    *resilience.Client
	logger  zerolog.Logger
}

var _ weather.Provider = (*Client)(nil)

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetCurrentWeather fetches the current conditions at a point. No units
// parameter is sent, so OpenWeatherMap answers in standard units: Kelvin and
// meters per second.
func (c *Client) GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, weather.ErrNoDataForLocation
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if body.Wind == nil || body.Main == nil {
		c.logger.Warn().Float64("lat", lat).Float64("lon", lon).Msg("response without wind or temperature")
		return nil, weather.ErrNoDataForLocation
	}

	return body.observation(time.Now()), nil
}

type currentResponse struct {
	Coord      coord       `json:"coord"`
	Conditions []condition `json:"weather"`
	Main       *mainBlock  `json:"main"`
	Wind       *windBlock  `json:"wind"`
	Dt         int64       `json:"dt"`
}

type coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type condition struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type mainBlock struct {
	Temp float64 `json:"temp"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
	Gust  float64 `json:"gust"`
}

func (r *currentResponse) observation(fetchedAt time.Time) *weather.Observation {
	obs := &weather.Observation{
		Lat:           r.Coord.Lat,
		Lon:           r.Coord.Lon,
		Temperature:   windimpact.Kelvin(r.Main.Temp),
		WindSpeed:     r.Wind.Speed,
		WindDirection: r.Wind.Deg,
		WindGust:      r.Wind.Gust,
		Condition:     weather.ConditionUnknown,
		ObservedAt:    time.Unix(r.Dt, 0).UTC(),
		FetchedAt:     fetchedAt,
	}
	if len(r.Conditions) > 0 {
		obs.Condition = conditionFor(r.Conditions[0].ID)
		obs.Description = r.Conditions[0].Description
	}
	return obs
}

// conditionFor maps an OpenWeatherMap condition code. Codes are grouped by
// hundreds: 2xx thunderstorm, 3xx drizzle, 5xx rain, 6xx snow, 7xx
// atmosphere, 800 clear and 80x clouds.
func conditionFor(id int) weather.Condition {
	switch {
	case id == 800:
		return weather.ConditionClear
	case id > 800 && id < 900:
		return weather.ConditionClouds
	case id == 701:
		return weather.ConditionMist
	case id == 741:
		return weather.ConditionFog
	}

	switch id / 100 {
	case 2:
		return weather.ConditionThunderstorm
	case 3:
		return weather.ConditionDrizzle
	case 5:
		return weather.ConditionRain
	case 6:
		return weather.ConditionSnow
	case 7:
		return weather.ConditionHaze
	default:
		return weather.ConditionUnknown
	}
}
