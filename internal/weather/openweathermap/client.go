// Package openweathermap provides a client for the OpenWeatherMap current weather API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/pollwatch/pollwatch/internal/provider"
	"github.com/pollwatch/pollwatch/internal/provider/resilience"
	"github.com/pollwatch/pollwatch/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenWeatherMap API).
	BaseURL string

	// Units is the measurement system (optional, defaults to metric).
	Units weather.Units

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	units      weather.Units
	httpClient *resilience.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	units := cfg.Units
	if units == "" {
		units = weather.UnitsMetric
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		units:      units,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Units returns the measurement system the client requests.
func (c *Client) Units() weather.Units {
	return c.units
}

// GetCurrentWeather fetches current weather for a city. Failures are
// *provider.Error values; a 404 means the city is unknown.
func (c *Client) GetCurrentWeather(ctx context.Context, city string) (*weather.Observation, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", string(c.units))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, provider.NewError(ProviderName, provider.KindOther, fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.FromTransport(ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.FromStatus(ProviderName, resp.StatusCode, errorMessage(resp.Body))
	}

	var owmResp currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return nil, provider.NewError(ProviderName, provider.KindOther, fmt.Errorf("decoding response: %w", err))
	}

	obs, err := c.toObservation(city, &owmResp)
	if err != nil {
		return nil, provider.NewError(ProviderName, provider.KindOther, err)
	}

	c.logger.Debug().
		Str("city", obs.City).
		Float64("temperature", obs.Temperature).
		Str("condition", string(obs.Condition)).
		Msg("fetched current weather")

	return obs, nil
}

// toObservation converts OpenWeatherMap response to domain model.
func (c *Client) toObservation(city string, resp *currentWeatherResponse) (*weather.Observation, error) {
	if resp.Coord.Lat == nil || resp.Coord.Lon == nil ||
		resp.Main.Temp == nil || resp.Main.Humidity == nil ||
		resp.Wind.Speed == nil || len(resp.Weather) == 0 {
		return nil, provider.ErrIncompleteResponse
	}

	obs := &weather.Observation{
		City:        resp.Name,
		Country:     resp.Sys.Country,
		Lat:         *resp.Coord.Lat,
		Lon:         *resp.Coord.Lon,
		Temperature: *resp.Main.Temp,
		Humidity:    *resp.Main.Humidity,
		WindSpeed:   *resp.Wind.Speed,
		Condition:   mapCondition(resp.Weather[0].Main),
		Description: resp.Weather[0].Description,
		FetchedAt:   c.now(),
	}
	if obs.City == "" {
		obs.City = city
	}
	if resp.Dt > 0 {
		obs.ObservedAt = time.Unix(resp.Dt, 0)
	}

	return obs, nil
}

// mapCondition maps OpenWeatherMap condition to domain condition.
func mapCondition(owmCondition string) weather.Condition {
	switch owmCondition {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionClouds
	case "Rain":
		return weather.ConditionRain
	case "Drizzle":
		return weather.ConditionDrizzle
	case "Thunderstorm":
		return weather.ConditionThunderstorm
	case "Snow":
		return weather.ConditionSnow
	case "Mist":
		return weather.ConditionMist
	case "Fog":
		return weather.ConditionFog
	case "Haze", "Dust", "Sand", "Ash", "Squall", "Tornado", "Smoke":
		return weather.ConditionHaze
	default:
		return weather.ConditionUnknown
	}
}

// errorMessage extracts the "message" field OpenWeatherMap puts in error bodies.
func errorMessage(body io.Reader) string {
	var errResp struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&errResp); err != nil {
		return ""
	}
	return errResp.Message
}

// OpenWeatherMap API response structures. Required fields are pointers so a
// missing field is told apart from a zero reading.

type currentWeatherResponse struct {
	Coord struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
}
