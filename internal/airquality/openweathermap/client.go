// Package openweathermap provides a client for the OpenWeatherMap air pollution API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/pollwatch/pollwatch/internal/airquality"
	"github.com/pollwatch/pollwatch/internal/provider"
	"github.com/pollwatch/pollwatch/internal/provider/resilience"
)

const (
	// ProviderName identifies this air-quality provider.
	ProviderName = "openweathermap-air"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
)

// ClientConfig holds configuration for the air pollution client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client fetches the current air-quality index for a coordinate pair.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new air pollution client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetCurrent fetches the current reading. Failures are *provider.Error values.
func (c *Client) GetCurrent(ctx context.Context, lat, lon float64) (*airquality.Reading, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/air_pollution?"+query.Encode(), http.NoBody)
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

	var apResp airPollutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&apResp); err != nil {
		return nil, provider.NewError(ProviderName, provider.KindOther, fmt.Errorf("decoding response: %w", err))
	}

	if len(apResp.List) == 0 || apResp.List[0].Main.AQI == nil {
		return nil, provider.NewError(ProviderName, provider.KindOther, provider.ErrNoData)
	}

	c.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Int("aqi", *apResp.List[0].Main.AQI).
		Msg("fetched air quality")

	return toReading(apResp.List[0]), nil
}

func toReading(entry airPollutionEntry) *airquality.Reading {
	reading := &airquality.Reading{
		Index:      airquality.Index(*entry.Main.AQI),
		Components: make(map[airquality.Pollutant]float64, len(entry.Components)),
	}
	if entry.Dt > 0 {
		reading.MeasuredAt = time.Unix(entry.Dt, 0)
	}

	for key, value := range entry.Components {
		if p, ok := componentPollutants[key]; ok {
			reading.Components[p] = value
		}
	}

	return reading
}

var componentPollutants = map[string]airquality.Pollutant{
	"co":    airquality.PollutantCO,
	"no":    airquality.PollutantNO,
	"no2":   airquality.PollutantNO2,
	"o3":    airquality.PollutantO3,
	"so2":   airquality.PollutantSO2,
	"pm2_5": airquality.PollutantPM25,
	"pm10":  airquality.PollutantPM10,
	"nh3":   airquality.PollutantNH3,
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

// OpenWeatherMap API response structures.

type airPollutionResponse struct {
	List []airPollutionEntry `json:"list"`
}

type airPollutionEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		AQI *int `json:"aqi"`
	} `json:"main"`
	Components map[string]float64 `json:"components"`
}
