// Package yahoo provides a client for the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pollwatch/pollwatch/internal/provider"
	"github.com/pollwatch/pollwatch/internal/provider/resilience"
	"github.com/pollwatch/pollwatch/internal/quote"
)

const (
	// ProviderName identifies this quote provider.
	ProviderName = "yahoo"

	// DefaultBaseURL is the Yahoo Finance query host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// userAgent is sent with every request; the chart API rejects unknown agents.
	userAgent = "Mozilla/5.0 (compatible; pollwatch/1.0)"
)

// ClientConfig holds configuration for the Yahoo client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Yahoo Finance chart API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new Yahoo client.
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
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetQuote fetches the latest regular-market price for ticker.
// Failures are *provider.Error values.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*quote.Quote, error) {
	query := url.Values{}
	query.Set("interval", "1d")
	query.Set("range", "1d")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, provider.NewError(ProviderName, provider.KindOther, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.FromTransport(ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.FromStatus(ProviderName, resp.StatusCode, errorDescription(resp.Body))
	}

	var chartResp chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chartResp); err != nil {
		return nil, provider.NewError(ProviderName, provider.KindOther, fmt.Errorf("decoding response: %w", err))
	}

	if chartResp.Chart.Error != nil {
		return nil, provider.NewError(ProviderName, provider.KindNotFound, errors.New(chartResp.Chart.Error.Description))
	}
	if len(chartResp.Chart.Result) == 0 {
		return nil, provider.NewError(ProviderName, provider.KindNotFound, provider.ErrNoData)
	}

	meta := chartResp.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil || meta.Currency == "" {
		return nil, provider.NewError(ProviderName, provider.KindOther, provider.ErrIncompleteResponse)
	}

	q := &quote.Quote{
		Symbol:    ticker,
		Price:     *meta.RegularMarketPrice,
		Currency:  meta.Currency,
		FetchedAt: c.now(),
	}
	if meta.Symbol != "" {
		q.Symbol = meta.Symbol
	}
	if meta.RegularMarketTime > 0 {
		q.MarketTime = time.Unix(meta.RegularMarketTime, 0)
	}

	c.logger.Debug().
		Str("ticker", q.Symbol).
		Str("price", q.Price.String()).
		Str("currency", q.Currency).
		Msg("fetched quote")

	return q, nil
}

// errorDescription extracts chart.error.description from an error body.
func errorDescription(body io.Reader) string {
	var errResp chartResponse
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&errResp); err != nil {
		return ""
	}
	if errResp.Chart.Error == nil {
		return ""
	}
	return errResp.Chart.Error.Description
}

// Yahoo chart API response structures.

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *chartError `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol             string           `json:"symbol"`
	Currency           string           `json:"currency"`
	RegularMarketPrice *decimal.Decimal `json:"regularMarketPrice"`
	RegularMarketTime  int64            `json:"regularMarketTime"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
