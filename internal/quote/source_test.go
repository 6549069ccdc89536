package quote_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollwatch/pollwatch/internal/console"
	"github.com/pollwatch/pollwatch/internal/monitor"
	"github.com/pollwatch/pollwatch/internal/provider"
	"github.com/pollwatch/pollwatch/internal/provider/resilience"
	"github.com/pollwatch/pollwatch/internal/quote"
	"github.com/pollwatch/pollwatch/internal/quote/yahoo"
)

type fakeProvider struct {
	quotes map[string]*quote.Quote
	calls  []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GetQuote(_ context.Context, ticker string) (*quote.Quote, error) {
	f.calls = append(f.calls, ticker)
	q, ok := f.quotes[ticker]
	if !ok {
		return nil, provider.NewError("fake", provider.KindNotFound, provider.ErrNoData)
	}
	return q, nil
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{quotes: map[string]*quote.Quote{
		"AAPL":        {Symbol: "AAPL", Price: decimal.RequireFromString("189.5"), Currency: "USD"},
		"RELIANCE.BO": {Symbol: "RELIANCE.BO", Price: decimal.RequireFromString("2456.35"), Currency: "INR"},
	}}
}

func newSource(p quote.Provider) *quote.Source {
	return quote.NewSource(quote.SourceConfig{Provider: p, Logger: zerolog.Nop()})
}

func TestTarget_Ticker(t *testing.T) {
	nasdaq, _ := quote.ExchangeByCode("1")
	bse, _ := quote.ExchangeByCode("2")

	tests := []struct {
		name   string
		target quote.Target
		want   string
	}{
		{"nasdaq", quote.Target{Symbol: "AAPL", Exchange: nasdaq}, "AAPL"},
		{"bse appends suffix", quote.Target{Symbol: "RELIANCE", Exchange: bse}, "RELIANCE.BO"},
		{"bse keeps suffix", quote.Target{Symbol: "RELIANCE.BO", Exchange: bse}, "RELIANCE.BO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.Ticker())
		})
	}

	assert.Equal(t, "RELIANCE.BO on BSE", quote.Target{Symbol: "RELIANCE", Exchange: bse}.String())
}

func TestExchangeByCode(t *testing.T) {
	e, ok := quote.ExchangeByCode("2")
	require.True(t, ok)
	assert.Equal(t, "BSE", e.Name)
	assert.Equal(t, ".BO", e.Suffix)

	_, ok = quote.ExchangeByCode("3")
	assert.False(t, ok)
}

func TestSource_Validate(t *testing.T) {
	p := newFakeProvider()
	s := newSource(p)
	nasdaq, _ := quote.ExchangeByCode("1")

	target, q, err := s.Validate(context.Background(), " aapl ", nasdaq)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", target.Symbol)
	assert.Equal(t, "NASDAQ", target.Exchange.Name)
	assert.Equal(t, "189.50", q.Price.StringFixed(2))
	assert.Equal(t, []string{"AAPL"}, p.calls)
}

func TestSource_Validate_Rejects(t *testing.T) {
	p := newFakeProvider()
	s := newSource(p)
	nasdaq, _ := quote.ExchangeByCode("1")

	_, _, err := s.Validate(context.Background(), "", nasdaq)
	assert.ErrorIs(t, err, monitor.ErrEmptyInput)
	assert.Empty(t, p.calls)

	_, _, err = s.Validate(context.Background(), "zzzz", nasdaq)
	var vErr *monitor.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "ZZZZ", vErr.Input)
	assert.Equal(t, provider.KindNotFound, provider.KindOf(err))
}

func TestSource_Configure(t *testing.T) {
	p := newFakeProvider()
	s := newSource(p)

	var out bytes.Buffer
	prompter := console.New(strings.NewReader("9\n2\n\ntcs\nreliance\n"), &out)

	setup, err := s.Configure(context.Background(), prompter)
	require.NoError(t, err)

	assert.Equal(t, "RELIANCE.BO", setup.Target.Ticker())
	assert.Equal(t, quote.DefaultInterval, setup.Schedule.Interval)
	assert.Equal(t, []string{"TCS.BO", "RELIANCE.BO"}, p.calls)

	output := out.String()
	assert.Contains(t, output, "STOCK MONITOR SETTINGS")
	assert.Contains(t, output, "1. NASDAQ (US Markets)")
	assert.Contains(t, output, "2. BSE (Bombay Stock Exchange)")
	assert.Contains(t, output, "Invalid choice. Please enter 1 or 2.")
	assert.Contains(t, output, "Enter Stock Symbol for BSE (e.g., RELIANCE, TCS, INFY): ")
	assert.Contains(t, output, "Symbol cannot be empty.")
	assert.Contains(t, output, "Could not find data for 'TCS.BO'. Please check the symbol and try again.")
	assert.Contains(t, output, "Validating 'RELIANCE.BO'...")
	assert.Contains(t, output, "Success! Found RELIANCE.BO at 2456.35")
}

func TestSource_Configure_CustomInterval(t *testing.T) {
	s := quote.NewSource(quote.SourceConfig{
		Provider: newFakeProvider(),
		Interval: 5 * time.Second,
		Logger:   zerolog.Nop(),
	})

	setup, err := s.Configure(context.Background(), console.New(strings.NewReader("1\naapl\n"), &bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, setup.Schedule.Interval)
}

func TestSource_Configure_EndOfInput(t *testing.T) {
	s := newSource(newFakeProvider())

	_, err := s.Configure(context.Background(), console.New(strings.NewReader("1\n"), &bytes.Buffer{}))

	assert.ErrorIs(t, err, console.ErrNoInput)
}

func TestSource_Configure_LooksUpEverySubmission(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart": {"result": [{"meta": {"currency": "USD", "symbol": "AAPL", "regularMarketPrice": 189.5}}], "error": null}}`))
	}))
	defer server.Close()

	s := newSource(yahoo.NewClient(yahoo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(resilience.DefaultClientConfig(yahoo.ProviderName)),
	}))

	var out bytes.Buffer
	prompter := console.New(strings.NewReader("1\nAAPL\nAAPL\nAAPL\nAAPL\n"), &out)

	setup, err := s.Configure(context.Background(), prompter)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", setup.Target.Ticker())
	assert.Equal(t, int32(4), hits.Load(), "each submission makes one live call")
	assert.Equal(t, 3, strings.Count(out.String(), "Could not find data for 'AAPL'"))
	assert.Contains(t, out.String(), "Success! Found AAPL at 189.50")
}

// cancelingProvider cancels the configuration context from inside the lookup.
type cancelingProvider struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelingProvider) Name() string { return "canceling" }

func (c *cancelingProvider) GetQuote(ctx context.Context, _ string) (*quote.Quote, error) {
	c.calls++
	c.cancel()
	return nil, provider.FromTransport("canceling", ctx.Err())
}

func TestSource_Configure_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &cancelingProvider{cancel: cancel}
	s := newSource(p)

	var out bytes.Buffer
	_, err := s.Configure(ctx, console.New(strings.NewReader("1\nAAPL\nAAPL\n"), &out))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.calls)
	assert.NotContains(t, out.String(), "Could not find data")
}

func TestSource_Render(t *testing.T) {
	s := newSource(newFakeProvider())
	nasdaq, _ := quote.ExchangeByCode("1")
	at := time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)

	report := s.Render(quote.Target{Symbol: "AAPL", Exchange: nasdaq}, &quote.Quote{
		Symbol:   "AAPL",
		Price:    decimal.RequireFromString("189.5"),
		Currency: "USD",
	}, at)

	assert.Equal(t, []string{"[14:05:09] AAPL: 189.50 USD"}, report.Lines)
	require.NotNil(t, report.Message)
	assert.Equal(t, "[14:05:09] AAPL: 189.50 USD", report.Message.Text)
	assert.Equal(t, "The price of AAPL is 189 USD", report.Message.Speech)
}

func TestSource_RenderError(t *testing.T) {
	s := newSource(newFakeProvider())
	bse, _ := quote.ExchangeByCode("2")
	at := time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)

	lines := s.RenderError(quote.Target{Symbol: "TCS", Exchange: bse},
		provider.NewError("yahoo", provider.KindTimeout, context.DeadlineExceeded), at)

	assert.Equal(t, []string{"[14:05:09] Failed to fetch price for TCS.BO (timeout)"}, lines)
}

func TestSource_Fetch(t *testing.T) {
	p := newFakeProvider()
	s := newSource(p)
	bse, _ := quote.ExchangeByCode("2")

	q, err := s.Fetch(context.Background(), quote.Target{Symbol: "RELIANCE", Exchange: bse})
	require.NoError(t, err)
	assert.Equal(t, "INR", q.Currency)
	assert.Equal(t, []string{"RELIANCE.BO"}, p.calls)
}
