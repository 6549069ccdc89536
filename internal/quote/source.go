package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pollwatch/pollwatch/internal/console"
	"github.com/pollwatch/pollwatch/internal/monitor"
	"github.com/pollwatch/pollwatch/internal/notify"
	"github.com/pollwatch/pollwatch/internal/provider"
)

// SourceName identifies the stock source in logs and metrics.
const SourceName = "stock"

// DefaultInterval is the stock poll interval.
const DefaultInterval = 20 * time.Second

const timestampLayout = "15:04:05"

// SourceConfig holds the collaborators of a stock Source.
type SourceConfig struct {
	// Provider fetches quotes (required).
	Provider Provider

	// Interval between polls (default: DefaultInterval).
	Interval time.Duration

	// Logger for source operations.
	Logger zerolog.Logger
}

// Source lets the user pick an exchange and symbol, then polls its price.
type Source struct {
	provider Provider
	interval time.Duration
	logger   zerolog.Logger
}

// NewSource creates a stock source.
func NewSource(cfg SourceConfig) *Source {
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	return &Source{
		provider: cfg.Provider,
		interval: interval,
		logger:   cfg.Logger,
	}
}

// Name returns the source name.
func (s *Source) Name() string {
	return SourceName
}

// Validate upper-cases symbol and queries the provider once for its ticker on
// exchange. The fetched quote is returned alongside the target.
func (s *Source) Validate(ctx context.Context, symbol string, exchange Exchange) (Target, *Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Target{}, nil, &monitor.ValidationError{Input: symbol, Err: monitor.ErrEmptyInput}
	}

	target := Target{Symbol: symbol, Exchange: exchange}
	q, err := s.provider.GetQuote(ctx, target.Ticker())
	if err != nil {
		return Target{}, nil, &monitor.ValidationError{Input: target.Ticker(), Err: err}
	}

	return target, q, nil
}

// Configure runs the exchange menu and the symbol prompt until a ticker validates.
func (s *Source) Configure(ctx context.Context, p *console.Prompter) (monitor.Setup[Target], error) {
	schedule, err := monitor.NewSchedule(s.interval)
	if err != nil {
		return monitor.Setup[Target]{}, err
	}

	p.Banner("STOCK MONITOR SETTINGS", "=")

	options := make([]console.Option, 0, len(Exchanges))
	for _, e := range Exchanges {
		options = append(options, console.Option{Key: e.Code, Label: fmt.Sprintf("%s (%s)", e.Name, e.Description)})
	}

	choice, err := p.Choose(ctx, "Select Exchange:", options, "\nEnter choice (1 or 2): ", "Invalid choice. Please enter 1 or 2.")
	if err != nil {
		return monitor.Setup[Target]{}, err
	}
	exchange, _ := ExchangeByCode(choice.Key)

	prompt := fmt.Sprintf("\nEnter Stock Symbol for %s (e.g., %s): ", exchange.Name, exchange.Examples)
	for {
		symbol, err := p.AskNonEmpty(ctx, prompt, "Symbol cannot be empty.")
		if err != nil {
			return monitor.Setup[Target]{}, err
		}

		ticker := Target{Symbol: strings.ToUpper(symbol), Exchange: exchange}.Ticker()
		p.Printf("Validating '%s'...\n", ticker)

		target, q, err := s.Validate(ctx, symbol, exchange)
		if err == nil {
			p.Printf("Success! Found %s at %s\n", ticker, q.Price.StringFixed(2))
			return monitor.Setup[Target]{Target: target, Schedule: schedule}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return monitor.Setup[Target]{}, ctxErr
		}
		var vErr *monitor.ValidationError
		if !errors.As(err, &vErr) {
			return monitor.Setup[Target]{}, err
		}
		s.logger.Info().Err(err).Str("ticker", ticker).Msg("ticker rejected")
		p.Printf("Could not find data for '%s'. Please check the symbol and try again.\n", ticker)
	}
}

// Fetch polls the latest quote.
func (s *Source) Fetch(ctx context.Context, target Target) (*Quote, error) {
	return s.provider.GetQuote(ctx, target.Ticker())
}

// Render formats a quote as one status line and a spoken message.
func (s *Source) Render(target Target, q *Quote, at time.Time) monitor.Report {
	status := fmt.Sprintf("[%s] %s: %s %s", at.Format(timestampLayout), target.Ticker(), q.Price.StringFixed(2), q.Currency)
	return monitor.Report{
		Lines: []string{status},
		Message: &notify.Message{
			Text:   status,
			Speech: fmt.Sprintf("The price of %s is %d %s", target.Ticker(), q.Price.IntPart(), q.Currency),
		},
	}
}

// RenderError formats a failed poll.
func (s *Source) RenderError(target Target, err error, at time.Time) []string {
	return []string{fmt.Sprintf("[%s] Failed to fetch price for %s (%s)",
		at.Format(timestampLayout), target.Ticker(), provider.KindOf(err))}
}
