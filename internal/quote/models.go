// Package quote implements the stock monitor source: exchange selection,
// ticker validation and price reporting.
package quote

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Exchange is a market the user can pick at configuration time.
type Exchange struct {
	// Code is the menu key.
	Code string

	Name string

	// Suffix is appended to symbols to form the provider ticker.
	Suffix string

	// Examples are shown in the symbol prompt.
	Examples string

	// Description is shown in the exchange menu.
	Description string
}

// Exchanges are the built-in markets, in menu order.
var Exchanges = []Exchange{
	{Code: "1", Name: "NASDAQ", Suffix: "", Examples: "AAPL, TSLA, MSFT", Description: "US Markets"},
	{Code: "2", Name: "BSE", Suffix: ".BO", Examples: "RELIANCE, TCS, INFY", Description: "Bombay Stock Exchange"},
}

// ExchangeByCode returns the exchange with the given menu key.
func ExchangeByCode(code string) (Exchange, bool) {
	for _, e := range Exchanges {
		if e.Code == code {
			return e, true
		}
	}
	return Exchange{}, false
}

// Target is a symbol on an exchange.
type Target struct {
	Symbol   string
	Exchange Exchange
}

// Ticker returns the provider ticker: the symbol with the exchange suffix,
// unless the symbol already ends with it.
func (t Target) Ticker() string {
	if t.Exchange.Suffix == "" || strings.HasSuffix(t.Symbol, t.Exchange.Suffix) {
		return t.Symbol
	}
	return t.Symbol + t.Exchange.Suffix
}

func (t Target) String() string {
	return t.Ticker() + " on " + t.Exchange.Name
}

// Quote is the latest price of a ticker.
type Quote struct {
	Symbol     string
	Price      decimal.Decimal
	Currency   string
	MarketTime time.Time
	FetchedAt  time.Time
}

// Provider fetches quotes by ticker.
type Provider interface {
	Name() string
	GetQuote(ctx context.Context, ticker string) (*Quote, error)
}
