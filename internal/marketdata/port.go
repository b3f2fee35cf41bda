// Package marketdata implements the Market-Data Port (spec.md §4.2, C2):
// four independent capability groups — institutional flows, news, company
// fundamentals, and the corporate-event calendar — each of which degrades
// to an empty, non-fatal result rather than an error when its upstream is
// unavailable. A workflow stage that calls into this port never halts a
// Run just because one capability group came back empty.
package marketdata

import (
	"context"
	"time"

	"zerodha-trader/internal/models"
)

// FlowRecord is one day's institutional (FII/DII) net-flow figure for a
// symbol or the broad market.
type FlowRecord struct {
	Date        time.Time
	Symbol      string
	FIINetCr    float64
	DIINetCr    float64
	Provisional bool
}

// Fundamentals is a pre-shaped snapshot of a company's latest reported
// fundamentals, as consumed by the research and intraday-analysis stages.
type Fundamentals struct {
	Symbol        string
	AsOf          time.Time
	PE            float64
	PB            float64
	ROE           float64
	DebtToEquity  float64
	RevenueGrowth float64
	MarketCapCr   float64
}

// Port is the Market-Data Port: four capability groups, each returning
// (result, ok) instead of (result, error) so that a capability with
// nothing to report — upstream down, symbol not covered, cache empty —
// degrades to an empty result without ever halting the caller's workflow.
type Port interface {
	// Flows returns institutional flow records for symbol over the given
	// trailing window, or ok=false if none could be obtained.
	Flows(ctx context.Context, symbol string, lookback time.Duration) ([]FlowRecord, bool)

	// News returns the current rolling news digest covering symbol, or
	// ok=false if nothing has arrived yet.
	News(ctx context.Context, symbol string) (*models.NewsDigest, bool)

	// Fundamentals returns the latest fundamentals snapshot for symbol, or
	// ok=false if unavailable.
	Fundamentals(ctx context.Context, symbol string) (*Fundamentals, bool)

	// Events returns upcoming corporate events for symbol within the given
	// trailing/forward window, or ok=false if none could be obtained.
	Events(ctx context.Context, symbol string, horizon time.Duration) ([]models.CorporateEvent, bool)
}
