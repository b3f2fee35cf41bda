// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"
	"time"

	"zerodha-trader/internal/models"
)

// FailureTag classifies a Broker Port failure per spec.md §4.1, so callers
// can distinguish "back off and retry" from "this request can never
// succeed" without parsing error strings.
type FailureTag string

const (
	FailureRateLimit     FailureTag = "RATE_LIMIT"
	FailureAuthExpired   FailureTag = "AUTH_EXPIRED"
	FailureUpstream      FailureTag = "UPSTREAM"
	FailureInvalidSymbol FailureTag = "INVALID_SYMBOL"
)

// Failure is the tagged error a Broker Port operation returns, so callers
// can branch on FailureTag rather than string-matching. ZerodhaBroker's
// PlaceOrder, PlaceBracketOrder, GetDepth and SubscribeOrders and the
// RateLimitedBroker throttle return it; the other ZerodhaBroker methods
// and all PaperBroker methods return plain errors.
type Failure struct {
	Tag     FailureTag
	Op      string
	Symbol  string
	Err     error
}

func (f *Failure) Error() string {
	return string(f.Tag) + " during " + f.Op + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure tags an underlying error with a Broker Port failure class.
func NewFailure(tag FailureTag, op, symbol string, err error) *Failure {
	return &Failure{Tag: tag, Op: op, Symbol: symbol, Err: err}
}

// Broker defines the interface for broker operations (spec.md §4.1's
// Broker Port): quotes/depth/history/option-chain, positions/holdings/
// orders/tradebook, place/modify/cancel/bracket, calc_margin, and the
// order-update push-stream subscription. Which methods return a *Failure on error is
// listed on Failure.
type Broker interface {
	// Authentication
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	IsAuthenticated() bool
	RefreshSession(ctx context.Context) error

	// Market Data
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetDepth(ctx context.Context, symbol string) (*MarketDepth, error)
	GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error)
	GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error)
	GetInstrumentToken(ctx context.Context, symbol string, exchange models.Exchange) (uint32, error)

	// Orders — client_tag makes PlaceOrder idempotent: replaying the same
	// tag after a crash returns the original OrderResult rather than a
	// duplicate order (§4.1).
	PlaceOrder(ctx context.Context, order *models.Order, clientTag string) (*OrderResult, error)
	PlaceBracketOrder(ctx context.Context, entry *models.Order, stopLoss, takeProfit float64, clientTag string) (*BracketResult, error)
	ModifyOrder(ctx context.Context, orderID string, order *models.Order) error
	CancelOrder(ctx context.Context, orderID string) error
	GetOrders(ctx context.Context) ([]models.Order, error)
	GetOrderHistory(ctx context.Context, from, to time.Time) ([]models.Order, error)
	GetTradebook(ctx context.Context, from, to time.Time) ([]models.Order, error)

	// GTT Orders
	PlaceGTT(ctx context.Context, gtt *models.GTTOrder) (*GTTResult, error)
	ModifyGTT(ctx context.Context, gttID string, gtt *models.GTTOrder) error
	CancelGTT(ctx context.Context, gttID string) error
	GetGTTs(ctx context.Context) ([]models.GTTOrder, error)

	// Positions & Holdings
	GetPositions(ctx context.Context) ([]models.Position, error)
	GetHoldings(ctx context.Context) ([]models.Holding, error)

	// Account
	GetBalance(ctx context.Context) (*models.Balance, error)
	GetMargins(ctx context.Context) (*models.Margins, error)
	CalcMargin(ctx context.Context, order *models.Order) (*models.SegmentMargin, error)

	// Options
	GetOptionChain(ctx context.Context, symbol string, expiry time.Time) (*models.OptionChain, error)

	// Futures
	GetFuturesChain(ctx context.Context, symbol string) (*models.FuturesChain, error)

	// SubscribeOrders streams order/trade/position updates at-least-once,
	// idempotent on (order_id, status) — the receiver is expected to
	// dedupe (§4.1).
	SubscribeOrders(ctx context.Context, handler func(OrderUpdate)) error
}

// MarketDepth is the Level-2 order book snapshot for a symbol, including
// the exchange's circuit limit band.
type MarketDepth struct {
	Symbol       string
	Bids         []DepthLevel
	Asks         []DepthLevel
	LowerCircuit float64
	UpperCircuit float64
}

// DepthLevel is one price/quantity rung of a MarketDepth.
type DepthLevel struct {
	Price    float64
	Quantity int
	Orders   int
}

// BracketResult is the result of placing an entry order with SL/TP
// children (§4.8's bracket discipline).
type BracketResult struct {
	EntryOrderID      string
	StopLossOrderID   string
	TakeProfitOrderID string
}

// OrderUpdate is one push-stream event from SubscribeOrders.
type OrderUpdate struct {
	OrderID string
	Status  string
	Symbol  string
	FilledQty int
	AveragePrice float64
	At      time.Time
}

// Ticker defines the interface for real-time market data streaming.
type Ticker interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Subscribe(symbols []string, mode TickMode) error
	Unsubscribe(symbols []string) error
	RegisterSymbol(symbol string, token uint32)
	OnTick(handler func(models.Tick))
	OnError(handler func(error))
	OnConnect(handler func())
	OnDisconnect(handler func())
}

// TickMode represents the subscription mode for ticks.
type TickMode string

const (
	TickModeQuote TickMode = "quote"
	TickModeFull  TickMode = "full"
)

// HistoricalRequest represents a request for historical data.
type HistoricalRequest struct {
	Symbol    string
	Exchange  models.Exchange
	Timeframe string
	From      time.Time
	To        time.Time
}

// OrderResult represents the result of an order placement.
type OrderResult struct {
	OrderID string
	Status  string
	Message string
}

// GTTResult represents the result of a GTT order placement.
type GTTResult struct {
	TriggerID string
	Status    string
	Message   string
}
