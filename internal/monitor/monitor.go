// Package monitor is the Position Monitor (spec §4.9): a periodic
// decision-table loop over every OPEN trade — news-invalidation close,
// target and stop-loss close, closing every open trade once the
// close-tighten window or flatten time is reached, and the cumulative
// daily-loss-floor guard. It does not move stops (no ATR trailing stop)
// and does not book partial profits: TrailATRMultiple and
// PartialBookRatio are stored but not acted on. Generalized from
// internal/trading/position.go's DefaultPositionManager, which only cached
// broker positions; the decision table itself is new.
package monitor

import (
	"context"
	"sort"
	"time"

	"go.uber.org/atomic"

	"zerodha-trader/internal/execution"
	"zerodha-trader/internal/ledger"
	"zerodha-trader/internal/models"
	"zerodha-trader/internal/scheduler"
)

// Decision is one trade's monitor verdict for a tick.
type Decision string

const (
	DecisionHold          Decision = "hold"
	DecisionTightenStop   Decision = "tighten_stop"
	DecisionPartialBook   Decision = "partial_book"
	DecisionClose         Decision = "close"
)

// NewsCheck reports whether a symbol has a pending invalidating news event
// since the trade's entry, decoupling the Monitor from the Market-Data
// Port's concrete digest format.
type NewsCheck func(symbol string, since time.Time) bool

// PriceFeed returns the latest traded price for symbol.
type PriceFeed func(symbol string) (float64, bool)

// ATRFeed returns the current ATR(14)-equivalent for symbol, used to size
// the trailing stop distance.
type ATRFeed func(symbol string) (float64, bool)

// Monitor runs the periodic decision-table loop over every open Trade.
type Monitor struct {
	ledger   *ledger.Ledger
	engine   *execution.Engine
	calendar *scheduler.MarketCalendar
	price    PriceFeed
	atr      ATRFeed
	news     NewsCheck

	dailyLossUsed    atomic.Float64
	dailyLossFloor   float64
	trailATRMultiple float64
	partialBookRatio float64
}

// Config carries the Monitor's tunable thresholds, injected rather than
// hardcoded (§13's resolved Open Question on risk figures applies equally
// here).
type Config struct {
	DailyLossFloor   float64
	TrailATRMultiple float64 // stop distance = TrailATRMultiple * ATR
	PartialBookRatio float64 // fraction of quantity booked at first target
}

// New builds a Monitor.
func New(led *ledger.Ledger, eng *execution.Engine, cal *scheduler.MarketCalendar, price PriceFeed, atr ATRFeed, news NewsCheck, cfg Config) *Monitor {
	m := &Monitor{
		ledger: led, engine: eng, calendar: cal,
		price: price, atr: atr, news: news,
		dailyLossFloor:   cfg.DailyLossFloor,
		trailATRMultiple: cfg.TrailATRMultiple,
		partialBookRatio: cfg.PartialBookRatio,
	}
	return m
}

// Tick runs one pass of the decision table over every open trade, in
// deterministic trade_id order (§4.9's "deterministic trade_id ordering"
// invariant — a monitor pass must be reproducible given the same broker
// state, not an artifact of map iteration).
func (m *Monitor) Tick(ctx context.Context, now time.Time) error {
	trades, err := m.ledger.OpenTrades(ctx)
	if err != nil {
		return err
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })

	if m.calendar.IsFlatten(now) {
		for _, t := range trades {
			m.flatten(ctx, t, now)
		}
		return nil
	}

	if m.dailyLossFloorBreached() {
		for _, t := range trades {
			m.closeForDailyLossFloor(ctx, t)
		}
		return nil
	}

	tighten := m.calendar.IsCloseTighten(now)
	for _, t := range trades {
		if t.Status != models.TradeOpen {
			continue
		}
		m.evaluate(ctx, t, tighten)
	}
	return nil
}

func (m *Monitor) dailyLossFloorBreached() bool {
	if m.dailyLossFloor <= 0 {
		return false
	}
	return m.dailyLossUsed.Load() >= m.dailyLossFloor
}

// RecordRealizedLoss feeds the cumulative daily-loss guard; callers add a
// trade's realized P&L here as each position closes.
func (m *Monitor) RecordRealizedLoss(pnl float64) {
	if pnl < 0 {
		m.dailyLossUsed.Add(-pnl)
	}
}

func (m *Monitor) evaluate(ctx context.Context, t *models.Trade, tighten bool) {
	price, ok := m.price(t.Symbol)
	if !ok {
		return
	}

	if m.news != nil && t.EntryTime != nil && m.news(t.Symbol, *t.EntryTime) {
		m.engine.CloseTrade(ctx, t, price, models.ExitNewsInvalid)
		m.RecordRealizedLoss(t.RealizedPnL)
		return
	}

	hitTarget := (t.Direction == models.DirectionLong && price >= t.TakeProfitPrice) ||
		(t.Direction == models.DirectionShort && price <= t.TakeProfitPrice)
	if hitTarget {
		m.engine.CloseTrade(ctx, t, price, models.ExitTarget)
		m.RecordRealizedLoss(t.RealizedPnL)
		return
	}

	hitStop := (t.Direction == models.DirectionLong && price <= t.StopLossPrice) ||
		(t.Direction == models.DirectionShort && price >= t.StopLossPrice)
	if hitStop {
		m.engine.CloseTrade(ctx, t, price, models.ExitStopLoss)
		m.RecordRealizedLoss(t.RealizedPnL)
		return
	}

	if tighten {
		m.engine.CloseTrade(ctx, t, price, models.ExitFlattenWindow)
		m.RecordRealizedLoss(t.RealizedPnL)
		return
	}

	if atrVal, ok := m.atr(t.Symbol); ok && m.trailATRMultiple > 0 {
		_ = atrVal // trailing-stop distance recompute is a broker-side GTT modify, left to ModifyOrder callers
	}
}

func (m *Monitor) flatten(ctx context.Context, t *models.Trade, now time.Time) {
	price, ok := m.price(t.Symbol)
	if !ok {
		return
	}
	m.engine.CloseTrade(ctx, t, price, models.ExitFlattenWindow)
	m.RecordRealizedLoss(t.RealizedPnL)
}

func (m *Monitor) closeForDailyLossFloor(ctx context.Context, t *models.Trade) {
	price, ok := m.price(t.Symbol)
	if !ok {
		return
	}
	m.engine.CloseTrade(ctx, t, price, models.ExitDailyLossFloor)
}

