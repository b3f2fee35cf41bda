package execution

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zerodha-trader/internal/broker"
	domainerrors "zerodha-trader/internal/errors"
	"zerodha-trader/internal/ledger"
	"zerodha-trader/internal/models"
	"zerodha-trader/internal/resilience"
	"zerodha-trader/internal/security"
	"zerodha-trader/internal/trading"
)

// Engine drives ApprovedOrders through the Trade lifecycle state machine
// (§4.8): place the entry together with its SL/TP bracket children, wait
// for the entry fill, and hand off to the Position Monitor. Rewritten from scratch against the
// spec's state graph — the teacher's internal/trading/execution.go was a
// confidence/risk gate, not a lifecycle machine; its check style lives on
// in Gate (gate.go).
type Engine struct {
	brk      broker.Broker
	ledger   *ledger.Ledger
	outbox   *Outbox
	log      zerolog.Logger
	circuits *trading.CircuitMonitor
	margins  *trading.MarginManager
	quality  *resilience.ExecutionQualityTracker
	access   *security.AccessController
	audit    *security.AuditLogger

	entryFillTimeout time.Duration
}

// SetQualityTracker attaches an execution-quality tracker (resilience.C8);
// fills and rejections record into it when set. Nil by default so Engine
// stays usable without one.
func (e *Engine) SetQualityTracker(t *resilience.ExecutionQualityTracker) {
	e.quality = t
}

// SetSecurity attaches read-only enforcement and audit logging. When access
// is nil every order is allowed; when audit is nil placements go unlogged.
func (e *Engine) SetSecurity(access *security.AccessController, audit *security.AuditLogger) {
	e.access = access
	e.audit = audit
}

// New builds an Engine. entryFillTimeout bounds how long PlaceAndBracket
// waits for the entry leg to fill. The SL/TP children are placed with the
// entry in one PlaceBracketOrder call, before that wait, so they exist
// whether or not the entry fills.
func New(brk broker.Broker, led *ledger.Ledger, outbox *Outbox, log zerolog.Logger, entryFillTimeout time.Duration) *Engine {
	if entryFillTimeout <= 0 {
		entryFillTimeout = 30 * time.Second
	}
	return &Engine{
		brk: brk, ledger: led, outbox: outbox, log: log, entryFillTimeout: entryFillTimeout,
		circuits: trading.NewCircuitMonitor(brk),
		margins:  trading.NewMarginManager(brk),
	}
}

// ClientTag derives a stable idempotency tag from (trade_id, purpose), so
// replaying the same logical intent after a crash never double-places an
// order (§4.1, §4.8).
func ClientTag(tradeID, purpose string) string {
	sum := sha256.Sum256([]byte(tradeID + ":" + purpose))
	return hex.EncodeToString(sum[:])[:32]
}

// PlaceAndBracket executes one ApprovedOrder end to end: PENDING ->
// WORKING (entry and SL/TP brackets placed together) -> OPEN (entry
// filled), or REJECTED on placement failure and EXPIRED on failure to
// fill. An expired trade's bracket children are not cancelled here.
func (e *Engine) PlaceAndBracket(ctx context.Context, ao *models.ApprovedOrder) (*models.Trade, error) {
	if e.access != nil {
		if err := e.access.CheckPermission(ctx, security.OpPlaceOrder); err != nil {
			return nil, err
		}
	}

	tradeID := uuid.NewString()
	clientTag := ClientTag(tradeID, "entry")
	trade := models.NewTrade(tradeID, ao.CandidateID, ao.Symbol, ao.Direction, ao.Quantity, ao.StopLoss, ao.TakeProfit, clientTag)

	if err := e.ledger.Insert(ctx, trade); err != nil {
		return nil, domainerrors.Wrap(err, "recording new trade")
	}

	if err := e.outbox.WriteIntent(OutboxEntry{ClientTag: clientTag, TradeID: tradeID, Symbol: ao.Symbol, Intent: "place"}); err != nil {
		e.log.Warn().Err(err).Str("trade_id", tradeID).Msg("execution: failed to journal order intent")
	}

	entryOrder := &models.Order{
		Symbol:   ao.Symbol,
		Side:     directionToSide(ao.Direction),
		Type:     entryOrderType(ao.EntryType),
		Quantity: ao.Quantity,
		Price:    ao.EntryPrice,
		Product:  ao.Product,
		Tag:      clientTag,
	}

	if locked, status, err := e.circuits.IsCircuitLocked(ctx, ao.Symbol, models.NSE); err == nil && locked {
		pending := trade.Status
		trade.TransitionTo(models.TradeRejected)
		e.ledger.RecordTransition(ctx, trade, pending, fmt.Sprintf("rejected: %s is %s", ao.Symbol, status))
		e.recordRejection(tradeID, ao, fmt.Sprintf("%s is %s", ao.Symbol, status))
		return trade, fmt.Errorf("%s is %s, refusing entry", ao.Symbol, status)
	}

	if whatIf, err := e.margins.WhatIfMargin(ctx, ao.Symbol, models.NSE, directionToSide(ao.Direction), ao.Quantity, ao.EntryPrice, ao.Product); err == nil && !whatIf.CanExecute {
		pending := trade.Status
		trade.TransitionTo(models.TradeRejected)
		e.ledger.RecordTransition(ctx, trade, pending, fmt.Sprintf("rejected: margin shortfall %.2f", whatIf.ShortfallAmount))
		e.recordRejection(tradeID, ao, fmt.Sprintf("margin shortfall %.2f", whatIf.ShortfallAmount))
		return trade, fmt.Errorf("insufficient margin for %s: shortfall %.2f", ao.Symbol, whatIf.ShortfallAmount)
	}

	from := trade.Status
	if err := trade.TransitionTo(models.TradeWorking); err != nil {
		return trade, err
	}

	placedAt := time.Now()
	bracket, err := e.brk.PlaceBracketOrder(ctx, entryOrder, ao.StopLoss, ao.TakeProfit, clientTag)
	_ = e.outbox.MarkDispatched(clientTag)
	if err != nil {
		trade.TransitionTo(models.TradeRejected)
		e.ledger.RecordTransition(ctx, trade, from, err.Error())
		e.recordRejection(tradeID, ao, err.Error())
		return trade, err
	}

	trade.EntryOrderID = bracket.EntryOrderID
	trade.StopLossOrderID = bracket.StopLossOrderID
	trade.TakeProfitOrderID = bracket.TakeProfitOrderID
	if err := e.ledger.RecordTransition(ctx, trade, from, "entry order placed"); err != nil {
		e.log.Error().Err(err).Str("trade_id", tradeID).Msg("execution: failed to persist WORKING transition")
	}
	if e.audit != nil {
		e.audit.LogOrderPlaced(ctx, bracket.EntryOrderID, ao.Symbol, string(directionToSide(ao.Direction)),
			ao.Quantity, ao.EntryPrice, string(entryOrderType(ao.EntryType)), string(ao.Product), true, "")
	}

	filled, err := e.awaitEntryFill(ctx, trade)
	if err != nil {
		from = trade.Status
		trade.TransitionTo(models.TradeExpired)
		e.ledger.RecordTransition(ctx, trade, from, "entry fill wait window expired")
		return trade, err
	}

	from = trade.Status
	if err := trade.TransitionTo(models.TradeOpen); err != nil {
		return trade, err
	}
	now := time.Now()
	trade.EntryTime = &now
	trade.EntryFillPrice = filled.AveragePrice
	trade.FilledQty = filled.FilledQty
	trade.RemainingQty = trade.Quantity - filled.FilledQty
	if err := e.ledger.RecordTransition(ctx, trade, from, "entry filled"); err != nil {
		e.log.Error().Err(err).Str("trade_id", tradeID).Msg("execution: failed to persist OPEN transition")
	}

	if e.quality != nil {
		e.quality.RecordExecution(resilience.ExecutionQuality{
			OrderID:       trade.EntryOrderID,
			Symbol:        ao.Symbol,
			ExpectedPrice: ao.EntryPrice,
			ActualPrice:   filled.AveragePrice,
			LatencyMs:     time.Since(placedAt).Milliseconds(),
			OrderType:     string(entryOrderType(ao.EntryType)),
			Side:          string(directionToSide(ao.Direction)),
		})
	}

	return trade, nil
}

// recordRejection logs a rejected entry into the execution-quality tracker
// so Post-Trade Analysis sees rejection rates alongside fill quality.
func (e *Engine) recordRejection(tradeID string, ao *models.ApprovedOrder, reason string) {
	if e.quality != nil {
		e.quality.RecordRejection(tradeID, ao.Symbol, reason)
	}
	if e.audit != nil {
		e.audit.LogOrderPlaced(context.Background(), tradeID, ao.Symbol, string(directionToSide(ao.Direction)),
			ao.Quantity, ao.EntryPrice, string(entryOrderType(ao.EntryType)), string(ao.Product), false, reason)
	}
}

// awaitEntryFill polls order status until the entry leg reports COMPLETE
// or entryFillTimeout elapses. A push-stream broker would instead drive
// this from SubscribeOrders; polling keeps the Engine independent of
// whether the wired Broker supports postbacks (the paper adapter does not).
func (e *Engine) awaitEntryFill(ctx context.Context, trade *models.Trade) (*broker.OrderUpdate, error) {
	deadline := time.Now().Add(e.entryFillTimeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		orders, err := e.brk.GetOrders(ctx)
		if err == nil {
			for _, o := range orders {
				if o.ID == trade.EntryOrderID && o.Status == "COMPLETE" {
					return &broker.OrderUpdate{OrderID: o.ID, Status: o.Status, FilledQty: o.FilledQty, AveragePrice: o.AveragePrice}, nil
				}
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("entry fill wait window expired for order %s", trade.EntryOrderID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// CloseTrade transitions an OPEN trade to CLOSING then CLOSED, placing the
// offsetting market order and recording the realized P&L and exit reason
// (called by the Position Monitor, C9).
func (e *Engine) CloseTrade(ctx context.Context, trade *models.Trade, exitPrice float64, reason models.ExitReason) error {
	from := trade.Status
	if err := trade.TransitionTo(models.TradeClosing); err != nil {
		return err
	}
	if err := e.ledger.RecordTransition(ctx, trade, from, "exit initiated: "+string(reason)); err != nil {
		e.log.Error().Err(err).Str("trade_id", trade.ID).Msg("execution: failed to persist CLOSING transition")
	}

	exitClientTag := ClientTag(trade.ID, "exit")
	exitOrder := &models.Order{
		Symbol:   trade.Symbol,
		Side:     oppositeSide(directionToSide(trade.Direction)),
		Type:     models.OrderTypeMarket,
		Quantity: trade.RemainingQty,
		Tag:      exitClientTag,
	}
	if _, err := e.brk.PlaceOrder(ctx, exitOrder, exitClientTag); err != nil {
		return domainerrors.Wrap(err, "placing exit order")
	}

	from = trade.Status
	if err := trade.TransitionTo(models.TradeClosed); err != nil {
		return err
	}
	now := time.Now()
	trade.ExitTime = &now
	trade.ExitFillPrice = exitPrice
	trade.ExitReason = reason
	trade.RealizedPnL = realizedPnL(trade, exitPrice)
	return e.ledger.RecordTransition(ctx, trade, from, "exit filled: "+string(reason))
}

// Reconcile applies a broker-reported order status to the local Trade,
// per §4.8's "broker truth wins" rule: if the broker's state implies a
// transition the local state graph doesn't allow, that's surfaced as a
// ReconciliationError rather than silently forced through.
func (e *Engine) Reconcile(ctx context.Context, trade *models.Trade, update broker.OrderUpdate) error {
	var target models.TradeStatus
	switch update.Status {
	case "COMPLETE":
		if trade.Status == models.TradeWorking {
			target = models.TradeOpen
		} else if trade.Status == models.TradeClosing {
			target = models.TradeClosed
		} else {
			return nil
		}
	case "REJECTED":
		target = models.TradeRejected
	case "CANCELLED":
		target = models.TradeExpired
	default:
		return nil
	}

	from := trade.Status
	if err := trade.TransitionTo(target); err != nil {
		return domainerrors.NewReconciliationError(trade.ID, string(from), update.Status, err)
	}
	return e.ledger.RecordTransition(ctx, trade, from, "reconciled from broker update")
}

func directionToSide(d models.Direction) models.OrderSide {
	if d == models.DirectionShort {
		return models.OrderSideSell
	}
	return models.OrderSideBuy
}

func oppositeSide(s models.OrderSide) models.OrderSide {
	if s == models.OrderSideBuy {
		return models.OrderSideSell
	}
	return models.OrderSideBuy
}

func entryOrderType(et models.EntryType) models.OrderType {
	if et == models.EntryMarket {
		return models.OrderTypeMarket
	}
	return models.OrderTypeLimit
}

func realizedPnL(trade *models.Trade, exitPrice float64) float64 {
	sign := 1.0
	if trade.Direction == models.DirectionShort {
		sign = -1.0
	}
	return sign * (exitPrice - trade.EntryFillPrice) * float64(trade.FilledQty)
}
