package models

import (
	"fmt"
	"time"
)

// TradeStatus is a position's point in the order-execution state machine
// (§4.8). Transitions are one-way; see TransitionTo.
type TradeStatus string

const (
	TradePending    TradeStatus = "PENDING"
	TradeWorking    TradeStatus = "WORKING"
	TradeOpen       TradeStatus = "OPEN"
	TradeClosing    TradeStatus = "CLOSING"
	TradeClosed     TradeStatus = "CLOSED"
	TradeRejected   TradeStatus = "REJECTED"
	TradeStoppedOut TradeStatus = "STOPPED_OUT"
	TradeExpired    TradeStatus = "EXPIRED"
)

// tradeTransitions enumerates the allowed one-way edges of the trade
// lifecycle graph. A status with no outgoing edges is terminal.
var tradeTransitions = map[TradeStatus][]TradeStatus{
	TradePending: {TradeWorking, TradeRejected, TradeExpired},
	TradeWorking: {TradeOpen, TradeRejected, TradeExpired},
	TradeOpen:    {TradeClosing, TradeStoppedOut},
	TradeClosing: {TradeClosed, TradeStoppedOut},
}

// ExitReason records why a trade left the OPEN/CLOSING states.
type ExitReason string

const (
	ExitTarget        ExitReason = "target"
	ExitStopLoss      ExitReason = "stop_loss"
	ExitTrailingStop  ExitReason = "trailing_stop"
	ExitNewsInvalid   ExitReason = "news_invalidation"
	ExitFlattenWindow ExitReason = "flatten_window"
	ExitDailyLossFloor ExitReason = "daily_loss_floor"
)

// Trade is the execution-engine artifact tracking one approved order
// through fill, bracket placement, and exit (§4.8, §4.10). Construction and
// transitions are validated: the state graph is one-way, and a terminal
// status can never be left.
type Trade struct {
	ID                string
	ApprovedOrderRef  string
	Symbol            string
	Direction         Direction
	Quantity          int
	EntryOrderID      string
	StopLossOrderID   string
	TakeProfitOrderID string
	StopLossPrice     float64
	TakeProfitPrice   float64
	Status            TradeStatus
	EntryTime         *time.Time
	EntryFillPrice    float64
	FilledQty         int
	RemainingQty      int
	ExitTime          *time.Time
	ExitFillPrice     float64
	RealizedPnL       float64
	ExitReason        ExitReason
	ClientTag         string
}

// NewTrade constructs a Trade in its initial PENDING state.
func NewTrade(id, approvedOrderRef, symbol string, dir Direction, qty int, stopLoss, takeProfit float64, clientTag string) *Trade {
	return &Trade{
		ID:               id,
		ApprovedOrderRef: approvedOrderRef,
		Symbol:           symbol,
		Direction:        dir,
		Quantity:         qty,
		RemainingQty:     qty,
		StopLossPrice:    stopLoss,
		TakeProfitPrice:  takeProfit,
		Status:           TradePending,
		ClientTag:        clientTag,
	}
}

// IsTerminal reports whether the trade can no longer transition.
func (t *Trade) IsTerminal() bool {
	return len(tradeTransitions[t.Status]) == 0
}

// TransitionTo moves the trade to next, rejecting any edge not present in
// the one-way state graph (§4.8's "broker truth wins" reconciliation still
// goes through this gate — a reconciler proposing an illegal edge is a bug,
// not a silent overwrite).
func (t *Trade) TransitionTo(next TradeStatus) error {
	for _, allowed := range tradeTransitions[t.Status] {
		if allowed == next {
			t.Status = next
			return nil
		}
	}
	return NewValidationError("status", next, fmt.Sprintf("illegal transition %s -> %s", t.Status, next))
}

// TradeAnalysis represents analysis of a closed trade.
type TradeAnalysis struct {
	TradeID             string
	WhatWentRight       string
	WhatWentWrong       string
	LessonsLearned      string
	EntryQuality        int // 1-5
	ExitQuality         int // 1-5
	RiskManagementScore int // 1-5
	EmotionalNotes      string
	MarketContext       *TradeContext
}

// TradeContext represents market context during a trade.
type TradeContext struct {
	NiftyLevel  float64
	SectorIndex float64
	VIXLevel    float64
	MarketTrend string
	NewsEvents  string
}

// TradePlan represents a planned trade.
type TradePlan struct {
	ID         string
	Symbol     string
	Side       OrderSide
	EntryPrice float64
	StopLoss   float64
	Target1    float64
	Target2    float64
	Target3    float64
	Quantity   int
	RiskReward float64
	Status     PlanStatus
	Notes      string
	Reasoning  string
	Source     string // "manual", "ai", "prep"
	CreatedAt  time.Time
	ExecutedAt *time.Time
}

// PlanStatus represents the status of a trade plan.
type PlanStatus string

const (
	PlanPending   PlanStatus = "PENDING"
	PlanActive    PlanStatus = "ACTIVE"
	PlanExecuted  PlanStatus = "EXECUTED"
	PlanCancelled PlanStatus = "CANCELLED"
	PlanExpired   PlanStatus = "EXPIRED"
)

// JournalEntry represents a trading journal entry.
type JournalEntry struct {
	ID        string
	TradeID   string
	Date      time.Time
	Content   string
	Tags      []string
	Mood      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
