// Package trading provides trading operations including position management,
// exit strategies, and portfolio analysis.
package trading

import (
	"context"
	"time"

	"zerodha-trader/internal/models"
)

// PositionManager handles position tracking and management.
type PositionManager interface {
	GetPositions(ctx context.Context) ([]models.Position, error)
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)
	ExitPosition(ctx context.Context, symbol string) error
	ExitAllPositions(ctx context.Context) error
	GetUnrealizedPnL(ctx context.Context) (float64, error)
}

// ExitManager handles exit strategies.
type ExitManager interface {
	SetTrailingStop(symbol string, percent float64) error
	SetTimeBasedExit(symbol string, duration time.Duration) error
	SetScaleOutTargets(symbol string, targets []ScaleOutTarget) error
	CheckExits(ctx context.Context) ([]ExitSignal, error)
}

// ScaleOutTarget represents a scale-out target.
type ScaleOutTarget struct {
	Price    float64
	Quantity int
	Percent  float64
}

// ExitSignal represents an exit signal.
type ExitSignal struct {
	Symbol   string
	Reason   ExitReason
	Price    float64
	Quantity int
}

// ExitReason represents the reason for an exit.
type ExitReason string

const (
	ExitReasonTrailingStop ExitReason = "trailing_stop"
	ExitReasonTimeLimit    ExitReason = "time_limit"
	ExitReasonTarget       ExitReason = "target"
	ExitReasonStopLoss     ExitReason = "stop_loss"
	ExitReasonMISSquareOff ExitReason = "mis_square_off"
)

// PortfolioAnalyzer provides portfolio analysis functionality.
type PortfolioAnalyzer interface {
	GetPortfolioSummary(ctx context.Context) (*PortfolioSummary, error)
	GetSectorExposure(ctx context.Context) (map[string]float64, error)
	GetPortfolioGreeks(ctx context.Context) (*PortfolioGreeks, error)
	GetPortfolioBeta(ctx context.Context) (float64, error)
	GetVaR(ctx context.Context, confidence float64) (float64, error)
	SuggestHedges(ctx context.Context) ([]HedgeSuggestion, error)
}

// PortfolioSummary represents a portfolio summary.
type PortfolioSummary struct {
	TotalValue      float64
	InvestedValue   float64
	CurrentValue    float64
	TotalPnL        float64
	TotalPnLPercent float64
	DayPnL          float64
	DayPnLPercent   float64
	PositionCount   int
	HoldingCount    int
}

// PortfolioGreeks represents portfolio-level Greeks.
type PortfolioGreeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// HedgeSuggestion represents a hedging suggestion.
type HedgeSuggestion struct {
	Type        string
	Symbol      string
	Action      string
	Quantity    int
	Reason      string
	ExpectedCost float64
}
