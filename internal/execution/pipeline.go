package execution

import (
	"context"
	"errors"

	"zerodha-trader/internal/models"
)

var (
	errZeroRisk      = errors.New("candidate has zero or negative entry-to-stop risk")
	errUndersizedLot = errors.New("risk cap does not cover one tradable lot")
)

// SectorResolver maps a symbol to its sector for the Gate's sector-cap
// accounting. Satisfied by trading.DefaultPortfolioAnalyzer.Sector.
type SectorResolver func(symbol string) string

// Pipeline is the concrete path spec.md only names as separate stages:
// Candidate -> Gate -> ApprovedOrder -> Trade. It sizes each gate-approved
// Candidate to the per-trade risk cap and hands it to the Engine.
type Pipeline struct {
	engine  *Engine
	gate    *Gate
	sector  SectorResolver
	lotSize int
}

// NewPipeline builds a Pipeline from an Engine, a Gate, and a sector
// resolver. lotSize rounds sized quantity down to a tradable lot; 0 or
// negative disables rounding.
func NewPipeline(engine *Engine, gate *Gate, sector SectorResolver, lotSize int) *Pipeline {
	return &Pipeline{engine: engine, gate: gate, sector: sector, lotSize: lotSize}
}

// Run gates candidates against the per-trade/sector/daily-loss caps, sizes
// each survivor to the risk cap, and places it through the Engine. A
// candidate the Gate rejects, or one the risk cap can't size into at least
// one lot, never reaches the broker — that is domain policy, not an error
// (§7.4).
func (p *Pipeline) Run(ctx context.Context, candidates []*models.Candidate, dailyLossUsed float64, product models.ProductType) ([]*models.Trade, *models.RiskAssessment, error) {
	approved, assessment := p.gate.Check(candidates, p.sector, dailyLossUsed)
	mult := p.gate.Posture(dailyLossUsed).SizeMultiplier()

	var trades []*models.Trade
	for _, c := range approved {
		ao, err := p.size(c, product)
		if err == nil && mult < 1 {
			ao.Quantity = int(float64(ao.Quantity) * mult)
			if p.lotSize > 0 {
				ao.Quantity -= ao.Quantity % p.lotSize
			}
			if ao.Quantity <= 0 {
				err = errUndersizedLot
			}
		}
		if err != nil {
			assessment.Violations = append(assessment.Violations, c.Symbol+": "+err.Error())
			continue
		}
		trade, err := p.engine.PlaceAndBracket(ctx, ao)
		if err != nil {
			assessment.Violations = append(assessment.Violations, c.Symbol+": "+err.Error())
			continue
		}
		trades = append(trades, trade)
	}
	return trades, assessment, nil
}

// size turns a gate-approved Candidate into an ApprovedOrder, sizing
// quantity so that (entry - stop) * qty never exceeds the per-trade risk
// cap, rounded down to the nearest tradable lot.
func (p *Pipeline) size(c *models.Candidate, product models.ProductType) (*models.ApprovedOrder, error) {
	entry := (c.EntryRange.Low + c.EntryRange.High) / 2
	riskPerUnit := candidateRisk(c)
	if riskPerUnit <= 0 {
		return nil, errZeroRisk
	}

	cap := p.gate.cfg.PerTradeRiskCap
	if cap <= 0 {
		cap = riskPerUnit
	}
	qty := int(cap / riskPerUnit)
	if p.lotSize > 0 {
		qty -= qty % p.lotSize
	}
	if qty <= 0 {
		return nil, errUndersizedLot
	}

	return models.NewApprovedOrder(c.Produced, "", c.Symbol, c.Direction, qty, p.lotSize,
		models.EntryLimit, entry, c.StopLoss, c.TakeProfit, product, "", cap)
}
