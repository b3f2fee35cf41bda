// Package models provides domain models for the trading orchestrator.
package models

import "time"

// Produced carries the attribution every artifact needs: which workflow,
// stage, and run produced it (§4.4).
type Produced struct {
	Workflow string
	Stage    string
	RunID    string
	At       time.Time
}

// RegimeState is the coarse market state used as a gate and weight on
// analyst outputs (§3).
type RegimeState string

const (
	RegimeCalm     RegimeState = "CALM"
	RegimeNormal   RegimeState = "NORMAL"
	RegimeElevated RegimeState = "ELEVATED"
	RegimeHalt     RegimeState = "HALT"
)

// Regime is the intraday workflow's gate artifact. Invariant: HALT implies
// PositionMultiplier == 0, enforced in NewRegime.
type Regime struct {
	Produced            Produced
	State               RegimeState `validate:"required"`
	VIX                 float64     `validate:"gte=0"`
	PositionMultiplier  float64     `validate:"gte=0,lte=1.5"`
}

// NewRegime constructs a Regime and enforces the HALT/multiplier invariant.
func NewRegime(produced Produced, state RegimeState, vix, multiplier float64) (*Regime, error) {
	r := &Regime{Produced: produced, State: state, VIX: vix, PositionMultiplier: multiplier}
	if err := validateStruct(r); err != nil {
		return nil, err
	}
	if r.State == RegimeHalt && r.PositionMultiplier != 0 {
		return nil, NewValidationError("position_multiplier", multiplier, "HALT regime requires multiplier == 0")
	}
	return r, nil
}

// IsHalt reports whether trading is halted under this regime.
func (r *Regime) IsHalt() bool { return r.State == RegimeHalt }

// StockSignal is a single analyst's typed opinion on a symbol. Score bounds
// are analyst-declared and validated on ingest (§3).
type StockSignal struct {
	Produced   Produced
	Symbol     string  `validate:"required"`
	AnalystID  string  `validate:"required"`
	Score      int
	ScoreMin   int
	ScoreMax   int
	Confidence float64 `validate:"gte=0,lte=1"`
	Rationale  string
	ProducedAt time.Time
}

// NewStockSignal constructs a StockSignal, validating the analyst-declared
// score range and confidence bound.
func NewStockSignal(produced Produced, symbol, analystID string, score, min, max int, confidence float64, rationale string) (*StockSignal, error) {
	s := &StockSignal{
		Produced: produced, Symbol: symbol, AnalystID: analystID,
		Score: score, ScoreMin: min, ScoreMax: max,
		Confidence: confidence, Rationale: rationale, ProducedAt: produced.At,
	}
	if err := validateStruct(s); err != nil {
		return nil, err
	}
	if min > max {
		return nil, NewValidationError("score_range", []int{min, max}, "score_min must be <= score_max")
	}
	if score < min || score > max {
		return nil, NewValidationError("score", score, "score outside analyst-declared bounds")
	}
	return s, nil
}

// Direction is a Candidate's trade direction.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// PriceRange is an inclusive entry band.
type PriceRange struct {
	Low  float64
	High float64
}

// Candidate is a stock pick with explicit entry/SL/TP, eligible for risk
// sizing (§3). Invariants are enforced in NewCandidate: they cannot be
// expressed as static struct tags because they relate multiple fields.
type Candidate struct {
	Produced            Produced
	Symbol              string     `validate:"required"`
	Direction           Direction  `validate:"required"`
	CompositeScore      float64
	Confidence          float64    `validate:"gte=0,lte=1"`
	EntryRange          PriceRange
	StopLoss            float64
	TakeProfit          float64
	ContributingSignals []StockSignal
}

// MinEmitConfidence is the minimum confidence a Candidate may carry on emit
// (§3: "confidence >= 0.70 on emit").
const MinEmitConfidence = 0.70

// NewCandidate validates direction-dependent stop/target ordering, the
// minimum move requirement, and the emit-time confidence floor.
func NewCandidate(produced Produced, symbol string, dir Direction, score, confidence float64, entry PriceRange, stopLoss, takeProfit float64, targetMove float64, signals []StockSignal) (*Candidate, error) {
	c := &Candidate{
		Produced: produced, Symbol: symbol, Direction: dir,
		CompositeScore: score, Confidence: confidence, EntryRange: entry,
		StopLoss: stopLoss, TakeProfit: takeProfit, ContributingSignals: signals,
	}
	if err := validateStruct(c); err != nil {
		return nil, err
	}
	if confidence < MinEmitConfidence {
		return nil, NewValidationError("confidence", confidence, "candidate confidence below emit floor 0.70")
	}
	if entry.Low <= 0 || entry.High < entry.Low {
		return nil, NewValidationError("entry_range", entry, "entry range must have high >= low > 0")
	}
	switch dir {
	case DirectionLong:
		if !(stopLoss < entry.Low) {
			return nil, NewValidationError("stop_loss", stopLoss, "LONG requires stop_loss < entry_range.low")
		}
		if !(takeProfit > entry.High) {
			return nil, NewValidationError("take_profit", takeProfit, "LONG requires take_profit > entry_range.high")
		}
	case DirectionShort:
		if !(stopLoss > entry.High) {
			return nil, NewValidationError("stop_loss", stopLoss, "SHORT requires stop_loss > entry_range.high")
		}
		if !(takeProfit < entry.Low) {
			return nil, NewValidationError("take_profit", takeProfit, "SHORT requires take_profit < entry_range.low")
		}
	default:
		return nil, NewValidationError("direction", dir, "direction must be LONG or SHORT")
	}
	mid := (entry.Low + entry.High) / 2
	if abs(takeProfit-mid) < targetMove*mid {
		return nil, NewValidationError("take_profit", takeProfit, "take_profit move below required target_move")
	}
	return c, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// EntryType is how an ApprovedOrder's entry leg is routed.
type EntryType string

const (
	EntryLimit  EntryType = "LIMIT"
	EntryMarket EntryType = "MARKET"
)

// ApprovedOrder is a Candidate that has passed risk sizing and capital
// checks (§3).
type ApprovedOrder struct {
	Produced    Produced
	CandidateID string
	Symbol      string      `validate:"required"`
	Direction   Direction   `validate:"required"`
	Quantity    int         `validate:"gte=1"`
	EntryType   EntryType   `validate:"required"`
	EntryPrice  float64     `validate:"gt=0"`
	StopLoss    float64
	TakeProfit  float64
	Product     ProductType
	Tag         string
}

// NewApprovedOrder validates quantity/lot-size and the per-trade risk cap;
// sector and daily-loss caps are batch-level and checked by the caller
// (internal/execution) across the full order set.
func NewApprovedOrder(produced Produced, candidateID, symbol string, dir Direction, qty int, lotSize int, entryType EntryType, entry, stopLoss, takeProfit float64, product ProductType, tag string, perTradeRiskCap float64) (*ApprovedOrder, error) {
	o := &ApprovedOrder{
		Produced: produced, CandidateID: candidateID, Symbol: symbol, Direction: dir,
		Quantity: qty, EntryType: entryType, EntryPrice: entry,
		StopLoss: stopLoss, TakeProfit: takeProfit, Product: product, Tag: tag,
	}
	if err := validateStruct(o); err != nil {
		return nil, err
	}
	if lotSize > 0 && qty%lotSize != 0 {
		return nil, NewValidationError("quantity", qty, "quantity must be an integer multiple of lot size")
	}
	riskPerUnit := abs(entry - stopLoss)
	totalRisk := float64(qty) * riskPerUnit
	if totalRisk > perTradeRiskCap {
		return nil, NewRiskError("per_trade_risk_cap", totalRisk, perTradeRiskCap, "order risk exceeds per-trade cap")
	}
	return o, nil
}

// RiskAssessment is the explanatory record produced alongside a (possibly
// empty) ApprovedOrder set — a risk-cap breach is domain policy, not an
// error (§7.4).
type RiskAssessment struct {
	Approved       bool
	Violations     []string
	SectorExposure map[string]float64
	DailyRiskUsed  float64
	DailyRiskCap   float64
}

// Sentiment is the News Digest's market-wide read.
type Sentiment string

const (
	SentimentRiskOn  Sentiment = "RISK_ON"
	SentimentNeutral Sentiment = "NEUTRAL"
	SentimentRiskOff Sentiment = "RISK_OFF"
)

// NewsEvent is a single dated, attributed news fact.
type NewsEvent struct {
	At      time.Time
	Headline string
	Symbols  []string
	Source   string
}

// NewsDigest is additive within a trading day: a later digest never
// deletes facts from an earlier one in the same session; it supersedes
// ambiguous priors by timestamp (§3).
type NewsDigest struct {
	Produced        Produced
	ProducedAt      time.Time
	KeyEvents       []NewsEvent
	Sentiment       Sentiment
	AffectedSymbols []string
}

// Merge combines an earlier digest's events with this one, keeping all
// facts from both and taking the later digest's sentiment/affected-symbol
// read (the "supersedes ambiguous priors by timestamp" rule).
func (d *NewsDigest) Merge(earlier *NewsDigest) *NewsDigest {
	if earlier == nil {
		return d
	}
	merged := &NewsDigest{
		Produced:        d.Produced,
		ProducedAt:      d.ProducedAt,
		Sentiment:       d.Sentiment,
		AffectedSymbols: d.AffectedSymbols,
	}
	merged.KeyEvents = append(merged.KeyEvents, earlier.KeyEvents...)
	merged.KeyEvents = append(merged.KeyEvents, d.KeyEvents...)
	return merged
}

// AffectsSymbol reports whether a symbol is named in this digest.
func (d *NewsDigest) AffectsSymbol(symbol string) bool {
	for _, s := range d.AffectedSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// AnalystAccuracy summarizes one analyst's historical hit rate, used in
// DayReport.
type AnalystAccuracy struct {
	AnalystID     string
	TotalSignals  int
	CorrectSignals int
	Accuracy      float64
}

// DayReport is the post-trade workflow's end-of-day self-evaluation
// artifact (§3).
type DayReport struct {
	Produced        Produced
	Date            string
	RealizedPnL     float64
	UnrealizedPnL   float64
	HitRate         float64
	AnalystAccuracy []AnalystAccuracy
	Lessons         []string
}
