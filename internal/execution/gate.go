package execution

import (
	"fmt"

	"zerodha-trader/internal/models"
	"zerodha-trader/internal/security"
)

// Posture is the graduated risk stance the gate applies, driven by
// proximity to the daily-loss floor. Grounded on
// RajChodisetti-Trading-app's internal/risk/circuitbreaker.go
// (CircuitBreakerState: normal/warning/reduced/restricted/minimal/halted)
// collapsed to the four postures this spec's sizing actually needs.
type Posture string

const (
	PostureNormal     Posture = "normal"
	PostureReduced    Posture = "reduced"
	PostureRestricted Posture = "restricted"
	PostureHalted     Posture = "halted"
)

// RiskConfig is the injected policy SPEC_FULL.md §13 resolves the
// target_move/per_trade_risk_cap Open Question into: figures live in
// config, never hardcoded.
type RiskConfig struct {
	PerTradeRiskCap float64
	SectorCap       float64
	DailyLossFloor  float64
	TargetMove      float64
}

// Gate is the Execution Engine's pre-trade check, generalized from
// internal/trading/execution.go's ExecutionChecker (named pass/fail checks
// accumulated into a result) from a confidence/operating-mode gate over a
// Decision into a risk-cap/posture gate over a Candidate/ApprovedOrder set.
type Gate struct {
	cfg       RiskConfig
	validator *security.InputValidator
}

// NewGate builds a Gate from injected risk configuration.
func NewGate(cfg RiskConfig) *Gate {
	return &Gate{cfg: cfg, validator: security.NewInputValidator(true)}
}

// Posture computes the graduated stance from today's realized+open risk
// against the daily-loss floor: inside 50% of the floor is normal, 50-75%
// halves size, 75-100% cuts size to a quarter, at/above the floor halts
// new entries outright. This supplements spec.md's binary cap
// without changing the hard-stop invariant (§12 SUPPLEMENTAL FEATURES).
func (g *Gate) Posture(dailyLossUsed float64) Posture {
	if g.cfg.DailyLossFloor <= 0 {
		return PostureNormal
	}
	ratio := dailyLossUsed / g.cfg.DailyLossFloor
	switch {
	case ratio >= 1.0:
		return PostureHalted
	case ratio >= 0.75:
		return PostureRestricted
	case ratio >= 0.5:
		return PostureReduced
	default:
		return PostureNormal
	}
}

// SizeMultiplier returns the quantity scale-down a posture applies before
// an ApprovedOrder is built, so size tapers ahead of the hard cap instead
// of trading full size right up to the boundary.
func (p Posture) SizeMultiplier() float64 {
	switch p {
	case PostureReduced:
		return 0.5
	case PostureRestricted:
		return 0.25
	case PostureHalted:
		return 0
	default:
		return 1.0
	}
}

// Check evaluates a batch of Candidates against the per-trade risk cap,
// sector cap, and current daily-loss posture, returning the subset
// approved plus an explanatory RiskAssessment. An empty approved set from
// a breached cap is domain policy, not an error (§7.4).
func (g *Gate) Check(candidates []*models.Candidate, sectorOf func(symbol string) string, dailyLossUsed float64) ([]*models.Candidate, *models.RiskAssessment) {
	assessment := &models.RiskAssessment{
		Approved:       true,
		SectorExposure: make(map[string]float64),
		DailyRiskUsed:  dailyLossUsed,
		DailyRiskCap:   g.cfg.DailyLossFloor,
	}

	posture := g.Posture(dailyLossUsed)
	if posture == PostureHalted {
		assessment.Approved = false
		assessment.Violations = append(assessment.Violations, "daily loss floor reached: no new entries")
		return nil, assessment
	}

	var approved []*models.Candidate
	for _, c := range candidates {
		if err := g.validator.ValidateSymbol(c.Symbol); err != nil {
			assessment.Violations = append(assessment.Violations, fmt.Sprintf("%s: %v", c.Symbol, err))
			continue
		}
		sector := "UNKNOWN"
		if sectorOf != nil {
			sector = sectorOf(c.Symbol)
		}
		risk := candidateRisk(c) * posture.SizeMultiplier()
		projected := assessment.SectorExposure[sector] + risk
		if g.cfg.SectorCap > 0 && projected > g.cfg.SectorCap {
			assessment.Violations = append(assessment.Violations,
				fmt.Sprintf("%s: sector %s exposure %.2f would exceed cap %.2f", c.Symbol, sector, projected, g.cfg.SectorCap))
			continue
		}
		if g.cfg.PerTradeRiskCap > 0 && risk > g.cfg.PerTradeRiskCap {
			assessment.Violations = append(assessment.Violations,
				fmt.Sprintf("%s: per-trade risk %.2f would exceed cap %.2f", c.Symbol, risk, g.cfg.PerTradeRiskCap))
			continue
		}
		assessment.SectorExposure[sector] = projected
		approved = append(approved, c)
	}
	if len(approved) == 0 {
		assessment.Approved = false
	}
	return approved, assessment
}

func candidateRisk(c *models.Candidate) float64 {
	mid := (c.EntryRange.Low + c.EntryRange.High) / 2
	risk := mid - c.StopLoss
	if risk < 0 {
		risk = -risk
	}
	return risk
}
