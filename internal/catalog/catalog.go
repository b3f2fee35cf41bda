// Package catalog builds the five named Workflows of spec.md §4.7's
// trigger table as concrete workflow.Workflow values wired to the real
// broker, orchestrator, execution, monitor, and marketdata components —
// the missing link between the workflow runtime (C5) and everything it
// was meant to drive.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"zerodha-trader/internal/agents"
	"zerodha-trader/internal/broker"
	domainerrors "zerodha-trader/internal/errors"
	"zerodha-trader/internal/execution"
	"zerodha-trader/internal/ledger"
	"zerodha-trader/internal/marketdata"
	"zerodha-trader/internal/models"
	"zerodha-trader/internal/monitor"
	"zerodha-trader/internal/resilience"
	"zerodha-trader/internal/scheduler"
	"zerodha-trader/internal/workflow"
)

// Workflow names, matching spec.md §4.7's trigger table verbatim so
// Scheduler triggers and CLI `run-workflow <name>` arguments line up with
// the catalog.
const (
	IntradayAnalysis   = "Intraday Analysis"
	OrderExecution     = "Order Execution"
	PositionMonitoring = "Position Monitoring"
	NewsDigest         = "News Digest"
	PostTradeAnalysis  = "Post-Trade Analysis"
)

// candidatesKey is the session_state key Intraday Analysis publishes its
// approved-for-execution candidates under, and Order Execution reads back
// via cross_session (§4.6).
const candidatesKey = "candidates"

// Deps bundles every real component a catalog Workflow's stages call into.
type Deps struct {
	Broker       broker.Broker
	Orchestrator *agents.Orchestrator
	Pipeline     *execution.Pipeline
	Monitor      *monitor.Monitor
	MarketData   marketdata.Port
	Regime       *resilience.MarketRegimeDetector
	Ledger       *ledger.Ledger
	Calendar     *scheduler.MarketCalendar
	Watchlist    []string
	Log          zerolog.Logger
	Quality      *resilience.ExecutionQualityTracker
}

// Build returns the five named Workflows, ready to be handed to
// workflow.Engine.Execute.
func Build(d Deps) []workflow.Workflow {
	return []workflow.Workflow{
		buildIntradayAnalysis(d),
		buildOrderExecution(d),
		buildPositionMonitoring(d),
		buildNewsDigestWorkflow(d),
		buildPostTradeAnalysis(d),
	}
}

// ByName returns the workflow with the given name, for CLI/scheduler
// dispatch.
func ByName(workflows []workflow.Workflow, name string) (workflow.Workflow, bool) {
	for _, wf := range workflows {
		if wf.Name == name {
			return wf, true
		}
	}
	return workflow.Workflow{}, false
}

// buildIntradayAnalysis gates the run on the VIX regime, then runs every
// watchlist symbol through the orchestrator, publishing the resulting
// candidates for Order Execution to pick up.
func buildIntradayAnalysis(d Deps) workflow.Workflow {
	return workflow.Workflow{
		Name: IntradayAnalysis,
		Stages: []workflow.Stage{
			{
				Name: "regime-gate",
				Kind: workflow.StageFunction,
				Fn:   regimeGateStage(d),
			},
			{
				Name: "research",
				Kind: workflow.StageParallel,
				Members: func() []workflow.Stage {
					members := make([]workflow.Stage, 0, len(d.Watchlist))
					for _, sym := range d.Watchlist {
						sym := sym
						members = append(members, workflow.Stage{
							Name: "analyze:" + sym,
							Kind: workflow.StageAgent,
							Fn:   analyzeSymbolStage(d, sym),
						})
					}
					return members
				}(),
			},
			{
				Name: "publish-candidates",
				Kind: workflow.StageFunction,
				Fn:   publishCandidatesStage(),
			},
		},
	}
}

// regimeGateStage asks the VIX-based MarketRegimeDetector for the current
// regime and HALTs the Run if it reads HALT-worthy, mirroring §8 scenario
// 2 (Regime=HALT at vix=35 means no new positions this session).
func regimeGateStage(d Deps) workflow.StageFunc {
	return func(ctx context.Context, rc *workflow.RunContext) (interface{}, error) {
		if d.Regime == nil {
			return models.RegimeNormal, nil
		}
		vix := d.Regime.GetCurrentVIX()
		state := mapVIXLevel(d.Regime.GetVIXLevel())
		multiplier := d.Regime.GetPositionSizeMultiplier()
		if state == models.RegimeHalt {
			multiplier = 0
		}
		artifact, err := models.NewRegime(models.Produced{At: time.Now()}, state, vix, multiplier)
		if err != nil {
			return nil, domainerrors.Wrap(err, "building regime artifact")
		}
		rc.Set("regime", artifact)
		if artifact.IsHalt() {
			return artifact, domainerrors.NewWorkflowError(rc.RunID, "regime-gate", true,
				fmt.Errorf("market regime HALT: vix %.1f, no new positions this session", vix))
		}
		return artifact, nil
	}
}

// mapVIXLevel maps the resilience detector's VIX-based volatility level
// onto the spec's coarser Regime gate: EXTREME vix halts the session
// outright (§8 scenario 2), HIGH/ELEVATED narrow to ELEVATED, LOW is CALM.
func mapVIXLevel(level resilience.VIXLevel) models.RegimeState {
	switch level {
	case resilience.VIXExtreme:
		return models.RegimeHalt
	case resilience.VIXHigh, resilience.VIXElevated:
		return models.RegimeElevated
	case resilience.VIXLow:
		return models.RegimeCalm
	default:
		return models.RegimeNormal
	}
}

// analyzeSymbolStage builds an AnalysisRequest for one symbol from the
// broker and market-data port, then drives it through the orchestrator.
// Any candidate it produces is appended to the run's candidate list; a
// Hold consensus (nil candidate) is a policy outcome, not a stage error.
func analyzeSymbolStage(d Deps, symbol string) workflow.StageFunc {
	return func(ctx context.Context, rc *workflow.RunContext) (interface{}, error) {
		req, err := buildAnalysisRequest(ctx, d, symbol)
		if err != nil {
			return nil, domainerrors.Wrap(err, "building analysis request for "+symbol)
		}

		decision, err := d.Orchestrator.ProcessSymbol(ctx, *req)
		if err != nil {
			return nil, domainerrors.Wrap(err, "processing "+symbol)
		}
		if decision == nil || decision.Candidate == nil {
			return nil, nil
		}

		existing, _ := rc.Get(candidatesKey)
		candidates, _ := existing.([]*models.Candidate)
		candidates = append(candidates, decision.Candidate)
		rc.Set(candidatesKey, candidates)
		return decision.Candidate, nil
	}
}

func buildAnalysisRequest(ctx context.Context, d Deps, symbol string) (*agents.AnalysisRequest, error) {
	req := &agents.AnalysisRequest{Symbol: symbol}

	quote, err := d.Broker.GetQuote(ctx, symbol)
	if err == nil && quote != nil {
		req.CurrentPrice = quote.LTP
	}

	candles, err := d.Broker.GetHistorical(ctx, broker.HistoricalRequest{
		Symbol: symbol, Exchange: models.NSE, Timeframe: "5minute",
		From: time.Now().AddDate(0, 0, -5), To: time.Now(),
	})
	if err == nil {
		req.Candles = map[string][]models.Candle{"5minute": candles}
	}

	if digest, ok := d.MarketData.News(ctx, symbol); ok {
		req.News = newsItemsFromDigest(digest, symbol)
	}

	if fundamentals, ok := d.MarketData.Fundamentals(ctx, symbol); ok {
		req.Research = &agents.ResearchReport{
			Symbol: symbol, PE: fundamentals.PE, PB: fundamentals.PB,
			ROE: fundamentals.ROE, DebtToEquity: fundamentals.DebtToEquity,
			RevenueGrowth: fundamentals.RevenueGrowth, LastUpdated: fundamentals.AsOf,
		}
	}

	req.Portfolio = buildPortfolioState(ctx, d.Broker)
	req.MarketState = &agents.MarketState{Status: models.MarketOpen}
	if d.Regime != nil {
		req.MarketState.VIXLevel = d.Regime.GetCurrentVIX()
	}

	return req, nil
}

func newsItemsFromDigest(digest *models.NewsDigest, symbol string) []agents.NewsItem {
	items := make([]agents.NewsItem, 0, len(digest.KeyEvents))
	for _, e := range digest.KeyEvents {
		items = append(items, agents.NewsItem{
			Title: e.Headline, Source: e.Source, PublishedAt: e.At, Timestamp: e.At,
		})
	}
	return items
}

func buildPortfolioState(ctx context.Context, b broker.Broker) *agents.PortfolioState {
	state := &agents.PortfolioState{}
	if balance, err := b.GetBalance(ctx); err == nil {
		state.AvailableCash = balance.AvailableCash
		state.UsedMargin = balance.UsedMargin
		state.TotalValue = balance.TotalEquity
	}
	if positions, err := b.GetPositions(ctx); err == nil {
		state.Positions = positions
		state.OpenPositionCount = len(positions)
	}
	return state
}

func publishCandidatesStage() workflow.StageFunc {
	return func(ctx context.Context, rc *workflow.RunContext) (interface{}, error) {
		candidates, _ := rc.Get(candidatesKey)
		return candidates, nil
	}
}

// buildOrderExecution reads the candidates Intraday Analysis published
// (via cross_session, since the two workflows keep separate session_state
// rows per §4.6) and runs them through the real execution Pipeline.
func buildOrderExecution(d Deps) workflow.Workflow {
	return workflow.Workflow{
		Name: OrderExecution,
		Stages: []workflow.Stage{
			{
				Name: "place-approved-orders",
				Kind: workflow.StageFunction,
				Fn: func(ctx context.Context, rc *workflow.RunContext) (interface{}, error) {
					var candidates []*models.Candidate
					if cross := rc.CrossSession(); cross != nil {
						if v, ok := cross.State(candidatesKey); ok {
							candidates, _ = v.([]*models.Candidate)
						}
					}
					if len(candidates) == 0 {
						return nil, nil
					}

					dailyLossUsed := 0.0
					if d.Ledger != nil {
						if pnl, err := d.Ledger.DayPnL(ctx, time.Now().Format("2006-01-02")); err == nil && pnl < 0 {
							dailyLossUsed = -pnl
						}
					}

					trades, assessment, err := d.Pipeline.Run(ctx, candidates, dailyLossUsed, models.ProductMIS)
					if err != nil {
						return nil, domainerrors.Wrap(err, "running execution pipeline")
					}
					rc.Set("risk_assessment", assessment)
					return trades, nil
				},
			},
		},
	}
}

// buildPositionMonitoring drives the real Position Monitor's per-tick
// evaluation (target/stop exits, news invalidation, daily loss floor).
func buildPositionMonitoring(d Deps) workflow.Workflow {
	return workflow.Workflow{
		Name: PositionMonitoring,
		Stages: []workflow.Stage{
			{
				Name: "tick",
				Kind: workflow.StageFunction,
				Fn: func(ctx context.Context, rc *workflow.RunContext) (interface{}, error) {
					if d.Monitor == nil {
						return nil, nil
					}
					if err := d.Monitor.Tick(ctx, time.Now()); err != nil {
						return nil, domainerrors.Wrap(err, "position monitor tick")
					}
					return nil, nil
				},
			},
		},
	}
}

// buildNewsDigestWorkflow pulls the rolling per-symbol digests from the
// Market-Data Port's news capability group and merges them into one
// market-wide digest for the session.
func buildNewsDigestWorkflow(d Deps) workflow.Workflow {
	return workflow.Workflow{
		Name: NewsDigest,
		Stages: []workflow.Stage{
			{
				Name: "collect",
				Kind: workflow.StageFunction,
				Fn: func(ctx context.Context, rc *workflow.RunContext) (interface{}, error) {
					var merged *models.NewsDigest
					for _, sym := range d.Watchlist {
						digest, ok := d.MarketData.News(ctx, sym)
						if !ok {
							continue
						}
						if merged == nil {
							merged = digest
						} else {
							merged = digest.Merge(merged)
						}
					}
					if merged == nil {
						return nil, nil
					}
					rc.Set("news_digest", merged)
					return merged, nil
				},
			},
		},
	}
}

// buildPostTradeAnalysis summarizes the day's realized trades from the
// Trade Ledger into a DayReport (realized P&L and hit rate) and attaches
// the execution-quality report. It does not read workflow_history and does
// not compare earlier Intraday Analysis calls with their outcomes.
func buildPostTradeAnalysis(d Deps) workflow.Workflow {
	return workflow.Workflow{
		Name: PostTradeAnalysis,
		Stages: []workflow.Stage{
			{
				Name: "day-report",
				Kind: workflow.StageFunction,
				Fn: func(ctx context.Context, rc *workflow.RunContext) (interface{}, error) {
					today := time.Now().Format("2006-01-02")
					var trades []*models.Trade
					var realized float64
					if d.Ledger != nil {
						var err error
						trades, err = d.Ledger.TradesForDay(ctx, today)
						if err != nil {
							return nil, domainerrors.Wrap(err, "loading day's trades")
						}
						realized, _ = d.Ledger.DayPnL(ctx, today)
					}

					hits := 0
					for _, t := range trades {
						if t.RealizedPnL > 0 {
							hits++
						}
					}
					hitRate := 0.0
					if len(trades) > 0 {
						hitRate = float64(hits) / float64(len(trades))
					}

					report := &models.DayReport{
						Produced:    models.Produced{At: time.Now()},
						Date:        today,
						RealizedPnL: realized,
						HitRate:     hitRate,
					}
					rc.Set("day_report", report)
					return report, nil
				},
			},
			{
				Name: "execution-quality",
				Kind: workflow.StageFunction,
				Fn: func(ctx context.Context, rc *workflow.RunContext) (interface{}, error) {
					if d.Quality == nil {
						return nil, nil
					}
					report := d.Quality.GenerateReport(ctx)
					rc.Set("execution_quality_report", report)
					return report, nil
				},
			},
		},
	}
}
