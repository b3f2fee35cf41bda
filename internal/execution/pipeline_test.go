package execution

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"zerodha-trader/internal/broker"
	"zerodha-trader/internal/ledger"
	"zerodha-trader/internal/models"
)

func newTestEngine(t *testing.T) (*Engine, *broker.PaperBroker) {
	t.Helper()
	dir := t.TempDir()
	led, err := ledger.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("opening ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })

	outbox, err := OpenOutbox(filepath.Join(dir, "outbox.jsonl"))
	if err != nil {
		t.Fatalf("opening outbox: %v", err)
	}

	pb := broker.NewPaperBroker(broker.PaperBrokerConfig{InitialBalance: 1_000_000})
	engine := New(pb, led, outbox, zerolog.Nop(), 2*time.Second)
	return engine, pb
}

func testCandidate(t *testing.T, symbol string, entry, stop, target float64) *models.Candidate {
	t.Helper()
	produced := models.Produced{At: time.Now()}
	c, err := models.NewCandidate(produced, symbol, models.DirectionLong, 80, 0.85,
		models.PriceRange{Low: entry - 1, High: entry + 1}, stop, target, 0.01, nil)
	if err != nil {
		t.Fatalf("building candidate: %v", err)
	}
	return c
}

func TestPipelineRunPlacesApprovedCandidates(t *testing.T) {
	engine, pb := newTestEngine(t)
	pb.UpdatePrice("RELIANCE", 2500)

	gate := NewGate(RiskConfig{PerTradeRiskCap: 5000, SectorCap: 10000, DailyLossFloor: 20000})
	sector := func(symbol string) string { return "ENERGY" }
	pipeline := NewPipeline(engine, gate, sector, 1)

	candidate := testCandidate(t, "RELIANCE", 2500, 2470, 2560)

	trades, assessment, err := pipeline.Run(context.Background(), []*models.Candidate{candidate}, 0, models.ProductMIS)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !assessment.Approved {
		t.Fatalf("expected assessment to approve, violations=%v", assessment.Violations)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d (violations=%v)", len(trades), assessment.Violations)
	}
	trade := trades[0]
	if trade.Status != models.TradeOpen {
		t.Errorf("expected trade OPEN after paper fill, got %s", trade.Status)
	}
	if trade.Symbol != "RELIANCE" {
		t.Errorf("expected symbol RELIANCE, got %s", trade.Symbol)
	}
	if trade.Quantity <= 0 {
		t.Errorf("expected positive sized quantity, got %d", trade.Quantity)
	}
}

func TestPipelineRunHaltsOnDailyLossFloor(t *testing.T) {
	engine, pb := newTestEngine(t)
	pb.UpdatePrice("TCS", 3500)

	gate := NewGate(RiskConfig{PerTradeRiskCap: 5000, SectorCap: 10000, DailyLossFloor: 10000})
	pipeline := NewPipeline(engine, gate, func(string) string { return "IT" }, 1)

	candidate := testCandidate(t, "TCS", 3500, 3460, 3580)

	trades, assessment, err := pipeline.Run(context.Background(), []*models.Candidate{candidate}, 10000, models.ProductMIS)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if assessment.Approved {
		t.Fatalf("expected assessment to be rejected at daily loss floor")
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades placed at daily loss floor, got %d", len(trades))
	}
}

func TestPipelineSizeRejectsZeroRisk(t *testing.T) {
	engine, _ := newTestEngine(t)
	gate := NewGate(RiskConfig{PerTradeRiskCap: 5000})
	pipeline := NewPipeline(engine, gate, func(string) string { return "MISC" }, 1)

	candidate := testCandidate(t, "INFY", 1500, 1480, 1540)
	candidate.StopLoss = (candidate.EntryRange.Low + candidate.EntryRange.High) / 2 // == mid, zero risk

	if _, err := pipeline.size(candidate, models.ProductMIS); err != errZeroRisk {
		t.Fatalf("expected errZeroRisk, got %v", err)
	}
}
