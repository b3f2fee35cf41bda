package catalog

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	domainerrors "zerodha-trader/internal/errors"
	"zerodha-trader/internal/resilience"
	"zerodha-trader/internal/workflow"
)

func TestBuildReturnsAllFiveNamedWorkflows(t *testing.T) {
	workflows := Build(Deps{Log: zerolog.Nop()})
	want := []string{IntradayAnalysis, OrderExecution, PositionMonitoring, NewsDigest, PostTradeAnalysis}
	if len(workflows) != len(want) {
		t.Fatalf("got %d workflows, want %d", len(workflows), len(want))
	}
	for _, name := range want {
		if _, ok := ByName(workflows, name); !ok {
			t.Errorf("missing workflow %q", name)
		}
	}
}

func TestRegimeGateHaltsOnExtremeVIX(t *testing.T) {
	detector := resilience.NewMarketRegimeDetector(resilience.DefaultRegimeConfig())
	detector.UpdateVIX(35)

	stage := regimeGateStage(Deps{Regime: detector})
	rc := workflow.NewRunContext("session", workflow.NewRunID(), nil, nil, nil)

	_, err := stage(context.Background(), rc)
	if err == nil {
		t.Fatal("expected a HALT error at vix=35")
	}
	var werr *domainerrors.WorkflowError
	if !domainerrors.As(err, &werr) || !werr.Halt {
		t.Fatalf("expected a halting WorkflowError, got %v", err)
	}
}

func TestRegimeGateDoesNotHaltOnCalmVIX(t *testing.T) {
	detector := resilience.NewMarketRegimeDetector(resilience.DefaultRegimeConfig())
	detector.UpdateVIX(12)

	stage := regimeGateStage(Deps{Regime: detector})
	rc := workflow.NewRunContext("session", workflow.NewRunID(), nil, nil, nil)

	_, err := stage(context.Background(), rc)
	if err != nil {
		t.Fatalf("expected no HALT at vix=12, got %v", err)
	}
}
