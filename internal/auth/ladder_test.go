package auth

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"zerodha-trader/internal/broker"
)

func TestEnsureValidWhenPaperBrokerAlreadyAuthenticated(t *testing.T) {
	pb := broker.NewPaperBroker(broker.PaperBrokerConfig{InitialBalance: 100000})
	ladder := New(pb, zerolog.Nop())

	status, err := ladder.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if status != StatusValid {
		t.Fatalf("status = %s, want VALID", status)
	}
	if !ladder.Valid() {
		t.Fatal("Valid() = false after successful Ensure")
	}
}

func TestEnsureInteractiveRequiredWhenUnauthenticated(t *testing.T) {
	zb := broker.NewZerodhaBroker(broker.ZerodhaConfig{
		APIKey:    "test",
		APISecret: "test",
		TokenPath: t.TempDir() + "/session.json",
	})
	ladder := New(zb, zerolog.Nop())

	status, err := ladder.Ensure(context.Background())
	if err == nil {
		t.Fatal("expected ErrInteractiveRequired, got nil")
	}
	if status != StatusInteractiveRequired {
		t.Fatalf("status = %s, want INTERACTIVE_REQUIRED", status)
	}
	if ladder.Valid() {
		t.Fatal("Valid() = true after interactive-required Ensure")
	}
}
