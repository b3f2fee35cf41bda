package marketdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := c.GetBytes("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestTTLCacheRoundTrip(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	v, ok, err := c.GetBytes("k")
	if err != nil || !ok {
		t.Fatalf("GetBytes: ok=%v err=%v", ok, err)
	}
	if string(v) != "v" {
		t.Fatalf("value = %q, want %q", v, "v")
	}
}

func TestNewsFeedMergesAcrossMessages(t *testing.T) {
	nf := NewNewsFeed(NewsFeedConfig{Brokers: []string{"localhost:9092"}, Topic: "news", GroupID: "test"}, zerolog.Nop())

	nf.handle([]byte(`{"at":"2026-01-02T09:00:00Z","headline":"first","symbols":["RELIANCE"],"source":"wire","sentiment":"RISK_ON"}`))
	nf.handle([]byte(`{"at":"2026-01-02T09:05:00Z","headline":"second","symbols":["RELIANCE"],"source":"wire","sentiment":"NEUTRAL"}`))

	digest, ok := nf.Digest("RELIANCE")
	if !ok {
		t.Fatal("expected digest for RELIANCE")
	}
	if len(digest.KeyEvents) != 2 {
		t.Fatalf("KeyEvents = %d, want 2 (additive merge)", len(digest.KeyEvents))
	}
	if digest.Sentiment != "NEUTRAL" {
		t.Fatalf("Sentiment = %s, want NEUTRAL (latest wins)", digest.Sentiment)
	}
}

func TestNewsFeedDigestMissForUnknownSymbol(t *testing.T) {
	nf := NewNewsFeed(NewsFeedConfig{Brokers: []string{"localhost:9092"}, Topic: "news", GroupID: "test"}, zerolog.Nop())
	if _, ok := nf.Digest("TCS"); ok {
		t.Fatal("expected ok=false for unseen symbol")
	}
}
