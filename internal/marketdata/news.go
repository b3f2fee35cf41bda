package marketdata

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"

	"zerodha-trader/internal/models"
)

// NewsFeed consumes a Kafka news topic and maintains a rolling,
// per-symbol NewsDigest in memory, merged additively as events arrive
// (models.NewsDigest.Merge — a later digest never deletes an earlier
// fact, per §3/§4.2). Grounded on the Finpull retrieval pack's
// KafkaTicksHandler consumer pattern (topic + JSON Handle), reimplemented
// directly against github.com/segmentio/kafka-go since the pack's own
// pkg/kafka wrapper lives in a separate, unimportable module.
type NewsFeed struct {
	reader *kafka.Reader
	log    zerolog.Logger

	mu      sync.RWMutex
	digests map[string]*models.NewsDigest
}

// NewsFeedConfig configures NewsFeed.
type NewsFeedConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// wireNewsEvent is the on-wire shape of a single news item published to
// the configured Kafka topic.
type wireNewsEvent struct {
	At        time.Time `json:"at"`
	Headline  string    `json:"headline"`
	Symbols   []string  `json:"symbols"`
	Source    string    `json:"source"`
	Sentiment string    `json:"sentiment"`
}

// NewNewsFeed creates a NewsFeed. Run must be called to start consuming.
func NewNewsFeed(cfg NewsFeedConfig, log zerolog.Logger) *NewsFeed {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &NewsFeed{
		reader:  reader,
		log:     log.With().Str("component", "marketdata.newsfeed").Logger(),
		digests: make(map[string]*models.NewsDigest),
	}
}

// Run consumes messages until ctx is cancelled. A malformed message is
// logged and skipped — the news stream is a best-effort capability group,
// not a source of Run-failing errors.
func (f *NewsFeed) Run(ctx context.Context) error {
	defer f.reader.Close()
	for {
		m, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.log.Warn().Err(err).Msg("news feed read failed")
			continue
		}
		f.handle(m.Value)
	}
}

func (f *NewsFeed) handle(raw []byte) {
	var w wireNewsEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		f.log.Debug().Err(err).Msg("dropping unparseable news message")
		return
	}

	event := models.NewsEvent{
		At:       w.At,
		Headline: w.Headline,
		Symbols:  w.Symbols,
		Source:   w.Source,
	}
	digest := &models.NewsDigest{
		Produced:        models.Produced{At: time.Now()},
		ProducedAt:      time.Now(),
		KeyEvents:       []models.NewsEvent{event},
		Sentiment:       sentimentFromWire(w.Sentiment),
		AffectedSymbols: w.Symbols,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sym := range w.Symbols {
		existing := f.digests[sym]
		f.digests[sym] = digest.Merge(existing)
	}
}

func sentimentFromWire(s string) models.Sentiment {
	switch s {
	case string(models.SentimentRiskOn):
		return models.SentimentRiskOn
	case string(models.SentimentRiskOff):
		return models.SentimentRiskOff
	default:
		return models.SentimentNeutral
	}
}

// Digest returns the current rolling digest for symbol, or ok=false if no
// news has been seen for it yet.
func (f *NewsFeed) Digest(symbol string) (*models.NewsDigest, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	d, ok := f.digests[symbol]
	return d, ok
}
