package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"zerodha-trader/internal/models"
	"zerodha-trader/internal/performance"
	"zerodha-trader/internal/resilience"
)

const (
	flowsTTL        = 15 * time.Minute
	fundamentalsTTL = 6 * time.Hour
	eventsTTL       = 1 * time.Hour
)

// Client is the production Port implementation: flows, fundamentals, and
// events are pull-based HTTP fetches behind a cache-aside BytesCache, a
// resilience.CircuitBreaker, and a performance.RateLimiter; news is served
// from the NewsFeed's rolling digest. Every capability group swallows its
// own failures into ok=false rather than ever returning an error, per
// §4.2's non-fatal-empty-result requirement.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	cache   BytesCache
	limiter *performance.RateLimiter
	breaker *resilience.CircuitBreaker

	news *NewsFeed

	log zerolog.Logger
}

// ClientConfig configures Client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Cache      BytesCache
	News       *NewsFeed
	HTTPClient *http.Client
	// RequestsPerSecond bounds outbound fetch rate; zero uses a
	// conservative default.
	RequestsPerSecond float64
}

// NewClient builds a Client. A nil Cache falls back to an in-process
// TTLCache; a nil News means News always reports ok=false until one is
// attached with SetNewsFeed.
func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Cache == nil {
		cfg.Cache = NewTTLCache()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		cache:      cfg.Cache,
		limiter:    performance.NewRateLimiter(rps, int(rps*2)),
		breaker:    resilience.NewCircuitBreaker("marketdata", resilience.DefaultCircuitBreakerConfig()),
		news:       cfg.News,
		log:        log.With().Str("component", "marketdata.client").Logger(),
	}
}

// SetNewsFeed attaches (or replaces) the NewsFeed backing News.
func (c *Client) SetNewsFeed(nf *NewsFeed) {
	c.news = nf
}

// Flows implements Port.
func (c *Client) Flows(ctx context.Context, symbol string, lookback time.Duration) ([]FlowRecord, bool) {
	var out []FlowRecord
	key := fmt.Sprintf("flows:%s:%s", symbol, lookback)
	if ok := c.fetchCached(ctx, key, flowsTTL, fmt.Sprintf("/flows/%s?lookback=%s", symbol, lookback), &out); !ok {
		return nil, false
	}
	return out, true
}

// Fundamentals implements Port.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (*Fundamentals, bool) {
	var out Fundamentals
	key := fmt.Sprintf("fundamentals:%s", symbol)
	if ok := c.fetchCached(ctx, key, fundamentalsTTL, fmt.Sprintf("/fundamentals/%s", symbol), &out); !ok {
		return nil, false
	}
	return &out, true
}

// Events implements Port.
func (c *Client) Events(ctx context.Context, symbol string, horizon time.Duration) ([]models.CorporateEvent, bool) {
	var out []models.CorporateEvent
	key := fmt.Sprintf("events:%s:%s", symbol, horizon)
	if ok := c.fetchCached(ctx, key, eventsTTL, fmt.Sprintf("/events/%s?horizon=%s", symbol, horizon), &out); !ok {
		return nil, false
	}
	return out, true
}

// News implements Port by delegating to the attached NewsFeed.
func (c *Client) News(ctx context.Context, symbol string) (*models.NewsDigest, bool) {
	if c.news == nil {
		return nil, false
	}
	return c.news.Digest(symbol)
}

// fetchCached serves path from cache when present and unexpired; on a
// miss it rate-limits and circuit-breaks an HTTP GET, caches the raw body,
// and unmarshals into out. Any failure along the way — rate-limit denial,
// breaker-open, HTTP error, bad JSON — reports ok=false and logs at debug
// level rather than propagating an error, since an empty market-data
// result is valid domain output (§4.2).
func (c *Client) fetchCached(ctx context.Context, cacheKey string, ttl time.Duration, path string, out interface{}) bool {
	if raw, hit, err := c.cache.GetBytes(cacheKey); err == nil && hit {
		if err := json.Unmarshal(raw, out); err == nil {
			return true
		}
	}

	if !c.limiter.Allow() {
		c.log.Debug().Str("path", path).Msg("marketdata fetch rate-limited, returning empty")
		return false
	}

	raw, err := resilience.ExecuteWithResult(c.breaker, ctx, func() ([]byte, error) {
		return c.doGet(ctx, path)
	})
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("marketdata fetch failed, returning empty")
		return false
	}

	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("marketdata response unparseable, returning empty")
		return false
	}

	_ = c.cache.SetBytes(cacheKey, raw, ttl)
	return true
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marketdata upstream status %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}
