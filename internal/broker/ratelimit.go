package broker

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"zerodha-trader/internal/models"
)

// RateLimitConfig carries the sliding-window budgets §4.1 requires:
// per-second, per-minute, and per-day caps, each with a safety margin
// below the broker's published ceiling. Grounded on
// RajChodisetti-Trading-app's adapters, which build a single
// rate.NewLimiter(rate.Limit(perMinute/60), burst) per upstream; here
// three limiters compose so none of the three windows can be exceeded.
type RateLimitConfig struct {
	PerSecond    int
	PerMinute    int
	PerDay       int
	SafetyMargin float64 // e.g. 0.9 keeps 10% headroom under the nominal cap
}

// RateLimitedBroker wraps a Broker and throttles PlaceOrder/ModifyOrder/
// CancelOrder calls (the operations Zerodha actually rate-limits) against
// three sliding windows.
type RateLimitedBroker struct {
	Broker
	perSecond *rate.Limiter
	perMinute *rate.Limiter
	perDay    *rate.Limiter
}

// NewRateLimitedBroker wraps inner with the three configured limiters.
func NewRateLimitedBroker(inner Broker, cfg RateLimitConfig) *RateLimitedBroker {
	margin := cfg.SafetyMargin
	if margin <= 0 || margin > 1 {
		margin = 0.9
	}
	return &RateLimitedBroker{
		Broker:    inner,
		perSecond: rate.NewLimiter(rate.Limit(float64(cfg.PerSecond)*margin), cfg.PerSecond),
		perMinute: rate.NewLimiter(rate.Limit(float64(cfg.PerMinute)*margin/60), cfg.PerMinute),
		perDay:    rate.NewLimiter(rate.Limit(float64(cfg.PerDay)*margin/86400), cfg.PerDay),
	}
}

func (r *RateLimitedBroker) wait(ctx context.Context, op string) error {
	for _, l := range []*rate.Limiter{r.perSecond, r.perMinute, r.perDay} {
		if !l.Allow() {
			return NewFailure(FailureRateLimit, op, "", fmt.Errorf("sliding-window rate limit exceeded"))
		}
	}
	return nil
}

// PlaceOrder enforces the sliding-window budget before delegating.
func (r *RateLimitedBroker) PlaceOrder(ctx context.Context, order *models.Order, clientTag string) (*OrderResult, error) {
	if err := r.wait(ctx, "place_order"); err != nil {
		return nil, err
	}
	return r.Broker.PlaceOrder(ctx, order, clientTag)
}

// ModifyOrder enforces the sliding-window budget before delegating.
func (r *RateLimitedBroker) ModifyOrder(ctx context.Context, orderID string, order *models.Order) error {
	if err := r.wait(ctx, "modify_order"); err != nil {
		return err
	}
	return r.Broker.ModifyOrder(ctx, orderID, order)
}

// CancelOrder enforces the sliding-window budget before delegating.
func (r *RateLimitedBroker) CancelOrder(ctx context.Context, orderID string) error {
	if err := r.wait(ctx, "cancel_order"); err != nil {
		return err
	}
	return r.Broker.CancelOrder(ctx, orderID)
}

// WaitPlaceOrder blocks (respecting ctx) until a PlaceOrder slot is
// available, for callers that prefer to wait rather than fail fast.
func (r *RateLimitedBroker) WaitPlaceOrder(ctx context.Context) error {
	if err := r.perDay.Wait(ctx); err != nil {
		return err
	}
	if err := r.perMinute.Wait(ctx); err != nil {
		return err
	}
	return r.perSecond.Wait(ctx)
}
