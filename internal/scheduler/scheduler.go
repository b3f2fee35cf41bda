package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	domainerrors "zerodha-trader/internal/errors"
)

// Trigger is a wall-clock time-of-day a workflow fires at, venue-local.
type Trigger struct {
	WorkflowName string
	Hour         int
	Minute       int
}

// RunFunc executes one workflow run. The Scheduler never inspects its
// return value beyond logging it; retry/backoff policy belongs to the
// workflow runtime, not the scheduler.
type RunFunc func(ctx context.Context, workflowName string, firedAt time.Time) error

// Scheduler fires RunFunc at configured Triggers, skipping non-trading
// days, never overlapping a run of the same workflow, and never replaying
// a trigger missed while the process was down (§4.7 — no catch-up/replay).
type Scheduler struct {
	calendar *MarketCalendar
	run      RunFunc
	log      zerolog.Logger

	mu       sync.Mutex
	running  map[string]bool
	lastFire map[string]string // workflow -> "YYYY-MM-DD HH:MM" of last fire, dedupes within a minute tick

	triggerTotal  *prometheus.CounterVec
	skipTotal     *prometheus.CounterVec
	overlapTotal  *prometheus.CounterVec
}

// New builds a Scheduler. Run polls on a fixed one-second tick, well inside
// the one-minute trigger grid.
func New(calendar *MarketCalendar, run RunFunc, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		calendar: calendar,
		run:      run,
		log:      log,
		running:  make(map[string]bool),
		lastFire: make(map[string]string),
		triggerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_scheduler_triggers_total",
			Help: "Workflow triggers fired, by workflow.",
		}, []string{"workflow"}),
		skipTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_scheduler_skips_total",
			Help: "Triggers skipped due to non-trading day, by workflow.",
		}, []string{"workflow"}),
		overlapTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_scheduler_overlaps_total",
			Help: "Triggers skipped because the prior run of the same workflow was still in flight.",
		}, []string{"workflow"}),
	}
}

// Collectors exposes this scheduler's Prometheus metrics for registration.
func (s *Scheduler) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.triggerTotal, s.skipTotal, s.overlapTotal}
}

// Run polls once a second until ctx is cancelled, firing any Trigger whose
// minute matches now and has not already fired in that minute.
func (s *Scheduler) Run(ctx context.Context, triggers []Trigger) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.tick(ctx, triggers, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, triggers []Trigger, now time.Time) {
	local := now.In(s.calendar.Location())
	stamp := local.Format("2006-01-02 15:04")
	for _, t := range triggers {
		if local.Hour() != t.Hour || local.Minute() != t.Minute {
			continue
		}
		s.mu.Lock()
		if s.lastFire[t.WorkflowName] == stamp {
			s.mu.Unlock()
			continue
		}
		s.lastFire[t.WorkflowName] = stamp
		s.mu.Unlock()

		if !s.calendar.IsTradingDay(local) {
			s.skipTotal.WithLabelValues(t.WorkflowName).Inc()
			s.log.Info().Str("workflow", t.WorkflowName).Msg("scheduler: skipping trigger, non-trading day")
			continue
		}

		s.mu.Lock()
		if s.running[t.WorkflowName] {
			s.mu.Unlock()
			s.overlapTotal.WithLabelValues(t.WorkflowName).Inc()
			s.log.Warn().Str("workflow", t.WorkflowName).Msg("scheduler: skipping trigger, prior run still in flight")
			continue
		}
		s.running[t.WorkflowName] = true
		s.mu.Unlock()

		s.triggerTotal.WithLabelValues(t.WorkflowName).Inc()
		go s.fire(ctx, t.WorkflowName, local)
	}
}

func (s *Scheduler) fire(ctx context.Context, workflowName string, firedAt time.Time) {
	defer func() {
		s.mu.Lock()
		s.running[workflowName] = false
		s.mu.Unlock()
	}()
	if err := s.run(ctx, workflowName, firedAt); err != nil {
		s.log.Error().Err(domainerrors.Wrapf(err, "scheduled run of %s", workflowName)).
			Str("workflow", workflowName).Msg("scheduler: run failed")
	}
}

// IsRunning reports whether a run of workflowName is currently in flight.
func (s *Scheduler) IsRunning(workflowName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[workflowName]
}
