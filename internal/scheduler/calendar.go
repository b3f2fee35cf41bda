// Package scheduler triggers workflows on a wall-clock schedule, gated by a
// trading calendar, with non-overlap per workflow and no catch-up/replay
// (spec §4.7).
package scheduler

import "time"

// MarketCalendar answers session-boundary questions for one venue: is a
// given instant a trading day, and which named window (open, close-tighten,
// flatten, closed) does it fall in. Generalized from the teacher's
// `trading.SessionManager`, which only answered "can I place an order now".
type MarketCalendar struct {
	location *time.Location
	holidays map[string]bool
	windows  []Window
}

// Window is a named, ordered time-of-day range used both by the Scheduler
// (trigger gating) and the Position Monitor (close-tighten/flatten timing).
type Window struct {
	Name        string
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// Standard windows for the NSE/BSE trading day in IST.
var DefaultWindows = []Window{
	{Name: "pre_open", StartHour: 9, StartMinute: 0, EndHour: 9, EndMinute: 15},
	{Name: "normal", StartHour: 9, StartMinute: 15, EndHour: 15, EndMinute: 15},
	{Name: "close_tighten", StartHour: 15, StartMinute: 15, EndHour: 15, EndMinute: 20},
	{Name: "flatten", StartHour: 15, StartMinute: 20, EndHour: 15, EndMinute: 30},
}

// NewMarketCalendar builds a calendar for the given IANA timezone name
// (default "Asia/Kolkata" per SPEC_FULL.md §13) and holiday set.
func NewMarketCalendar(timezone string, holidays []time.Time) *MarketCalendar {
	if timezone == "" {
		timezone = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	c := &MarketCalendar{location: loc, holidays: make(map[string]bool), windows: DefaultWindows}
	for _, h := range holidays {
		c.AddHoliday(h)
	}
	return c
}

// AddHoliday marks a calendar date (venue-local) as a non-trading day.
func (c *MarketCalendar) AddHoliday(date time.Time) {
	c.holidays[date.In(c.location).Format("2006-01-02")] = true
}

// IsTradingDay reports whether t falls on a weekday that is not a holiday.
func (c *MarketCalendar) IsTradingDay(t time.Time) bool {
	t = t.In(c.location)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !c.holidays[t.Format("2006-01-02")]
}

// WindowAt returns the name of the window containing t, or "closed" if t
// falls outside every configured window or on a non-trading day.
func (c *MarketCalendar) WindowAt(t time.Time) string {
	if !c.IsTradingDay(t) {
		return "closed"
	}
	t = t.In(c.location)
	minutes := t.Hour()*60 + t.Minute()
	for _, w := range c.windows {
		start := w.StartHour*60 + w.StartMinute
		end := w.EndHour*60 + w.EndMinute
		if minutes >= start && minutes < end {
			return w.Name
		}
	}
	return "closed"
}

// InWindow reports whether t falls within the named window.
func (c *MarketCalendar) InWindow(t time.Time, name string) bool {
	return c.WindowAt(t) == name
}

// IsCloseTighten reports whether t is in the position-monitor's
// stop-tightening window (§4.9's close_tighten_time).
func (c *MarketCalendar) IsCloseTighten(t time.Time) bool {
	return c.InWindow(t, "close_tighten")
}

// IsFlatten reports whether t is in the forced-flatten window (§4.9's
// flatten_time).
func (c *MarketCalendar) IsFlatten(t time.Time) bool {
	return c.InWindow(t, "flatten")
}

// Location returns the calendar's configured timezone.
func (c *MarketCalendar) Location() *time.Location { return c.location }

// NextTradingDay returns the next trading day strictly after t.
func (c *MarketCalendar) NextTradingDay(t time.Time) time.Time {
	next := t.In(c.location).AddDate(0, 0, 1)
	for !c.IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
