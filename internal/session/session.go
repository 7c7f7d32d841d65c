// Package session turns the market calendar into the day's phase schedule:
// one scan after the opening range completes, an intraday time stop, and an
// end-of-day flatten shortly before the close.
package session

import (
	"context"
	"time"

	"orb_bot/internal/config"
	"orb_bot/internal/helper"
	"orb_bot/internal/platform"
)

type PhaseKind int

const (
	PhaseScan PhaseKind = iota
	PhaseTimeStop
	PhaseEndOfDay
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseScan:
		return "scan"
	case PhaseTimeStop:
		return "time_stop"
	case PhaseEndOfDay:
		return "end_of_day"
	}
	return "unknown"
}

// Phase is one scheduled event. SessionOpen carries the day's open so the
// scan handler can anchor confirmation timers without re-asking the calendar.
type Phase struct {
	Kind        PhaseKind
	At          time.Time
	SessionOpen time.Time
}

type Controller struct {
	cfg *config.Settings
	cal platform.Calendar

	// Now is swappable for tests.
	Now func() time.Time
}

func NewController(cfg *config.Settings, cal platform.Calendar) *Controller {
	return &Controller{cfg: cfg, cal: cal, Now: time.Now}
}

// DayPhases computes the three phases for the session containing or
// following `after`. The time stop is clamped to the session if the
// configured wall-clock lands outside it.
func (c *Controller) DayPhases(after time.Time) []Phase {
	open := c.cal.NextMarketOpen(after)
	close := c.cal.NextMarketClose(open)

	scanAt := open.Add(time.Duration(c.cfg.OpeningRangeMinutes) * time.Minute)

	hh, mm := helper.ParseHHMM(c.cfg.TimeStopHHMM, 10, 45)
	stopAt := time.Date(open.Year(), open.Month(), open.Day(), hh, mm, 0, 0, open.Location())
	if stopAt.Before(scanAt) {
		stopAt = scanAt
	}
	eodAt := close.Add(-time.Minute)
	if stopAt.After(eodAt) {
		stopAt = eodAt
	}

	return []Phase{
		{Kind: PhaseScan, At: scanAt, SessionOpen: open},
		{Kind: PhaseTimeStop, At: stopAt, SessionOpen: open},
		{Kind: PhaseEndOfDay, At: eodAt, SessionOpen: open},
	}
}

// Events emits phases in order, sleeping until each fires, rolling to the
// next session after end of day. The channel closes when ctx ends.
func (c *Controller) Events(ctx context.Context) <-chan Phase {
	out := make(chan Phase)
	go func() {
		defer close(out)
		after := c.Now()
		for {
			phases := c.DayPhases(after)
			for _, ph := range phases {
				if !c.sleepUntil(ctx, ph.At) {
					return
				}
				select {
				case out <- ph:
				case <-ctx.Done():
					return
				}
			}
			after = phases[len(phases)-1].At.Add(time.Minute)
		}
	}()
	return out
}

func (c *Controller) sleepUntil(ctx context.Context, t time.Time) bool {
	d := t.Sub(c.Now())
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
