// Package paper assembles the trading platform for paper runs: simulated
// execution and account state, a wall-clock calendar, and optionally a live
// websocket bar feed that also drives the simulated marks.
package paper

import (
	"context"
	"time"

	"orb_bot/internal/config"
	"orb_bot/internal/models"
	"orb_bot/internal/platform"
	"orb_bot/internal/platform/sim"
	"orb_bot/internal/platform/stream"
)

type Venue struct {
	*sim.Platform
	cal  *platform.WallCalendar
	feed *stream.Client
}

func New(cfg *config.Settings) (platform.Platform, error) {
	cal, err := platform.NewWallCalendar(cfg.SessionOpenHHMM, cfg.SessionCloseHHMM, cfg.SessionTimezone)
	if err != nil {
		return nil, err
	}
	s := sim.New()
	s.UniverseSymbols = cfg.Universe
	v := &Venue{Platform: s, cal: cal}
	if cfg.Stream.URL != "" {
		v.feed = stream.NewClient(cfg.Stream.URL, cfg.Stream.Timeframe)
	}
	return v, nil
}

func (v *Venue) NextMarketOpen(after time.Time) time.Time  { return v.cal.NextMarketOpen(after) }
func (v *Venue) NextMarketClose(after time.Time) time.Time { return v.cal.NextMarketClose(after) }

// StreamBars prefers the live feed when one is configured. Live bars move
// the simulated marks before being forwarded, so resting paper orders fill
// off real prices.
func (v *Venue) StreamBars(ctx context.Context, symbols []string) (<-chan models.Bar, error) {
	if v.feed == nil {
		return v.Platform.StreamBars(ctx, symbols)
	}
	in, err := v.feed.StreamBars(ctx, symbols)
	if err != nil {
		return nil, err
	}
	out := make(chan models.Bar)
	go func() {
		defer close(out)
		for b := range in {
			v.Platform.SetPrice(b.Symbol, b.Close, b.Time)
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
