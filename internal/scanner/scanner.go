// Package scanner computes the opening-range breakout signal: per-symbol
// OR high/low/open/close over the first N minutes, relative volume against
// a rolling baseline, filters and ascending-RVOL ranking.
package scanner

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"orb_bot/internal/config"
	"orb_bot/internal/indicator"
	"orb_bot/internal/models"
	"orb_bot/internal/platform"
	"orb_bot/pkg/logger"
)

type Scanner struct {
	cfg  *config.Settings
	md   platform.MarketData
	inds *indicator.Store
}

func New(cfg *config.Settings, md platform.MarketData, inds *indicator.Store) *Scanner {
	return &Scanner{cfg: cfg, md: md, inds: inds}
}

type orWindow struct {
	symbol  string
	open    float64
	high    float64
	low     float64
	close   float64
	volume  float64
	rvol    float64
	hasRVOL bool
}

// Scan runs one cycle over the universe and returns candidates ordered by
// RVOL ascending, at most MaxPositions of them. Missing minute data for the
// whole window aborts the cycle; per-symbol gaps only drop that symbol.
func (s *Scanner) Scan(ctx context.Context, symbols []string, now time.Time) ([]models.SignalCandidate, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	n := s.cfg.OpeningRangeMinutes
	// request one extra bar so a ragged first row does not shift the window
	minute, err := s.md.MinuteBars(ctx, symbols, n+1)
	if err != nil {
		return nil, errors.Wrap(err, "minute history")
	}
	if len(minute) == 0 {
		return nil, errors.Wrap(platform.ErrDataUnavailable, "empty opening-range window")
	}

	windows := make([]orWindow, 0, len(minute))
	for _, sym := range symbols {
		bars := minute[sym]
		if len(bars) == 0 {
			continue
		}
		if len(bars) > n {
			bars = bars[len(bars)-n:]
		}
		w := orWindow{
			symbol: sym,
			open:   bars[0].Open,
			high:   bars[0].High,
			low:    bars[0].Low,
			close:  bars[len(bars)-1].Close,
		}
		for _, b := range bars {
			if b.High > w.high {
				w.high = b.High
			}
			if b.Low < w.low {
				w.low = b.Low
			}
			w.volume += b.Volume
		}
		windows = append(windows, w)
	}
	if len(windows) == 0 {
		return nil, errors.Wrap(platform.ErrDataUnavailable, "no symbols in opening-range window")
	}

	// RVOL against the rolling first-N-minutes volume baseline. Today's
	// volume enters the baseline after today's RVOL is computed, so it only
	// affects tomorrow.
	for i := range windows {
		sma := s.inds.VolumeSMA(windows[i].symbol)
		if sma.Ready() && sma.Value() > 0 {
			windows[i].rvol = windows[i].volume / sma.Value()
			windows[i].hasRVOL = true
		}
		sma.Update(windows[i].volume)
	}

	inPlay := windows[:0]
	for _, w := range windows {
		if w.hasRVOL && w.rvol > s.cfg.RVOLThreshold {
			inPlay = append(inPlay, w)
		}
	}
	if len(inPlay) == 0 {
		return nil, nil
	}

	// ascending stable sort; excess low-RVOL names are dropped first
	sort.SliceStable(inPlay, func(i, j int) bool { return inPlay[i].rvol < inPlay[j].rvol })
	if len(inPlay) > s.cfg.MaxPositions {
		inPlay = inPlay[len(inPlay)-s.cfg.MaxPositions:]
	}

	shortlisted := make([]string, 0, len(inPlay))
	for _, w := range inPlay {
		shortlisted = append(shortlisted, w.symbol)
	}
	priorClose := s.warmDaily(ctx, shortlisted, now)

	out := make([]models.SignalCandidate, 0, len(inPlay))
	for _, w := range inPlay {
		dir := models.Direction(0)
		switch {
		case w.close > w.open:
			dir = models.DirLong
		case w.close < w.open && !s.cfg.LongOnly:
			dir = models.DirShort
		default:
			continue
		}

		atr := s.inds.ATR(w.symbol)
		if !atr.Ready() {
			// not an error, just not warmed yet
			continue
		}
		av := atr.Value()
		if w.close <= 0 || av/w.close < s.cfg.ATRPriceFloor {
			continue
		}
		if !s.gapPasses(w.symbol, w.open, priorClose) {
			continue
		}

		c := models.SignalCandidate{
			Symbol:    w.symbol,
			Direction: dir,
			ORHigh:    w.high,
			ORLow:     w.low,
			OROpen:    w.open,
			ORClose:   w.close,
			ATR:       av,
			RVOL:      w.rvol,
		}
		if dir == models.DirLong {
			c.Entry = w.high + s.cfg.EntryBufferATR*av
			c.Stop = c.Entry - s.cfg.StopLossATRDistance*av
		} else {
			c.Entry = w.low - s.cfg.EntryBufferATR*av
			c.Stop = c.Entry + s.cfg.StopLossATRDistance*av
		}
		out = append(out, c)
	}

	logger.Info("scan: %d in play, %d candidates", len(inPlay), len(out))
	return out, nil
}

// warmDaily feeds the shortlisted symbols' ATRs from daily history and
// returns each symbol's prior-session close for the gap filter. Best-effort:
// a failed fetch leaves the filter neutral.
func (s *Scanner) warmDaily(ctx context.Context, symbols []string, now time.Time) map[string]float64 {
	lookback := 2 * s.cfg.IndicatorPeriod
	if lookback < 2 {
		lookback = 2
	}
	daily, err := s.md.DailyBars(ctx, symbols, lookback)
	if err != nil {
		logger.Error("daily history: %v", err)
		return nil
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	prior := make(map[string]float64, len(daily))
	for sym, bars := range daily {
		atr := s.inds.ATR(sym)
		for _, b := range bars {
			if !b.Time.Before(today) {
				continue // never feed a forming session into the daily ATR
			}
			atr.Update(b)
			prior[sym] = b.Close
		}
	}
	return prior
}

// gapPasses — overnight gap filter, |open - prior close| / prior close in
// percent. Evaluates to pass whenever the data needed is missing.
func (s *Scanner) gapPasses(symbol string, todayOpen float64, priorClose map[string]float64) bool {
	if s.cfg.GapMinPct <= 0 || priorClose == nil {
		return true
	}
	prev, ok := priorClose[symbol]
	if !ok || prev <= 0 {
		return true
	}
	gapPct := (todayOpen - prev) / prev * 100.0
	if gapPct < 0 {
		gapPct = -gapPct
	}
	return gapPct >= s.cfg.GapMinPct
}
