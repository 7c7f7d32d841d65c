package engine

import (
	"context"
	"math"
	"time"

	"orb_bot/internal/helper"
	"orb_bot/internal/models"
	"orb_bot/pkg/logger"
)

// HandleCandidates consumes one scan cycle's ranked output. Equity mode
// places resting stop entries immediately; options mode arms a pending
// confirmation instead. sessionOpen anchors the options confirmation delay.
func (e *Engine) HandleCandidates(ctx context.Context, cands []models.SignalCandidate, sessionOpen time.Time) {
	total := len(cands)
	for i, c := range cands {
		if _, open := e.positions[c.Symbol]; open {
			logger.Info("[%s] already tracked, candidate skipped", c.Symbol)
			continue
		}
		if e.mode == models.ModeEquity {
			e.armEquityEntry(ctx, c, i+1, total)
		} else {
			e.armPendingConfirmation(c, sessionOpen)
		}
	}
}

func (e *Engine) armEquityEntry(ctx context.Context, c models.SignalCandidate, index, total int) {
	qty, err := e.sizer.EquityQty(ctx, c, index, total)
	if err != nil {
		logger.Error("[%s] sizing: %v", c.Symbol, err)
		return
	}
	if qty == 0 {
		// all caps drove the size to zero; not an error
		return
	}

	// the resting trigger must sit on a valid tick, rounded away from the
	// open so the breakout level is never undercut
	tick := e.tick(ctx, c.Symbol)
	entryPx := helper.RoundUpToTick(c.Entry, tick)
	if c.Direction == models.DirShort {
		entryPx = helper.RoundDownToTick(c.Entry, tick)
	}

	handle, err := e.exec.PlaceStopOrder(ctx, c.Symbol, qty, entryPx, "Entry")
	if err != nil {
		// exactly one retry at a reduced size
		smaller := e.sizer.RetryQty(qty)
		if smaller == 0 {
			logger.Info("[%s] entry rejected, retry size is zero, abandoned", c.Symbol)
			return
		}
		handle, err = e.exec.PlaceStopOrder(ctx, c.Symbol, smaller, entryPx, "Entry_Retry50")
		if err != nil {
			logger.Error("[%s] entry retry rejected: %v", c.Symbol, err)
			return
		}
		qty = smaller
	}
	handle.Kind = models.KindEntry

	e.positions[c.Symbol] = &models.Position{
		Symbol:      c.Symbol,
		Mode:        models.ModeEquity,
		Direction:   c.Direction,
		State:       models.StateArmed,
		InitialStop: c.Stop,
		EntryOrder:  handle,
	}

	e.n.Sendf("📌 [%s] entry armed %+.0f @ %.4f | stop=%.4f rvol=%.2f",
		c.Symbol, qty, entryPx, c.Stop, c.RVOL)
}

func (e *Engine) armPendingConfirmation(c models.SignalCandidate, sessionOpen time.Time) {
	e.pendings[c.Symbol] = &models.PendingConfirmation{
		Symbol:     c.Symbol,
		Direction:  c.Direction,
		EntryLevel: c.Entry,
		StopLevel:  c.Stop,
		ReadyTime:  sessionOpen.Add(e.cfg.ConfirmDelay()),
	}
	logger.Info("[%s] options entry pending, ready at %s, entry=%.4f stop=%.4f",
		c.Symbol, e.pendings[c.Symbol].ReadyTime.Format("15:04"), c.Entry, c.Stop)
}

func sign(q float64) float64 {
	if q < 0 {
		return -1
	}
	return 1
}

func half(qty float64) float64 {
	return math.Floor(math.Abs(qty) / 2)
}
