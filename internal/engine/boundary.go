package engine

import (
	"context"
	"time"

	"orb_bot/internal/models"
	"orb_bot/pkg/logger"
)

// TimeStop flattens every position opened today that has not reached
// breakeven. Positions already at breakeven ride on; armed entries that
// never filled are left to their resting orders.
func (e *Engine) TimeStop(ctx context.Context, now time.Time) {
	for sym, p := range e.positions {
		if p.State == models.StateArmed {
			continue
		}
		if p.MovedToBreakeven {
			continue
		}
		if !sameDay(p.EntryTime, now) {
			continue
		}
		e.n.Sendf("🕒 [%s] time stop, flattening before breakeven", sym)
		e.flatten(ctx, p, "TimeStop")
		e.drop(sym)
	}
}

// EndOfDay unconditionally flattens everything, clears all lifecycle state
// and releases the tracked-symbol subscriptions.
func (e *Engine) EndOfDay(ctx context.Context) {
	tracked := e.TrackedSymbols()
	for sym, p := range e.positions {
		e.flatten(ctx, p, "EOD")
		delete(e.positions, sym)
	}
	for sym := range e.pendings {
		delete(e.pendings, sym)
	}
	for _, sym := range tracked {
		e.exec.Release(sym)
	}
	if len(tracked) > 0 {
		e.n.Sendf("🌙 EOD flatten, %d symbols released", len(tracked))
	}
}

// flatten closes a position at market and cancels whatever rests for it.
func (e *Engine) flatten(ctx context.Context, p *models.Position, tag string) {
	if p.Mode == models.ModeEquity {
		e.cancelWorking(ctx, p.EntryOrder)
		e.cancelWorking(ctx, p.TPOrder)
		e.cancelWorking(ctx, p.StopOrder)
		if p.State != models.StateArmed {
			if err := e.exec.Liquidate(ctx, p.Symbol); err != nil {
				logger.Error("[%s] liquidate: %v", p.Symbol, err)
			}
		}
		return
	}
	e.closeOptionLegs(ctx, p, tag)
}

func (e *Engine) cancelWorking(ctx context.Context, h *models.OrderHandle) {
	if h == nil || h.Status != models.StatusWorking {
		return
	}
	if err := e.exec.CancelOrder(ctx, h.ID); err != nil {
		logger.Error("[%s] cancel %s: %v", h.Symbol, h.ID, err)
	}
	h.Status = models.StatusCancelled
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
