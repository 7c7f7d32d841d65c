package engine

import (
	"context"
	"math"

	"orb_bot/internal/models"
	"orb_bot/pkg/logger"
)

// OnBar is the per-update entry point: breakeven migration, ATR trailing and
// (for options) confirmation and the synthetic stop, all computed from the
// underlying's bar.
func (e *Engine) OnBar(ctx context.Context, bar models.Bar) {
	if e.mode != models.ModeEquity {
		e.onOptionsBar(ctx, bar)
		return
	}
	p := e.positions[bar.Symbol]
	if p == nil || p.State == models.StateArmed {
		return
	}
	e.manageEquity(ctx, p, bar)
}

func (e *Engine) manageEquity(ctx context.Context, p *models.Position, bar models.Bar) {
	if p.Qty == 0 || p.OneR == 0 || p.StopOrder == nil {
		return
	}
	price := bar.Close
	e.updateWaterMarks(p, price)

	move := p.Direction.Sign() * (price - p.EntryPrice)

	// 1) breakeven once the favorable move reaches the trigger
	if !p.MovedToBreakeven && move >= e.cfg.BreakevenTriggerR*p.OneR {
		if e.shouldMoveStop(ctx, p, p.EntryPrice, bar) {
			if err := e.exec.UpdateStopPrice(ctx, p.StopOrder.ID, p.EntryPrice); err != nil {
				logger.Error("[%s] breakeven move: %v", p.Symbol, err)
				return
			}
			p.StopOrder.Price = p.EntryPrice
			p.CurrentStop = p.EntryPrice
			p.MovedToBreakeven = true
			p.LastStopUpdate = bar.Time
			e.n.Sendf("🛡 [%s] stop moved to breakeven %.4f", p.Symbol, p.EntryPrice)
		}
	}

	// 2) ATR trailing only after breakeven
	if p.MovedToBreakeven {
		cand, ok := e.trailCandidate(p)
		if ok && e.shouldMoveStop(ctx, p, cand, bar) {
			if err := e.exec.UpdateStopPrice(ctx, p.StopOrder.ID, cand); err != nil {
				logger.Error("[%s] trail move: %v", p.Symbol, err)
				return
			}
			p.StopOrder.Price = cand
			p.CurrentStop = cand
			p.LastStopUpdate = bar.Time
			logger.Info("[%s] stop trailed to %.4f", p.Symbol, cand)
		}
	}
}

func (e *Engine) updateWaterMarks(p *models.Position, price float64) {
	if p.HighWater == 0 {
		p.HighWater = price
	}
	if p.LowWater == 0 {
		p.LowWater = price
	}
	if p.Direction == models.DirLong {
		p.HighWater = math.Max(p.HighWater, price)
	} else {
		p.LowWater = math.Min(p.LowWater, price)
	}
}

// trailCandidate — the post-breakeven stop level implied by the water mark,
// never below entry for longs, never above for shorts. ok=false when the
// level would not improve the current stop.
func (e *Engine) trailCandidate(p *models.Position) (float64, bool) {
	atr := e.inds.ATR(p.Symbol)
	if !atr.Ready() {
		return 0, false
	}
	av := atr.Value()
	if p.Direction == models.DirLong {
		cand := math.Max(p.EntryPrice, p.HighWater-e.cfg.TrailATRMult*av)
		return cand, cand > p.CurrentStop
	}
	cand := math.Min(p.EntryPrice, p.LowWater+e.cfg.TrailATRMult*av)
	return cand, cand < p.CurrentStop
}

// shouldMoveStop throttles stop amendments: at most one per bar timestamp,
// and only when the displacement clears max(minTicks·tick, threshold·ATR).
func (e *Engine) shouldMoveStop(ctx context.Context, p *models.Position, newStop float64, bar models.Bar) bool {
	if p.CurrentStop == 0 {
		return true
	}
	if !p.LastStopUpdate.IsZero() && p.LastStopUpdate.Equal(bar.Time) {
		return false
	}
	atr := e.inds.ATR(p.Symbol)
	if !atr.Ready() || atr.Value() <= 0 {
		return false
	}
	tick := e.tick(ctx, p.Symbol)
	minMove := math.Max(float64(e.cfg.TrailMinTicks)*tick, e.cfg.TrailUpdateThresholdATR*atr.Value())
	return math.Abs(newStop-p.CurrentStop) >= minMove
}
