package engine

import (
	"context"
	"math"

	"orb_bot/internal/models"
	"orb_bot/pkg/logger"
)

// OnOrderEvent reacts to fill/cancel/reject notifications from the platform.
// Only equity-mode positions have resting orders; options legs are entered
// and exited at market.
func (e *Engine) OnOrderEvent(ctx context.Context, ev models.OrderEvent) {
	p := e.positions[ev.Symbol]
	if p == nil {
		return
	}

	switch {
	case p.EntryOrder != nil && p.EntryOrder.ID == ev.OrderID:
		e.onEntryEvent(ctx, p, ev)
	case p.StopOrder != nil && p.StopOrder.ID == ev.OrderID:
		e.onStopEvent(ctx, p, ev)
	case p.TPOrder != nil && p.TPOrder.ID == ev.OrderID:
		e.onTakeProfitEvent(ctx, p, ev)
	}
}

func (e *Engine) onEntryEvent(ctx context.Context, p *models.Position, ev models.OrderEvent) {
	if ev.Status == models.StatusRejected {
		// the single reduced-size retry happens at submission; an async
		// rejection after acceptance abandons the candidate outright
		logger.Info("[%s] armed entry rejected by venue, abandoned", p.Symbol)
		e.drop(p.Symbol)
		return
	}
	if ev.Status != models.StatusFilled {
		return
	}

	p.EntryOrder.Status = models.StatusFilled
	p.EntryPrice = ev.FillPrice
	p.Qty = ev.FillQty
	if p.InitialStop == 0 {
		atr := e.inds.ATR(p.Symbol)
		p.InitialStop = p.EntryPrice - p.Direction.Sign()*e.cfg.StopLossATRDistance*atr.Value()
	}
	// oneR is fixed here and never recomputed
	p.OneR = math.Abs(p.EntryPrice - p.InitialStop)
	p.MovedToBreakeven = false
	p.EntryTime = ev.Time
	p.HighWater = p.EntryPrice
	p.LowWater = p.EntryPrice
	p.CurrentStop = p.InitialStop
	p.State = models.StateFilled

	stop, err := e.exec.PlaceStopOrder(ctx, p.Symbol, -p.Qty, p.CurrentStop, "ATR Stop")
	if err != nil {
		logger.Error("[%s] protective stop not placed: %v", p.Symbol, err)
		e.n.Sendf("❗️ [%s] protective stop rejected: %v", p.Symbol, err)
	} else {
		stop.Kind = models.KindProtectiveStop
		p.StopOrder = stop
	}

	// 50% take-profit at +1R, only when there is something to split
	if h := half(p.Qty); h >= 1 {
		tpQty := -h * sign(p.Qty)
		tpPrice := p.EntryPrice + p.Direction.Sign()*p.OneR
		tp, err := e.exec.PlaceLimitOrder(ctx, p.Symbol, tpQty, tpPrice, "TakeProfit_1R")
		if err != nil {
			logger.Error("[%s] take-profit not placed: %v", p.Symbol, err)
		} else {
			tp.Kind = models.KindTakeProfit
			p.TPOrder = tp
		}
	}

	e.n.Sendf("✅ [%s] FILLED %+.0f @ %.4f | stop=%.4f 1R=%.4f",
		p.Symbol, p.Qty, p.EntryPrice, p.CurrentStop, p.OneR)
}

func (e *Engine) onStopEvent(ctx context.Context, p *models.Position, ev models.OrderEvent) {
	if ev.Status != models.StatusFilled {
		return
	}
	// stopped out: cancel a still-working take-profit and clear everything
	if p.TPOrder != nil && p.TPOrder.Status == models.StatusWorking {
		if err := e.exec.CancelOrder(ctx, p.TPOrder.ID); err != nil {
			logger.Error("[%s] cancel take-profit: %v", p.Symbol, err)
		}
	}
	e.n.Sendf("🛑 [%s] stopped out %+.0f @ %.4f", p.Symbol, ev.FillQty, ev.FillPrice)
	e.drop(p.Symbol)
}

func (e *Engine) onTakeProfitEvent(ctx context.Context, p *models.Position, ev models.OrderEvent) {
	if ev.Status != models.StatusFilled {
		return
	}
	p.TPOrder.Status = models.StatusFilled
	p.Qty += ev.FillQty

	// the venue book is authoritative for the remainder
	if held, err := e.exec.QuantityHeld(ctx, p.Symbol); err == nil && held != 0 && held != p.Qty {
		logger.Info("[%s] venue holds %+.0f after partial exit, local %+.0f, adopting venue",
			p.Symbol, held, p.Qty)
		p.Qty = held
	}

	if p.StopOrder == nil {
		// stop placement failed at entry; without a stop handle there is
		// nothing to migrate, and the position stays time-stop eligible
		logger.Error("[%s] partial exit with no protective stop, breakeven not set", p.Symbol)
		e.n.Sendf("❗️ [%s] partial exit but no protective stop is working", p.Symbol)
		p.State = models.StatePartialExit
		return
	}

	// stop quantity and level move together; a half-updated stop would leave
	// the position unprotected at the wrong size
	if p.Qty != 0 {
		if err := e.exec.UpdateOrderQty(ctx, p.StopOrder.ID, -p.Qty); err != nil {
			logger.Error("[%s] resize stop: %v", p.Symbol, err)
		}
		if err := e.exec.UpdateStopPrice(ctx, p.StopOrder.ID, p.EntryPrice); err != nil {
			logger.Error("[%s] move stop to entry: %v", p.Symbol, err)
		}
		p.StopOrder.Qty = -p.Qty
		p.StopOrder.Price = p.EntryPrice
	}
	p.CurrentStop = p.EntryPrice
	p.MovedToBreakeven = true
	p.LastStopUpdate = ev.Time
	p.State = models.StatePartialExit

	e.n.Sendf("💰 [%s] partial exit %+.0f @ %.4f, stop at breakeven %.4f",
		p.Symbol, ev.FillQty, ev.FillPrice, p.EntryPrice)
}
