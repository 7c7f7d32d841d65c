package engine

import (
	"context"
	"math"

	"orb_bot/internal/helper"
	"orb_bot/internal/models"
	"orb_bot/pkg/logger"
)

// onOptionsBar runs the options-mode per-bar work for one underlying:
// confirmation counting, entry, and exit management against the synthetic
// stop.
func (e *Engine) onOptionsBar(ctx context.Context, bar models.Bar) {
	if pend := e.pendings[bar.Symbol]; pend != nil {
		e.confirmPending(ctx, pend, bar)
	}
	if p := e.positions[bar.Symbol]; p != nil {
		e.manageUnderlyingExit(ctx, p, bar)
	}
}

// confirmPending counts consecutive closes beyond the entry level once the
// post-open delay has passed; any non-confirming bar resets the counter.
func (e *Engine) confirmPending(ctx context.Context, pend *models.PendingConfirmation, bar models.Bar) {
	if bar.Time.Before(pend.ReadyTime) {
		return
	}
	px := bar.Close
	passed := px >= pend.EntryLevel
	if pend.Direction == models.DirShort {
		passed = px <= pend.EntryLevel
	}
	if passed {
		pend.ConfirmCount++
	} else {
		pend.ConfirmCount = 0
	}

	need := e.cfg.ConfirmBars
	if need < 1 {
		need = 1
	}
	if pend.ConfirmCount < need {
		return
	}
	// confirmed; a failed contract selection below keeps the pending state
	// (and the counter) alive for a retry on the next bar
	e.enterOptions(ctx, pend, bar)
}

func (e *Engine) enterOptions(ctx context.Context, pend *models.PendingConfirmation, bar models.Bar) {
	chain, err := e.exec.Chain(ctx, pend.Symbol)
	if err != nil {
		logger.Error("[%s] option chain: %v", pend.Symbol, err)
		return
	}
	if len(chain) == 0 {
		return
	}

	spot := bar.Close
	right := models.RightCall
	if pend.Direction == models.DirShort {
		right = models.RightPut
	}
	atm := e.pickATMContract(ctx, chain, right, spot, bar)
	if atm == nil {
		return
	}
	mid := helper.Mid(atm.Bid, atm.Ask, atm.Last)
	if mid <= 0 {
		return
	}

	pv, err := e.exec.TotalValue(ctx)
	if err != nil {
		logger.Error("[%s] portfolio value: %v", pend.Symbol, err)
		return
	}
	contracts := e.sizer.OptionContracts(mid, e.sizer.RiskDollars(pv), pend.Direction)
	if contracts == 0 {
		return
	}

	mode := models.ModeOptionsNaked
	var wing *models.OptionContract
	if e.mode == models.ModeOptionsDebitSpread {
		wing = e.pickSpreadWing(ctx, chain, right, atm, bar)
		if wing != nil && !wing.Expiry.Equal(atm.Expiry) {
			// mismatched expiries never ship as a two-leg position
			logger.Info("[%s] spread wing expiry mismatch, falling back to naked %s", pend.Symbol, atm.ID)
			wing = nil
		}
		if wing != nil {
			mode = models.ModeOptionsDebitSpread
		}
	}

	if _, err := e.exec.PlaceMarketOrder(ctx, atm.ID, contracts, "ORB_ATM_OPTION"); err != nil {
		logger.Error("[%s] option entry rejected: %v", pend.Symbol, err)
		return
	}
	shortLeg := ""
	if wing != nil {
		if _, err := e.exec.PlaceMarketOrder(ctx, wing.ID, -contracts, "ORB_DEBIT_SHORT"); err != nil {
			// long leg is in; run it as a naked position rather than unwind
			logger.Error("[%s] spread wing rejected, holding naked: %v", pend.Symbol, err)
			mode = models.ModeOptionsNaked
		} else {
			shortLeg = wing.ID
		}
	}

	// exit arithmetic runs on the underlying's levels, not the premium
	e.positions[pend.Symbol] = &models.Position{
		Symbol:      pend.Symbol,
		Mode:        mode,
		Direction:   pend.Direction,
		State:       models.StateFilled,
		EntryPrice:  spot,
		InitialStop: pend.StopLevel,
		CurrentStop: pend.StopLevel,
		OneR:        math.Abs(pend.EntryLevel - pend.StopLevel),
		EntryTime:   bar.Time,
		HighWater:   spot,
		LowWater:    spot,
		LongLeg:     atm.ID,
		ShortLeg:    shortLeg,
		LegQty:      contracts,
	}
	delete(e.pendings, pend.Symbol)

	e.n.Sendf("✅ [%s] %s entry %+.0f×%s @ mid %.2f | stop=%.4f 1R=%.4f",
		pend.Symbol, mode, contracts, atm.ID, mid, pend.StopLevel, e.positions[pend.Symbol].OneR)
}

// pickATMContract — nearest-expiring, most-at-the-money liquid contract of
// the given right; ties broken by expiry first.
func (e *Engine) pickATMContract(ctx context.Context, chain []models.OptionContract, right models.OptionRight, spot float64, bar models.Bar) *models.OptionContract {
	var best *models.OptionContract
	bestDTE := int(1 << 30)
	bestDist := math.MaxFloat64
	for i := range chain {
		c := &chain[i]
		if c.Right != right || !e.liquidityOK(ctx, c) {
			continue
		}
		dte := c.DTE(bar.Time)
		if dte < 0 || dte > e.cfg.OptionDTEMax {
			continue
		}
		dist := math.Abs(c.Strike - spot)
		if dte < bestDTE || (dte == bestDTE && dist < bestDist) {
			best, bestDTE, bestDist = c, dte, dist
		}
	}
	return best
}

// pickSpreadWing — nearest strictly out-of-the-money liquid strike in the
// direction that caps profit (higher for calls, lower for puts).
func (e *Engine) pickSpreadWing(ctx context.Context, chain []models.OptionContract, right models.OptionRight, atm *models.OptionContract, bar models.Bar) *models.OptionContract {
	var wing *models.OptionContract
	for i := range chain {
		c := &chain[i]
		if c.Right != right || !e.liquidityOK(ctx, c) {
			continue
		}
		if right == models.RightCall {
			if c.Strike <= atm.Strike {
				continue
			}
			if wing == nil || c.Strike < wing.Strike {
				wing = c
			}
		} else {
			if c.Strike >= atm.Strike {
				continue
			}
			if wing == nil || c.Strike > wing.Strike {
				wing = c
			}
		}
	}
	return wing
}

func (e *Engine) liquidityOK(ctx context.Context, c *models.OptionContract) bool {
	if c.Bid <= 0 || c.Ask <= 0 {
		return false
	}
	if c.HasOpenInterest && c.OpenInterest < e.cfg.OptionMinOI {
		return false
	}
	tick := e.tick(ctx, c.ID)
	return (c.Ask-c.Bid)/math.Max(tick, 1e-6) <= float64(e.cfg.OptionMaxSpreadTicks)
}

// manageUnderlyingExit mirrors the equity breakeven/trailing arithmetic on
// the underlying stream, then checks the synthetic stop. The stop is not a
// resting order: it can only fire on a data update.
func (e *Engine) manageUnderlyingExit(ctx context.Context, p *models.Position, bar models.Bar) {
	price := bar.Close
	e.updateWaterMarks(p, price)

	move := p.Direction.Sign() * (price - p.EntryPrice)
	if !p.MovedToBreakeven && p.OneR > 0 && move >= e.cfg.BreakevenTriggerR*p.OneR {
		if e.shouldMoveStop(ctx, p, p.EntryPrice, bar) {
			p.CurrentStop = p.EntryPrice
			p.MovedToBreakeven = true
			p.LastStopUpdate = bar.Time
			e.n.Sendf("🛡 [%s] synthetic stop at breakeven %.4f", p.Symbol, p.EntryPrice)
		}
	}
	if p.MovedToBreakeven {
		if cand, ok := e.trailCandidate(p); ok && e.shouldMoveStop(ctx, p, cand, bar) {
			p.CurrentStop = cand
			p.LastStopUpdate = bar.Time
			logger.Info("[%s] synthetic stop trailed to %.4f", p.Symbol, cand)
		}
	}

	if p.CurrentStop <= 0 {
		return
	}
	hit := price <= p.CurrentStop
	if p.Direction == models.DirShort {
		hit = price >= p.CurrentStop
	}
	if hit {
		e.n.Sendf("🛑 [%s] underlying crossed %.4f, closing option legs", p.Symbol, p.CurrentStop)
		e.closeOptionLegs(ctx, p, "Exit_BY_UNDERLYING_STOP")
		e.drop(p.Symbol)
	}
}

// closeOptionLegs flattens both legs at market, short wing included.
func (e *Engine) closeOptionLegs(ctx context.Context, p *models.Position, tag string) {
	if p.LongLeg != "" && p.LegQty != 0 {
		if _, err := e.exec.PlaceMarketOrder(ctx, p.LongLeg, -p.LegQty, tag); err != nil {
			logger.Error("[%s] close long leg %s: %v", p.Symbol, p.LongLeg, err)
		}
	}
	if p.ShortLeg != "" && p.LegQty != 0 {
		if _, err := e.exec.PlaceMarketOrder(ctx, p.ShortLeg, p.LegQty, tag); err != nil {
			logger.Error("[%s] close short leg %s: %v", p.Symbol, p.ShortLeg, err)
		}
	}
	p.LongLeg = ""
	p.ShortLeg = ""
	p.LegQty = 0
}
