// Package sizer converts ranked candidates into concrete order quantities
// under the shared risk / allocation / margin budget.
package sizer

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"orb_bot/internal/config"
	"orb_bot/internal/helper"
	"orb_bot/internal/models"
	"orb_bot/internal/platform"
)

// ContractMultiplier — US equity options deliverable size.
const ContractMultiplier = 100.0

type Sizer struct {
	cfg  *config.Settings
	acct platform.Account
}

func New(cfg *config.Settings, acct platform.Account) *Sizer {
	return &Sizer{cfg: cfg, acct: acct}
}

// RiskDollars — the per-position risk bucket: riskFraction of portfolio
// value split across the max concurrent positions.
func (s *Sizer) RiskDollars(portfolioValue float64) float64 {
	return s.cfg.RiskFraction * portfolioValue / float64(s.cfg.MaxPositions)
}

// EquityQty sizes the i-th candidate (1-indexed) of a batch of total.
// Three caps apply in order: risk bucket over stop distance, fixed-fraction
// allocation, and the margin apportionment. The margin cap reads free margin
// fresh on every call: later candidates in the same batch see a pool already
// reduced by earlier placements. That is deliberately conservative, not
// exact, and must stay byte-compatible with the historical behavior.
func (s *Sizer) EquityQty(ctx context.Context, c models.SignalCandidate, index, total int) (float64, error) {
	pv, err := s.acct.TotalValue(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "portfolio value")
	}

	denom := math.Max(math.Abs(c.Entry-c.Stop), 1e-6)
	riskQty := helper.TruncQty(s.RiskDollars(pv)/denom) * c.Direction.Sign()

	allocQty, err := s.acct.MaxAllocationQty(ctx, c.Symbol, 1/float64(s.cfg.MaxPositions))
	if err != nil {
		return 0, errors.Wrap(err, "allocation cap")
	}
	qty := math.Min(math.Abs(riskQty), math.Abs(helper.TruncQty(allocQty))) * c.Direction.Sign()

	maxByMargin, err := s.marginCap(ctx, c, index, total)
	if err != nil {
		return 0, err
	}
	qty = math.Min(math.Abs(qty), maxByMargin) * c.Direction.Sign()

	return qty, nil
}

func (s *Sizer) marginCap(ctx context.Context, c models.SignalCandidate, index, total int) (float64, error) {
	freeMargin, err := s.acct.MarginRemaining(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "margin remaining")
	}
	remaining := total - (index - 1)
	if remaining < 1 {
		remaining = 1
	}
	perOrderMargin := (freeMargin * s.cfg.MarginBuffer) / float64(remaining)

	meta, err := s.acct.InstrumentMeta(ctx, c.Symbol)
	if err != nil {
		return 0, errors.Wrap(err, "instrument meta")
	}
	lev := meta.Leverage
	if lev <= 0 {
		lev = 1
	}
	return helper.TruncQty(math.Max(0, (perOrderMargin*lev)/math.Max(c.Entry, 1e-6))), nil
}

// OptionContracts sizes the options overlay by premium at risk: at least one
// contract, signed by direction. There is deliberately no margin cap here —
// premium-based sizing is assumed bounded (known limitation).
func (s *Sizer) OptionContracts(mid, riskDollars float64, dir models.Direction) float64 {
	if mid <= 0 {
		return 0
	}
	contracts := math.Max(1, helper.TruncQty(riskDollars/(mid*ContractMultiplier)))
	return contracts * dir.Sign()
}

// RetryQty — the single smaller retry after an entry rejection. A zero
// result means the candidate is abandoned.
func (s *Sizer) RetryQty(qty float64) float64 {
	sign := 1.0
	if qty < 0 {
		sign = -1
	}
	return helper.TruncQty(math.Abs(qty)*s.cfg.RetryFraction) * sign
}
