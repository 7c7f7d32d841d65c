package sizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orb_bot/internal/config"
	"orb_bot/internal/models"
	"orb_bot/internal/platform/sim"
)

func testSettings() *config.Settings {
	return &config.Settings{
		MaxPositions:  4,
		RiskFraction:  0.01,
		MarginBuffer:  0.90,
		RetryFraction: 0.50,
	}
}

func longCandidate() models.SignalCandidate {
	return models.SignalCandidate{
		Symbol:    "AAA",
		Direction: models.DirLong,
		Entry:     102.2,
		Stop:      101.2,
	}
}

func TestRiskDollars(t *testing.T) {
	s := New(testSettings(), sim.New())
	require.InDelta(t, 2500.0, s.RiskDollars(1_000_000), 1e-9)
}

func TestEquityQtyRiskCap(t *testing.T) {
	p := sim.New()
	p.PortfolioValue = 1_000_000
	p.FreeMargin = 1_000_000
	p.Metas["AAA"] = models.InstrumentMeta{Leverage: 4, TickSize: 0.01}
	p.SetPrice("AAA", 100, time.Time{})

	s := New(testSettings(), p)
	qty, err := s.EquityQty(context.Background(), longCandidate(), 1, 4)
	require.NoError(t, err)
	// risk bucket 2500 over a 1.00 stop distance; allocation allows 2500 too
	require.Equal(t, 2500.0, qty)
}

func TestEquityQtyAllocationCap(t *testing.T) {
	p := sim.New()
	p.PortfolioValue = 1_000_000
	p.FreeMargin = 1_000_000
	p.Metas["AAA"] = models.InstrumentMeta{Leverage: 4, TickSize: 0.01}
	p.SetPrice("AAA", 200, time.Time{})

	s := New(testSettings(), p)
	qty, err := s.EquityQty(context.Background(), longCandidate(), 1, 4)
	require.NoError(t, err)
	// 25% of 1M at a 200 mark caps at 1250, below the 2500 risk quantity
	require.Equal(t, 1250.0, qty)
}

func TestEquityQtyMarginApportionment(t *testing.T) {
	p := sim.New()
	p.PortfolioValue = 10_000_000 // risk and allocation caps out of the way
	p.FreeMargin = 100_000
	p.Metas["AAA"] = models.InstrumentMeta{Leverage: 4, TickSize: 0.01}
	p.SetPrice("AAA", 100, time.Time{})

	s := New(testSettings(), p)
	qty, err := s.EquityQty(context.Background(), longCandidate(), 1, 4)
	require.NoError(t, err)
	// per-order margin 100000*0.9/4 = 22500, times leverage over entry
	want := 22_500 * 4 / 102.2
	require.Equal(t, float64(int(want)), qty)
	require.Equal(t, 880.0, qty)
}

func TestEquityQtyLaterIndexGetsLargerShare(t *testing.T) {
	p := sim.New()
	p.PortfolioValue = 10_000_000
	p.FreeMargin = 100_000
	p.Metas["AAA"] = models.InstrumentMeta{Leverage: 4, TickSize: 0.01}
	p.SetPrice("AAA", 100, time.Time{})

	s := New(testSettings(), p)
	qty, err := s.EquityQty(context.Background(), longCandidate(), 4, 4)
	require.NoError(t, err)
	// last of the batch takes the whole remaining buffered pool
	want := 100_000 * 0.9 * 4 / 102.2
	require.Equal(t, float64(int(want)), qty)
}

func TestEquityQtyShortSign(t *testing.T) {
	p := sim.New()
	p.PortfolioValue = 1_000_000
	p.FreeMargin = 1_000_000
	p.Metas["SSS"] = models.InstrumentMeta{Leverage: 4, TickSize: 0.01}
	p.SetPrice("SSS", 100, time.Time{})

	c := models.SignalCandidate{
		Symbol:    "SSS",
		Direction: models.DirShort,
		Entry:     97.8,
		Stop:      98.8,
	}
	s := New(testSettings(), p)
	qty, err := s.EquityQty(context.Background(), c, 1, 4)
	require.NoError(t, err)
	require.Less(t, qty, 0.0)
	require.Equal(t, -2500.0, qty)
}

func TestOptionContracts(t *testing.T) {
	s := New(testSettings(), sim.New())

	require.Equal(t, 8.0, s.OptionContracts(2.5, 2000, models.DirLong))
	require.Equal(t, -8.0, s.OptionContracts(2.5, 2000, models.DirShort))
	// premium dwarfs the bucket: still one contract
	require.Equal(t, 1.0, s.OptionContracts(50, 2000, models.DirLong))
	require.Equal(t, 0.0, s.OptionContracts(0, 2000, models.DirLong))
}

func TestRetryQty(t *testing.T) {
	s := New(testSettings(), sim.New())

	require.Equal(t, 2.0, s.RetryQty(5))
	require.Equal(t, -2.0, s.RetryQty(-5))
	// retry of a one-lot truncates to zero: abandon
	require.Equal(t, 0.0, s.RetryQty(1))
}
