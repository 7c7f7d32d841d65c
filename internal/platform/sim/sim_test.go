package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orb_bot/internal/models"
	"orb_bot/internal/platform"
)

func TestStopOrderTriggerSides(t *testing.T) {
	p := New()
	ctx := context.Background()

	buy, err := p.PlaceStopOrder(ctx, "AAA", 100, 102.2, "Entry")
	require.NoError(t, err)
	sell, err := p.PlaceStopOrder(ctx, "AAA", -100, 99.0, "ATR Stop")
	require.NoError(t, err)

	p.SetPrice("AAA", 101.0, time.Time{})
	require.Equal(t, models.StatusWorking, buy.Status)
	require.Equal(t, models.StatusWorking, sell.Status)

	p.SetPrice("AAA", 102.3, time.Time{})
	require.Equal(t, models.StatusFilled, buy.Status)
	require.Equal(t, models.StatusWorking, sell.Status)

	p.SetPrice("AAA", 98.9, time.Time{})
	require.Equal(t, models.StatusFilled, sell.Status)

	ev := <-p.OrderEvents()
	require.Equal(t, buy.ID, ev.OrderID)
	require.Equal(t, 102.2, ev.FillPrice)
}

func TestLimitOrderTriggerSides(t *testing.T) {
	p := New()
	ctx := context.Background()

	tp, err := p.PlaceLimitOrder(ctx, "AAA", -100, 103.2, "TakeProfit_1R")
	require.NoError(t, err)

	p.SetPrice("AAA", 103.1, time.Time{})
	require.Equal(t, models.StatusWorking, tp.Status)
	p.SetPrice("AAA", 103.2, time.Time{})
	require.Equal(t, models.StatusFilled, tp.Status)
}

func TestMarginReservedOnPlacement(t *testing.T) {
	p := New()
	p.FreeMargin = 100_000
	p.Metas["AAA"] = models.InstrumentMeta{Leverage: 4, TickSize: 0.01}
	ctx := context.Background()

	_, err := p.PlaceStopOrder(ctx, "AAA", 100, 102.2, "Entry")
	require.NoError(t, err)

	free, err := p.MarginRemaining(ctx)
	require.NoError(t, err)
	require.InDelta(t, 100_000-100*102.2/4, free, 1e-9)
}

func TestLiquidateClosesHeldAndCancelsResting(t *testing.T) {
	p := New()
	ctx := context.Background()

	entry, _ := p.PlaceStopOrder(ctx, "AAA", 100, 102.2, "Entry")
	p.SetPrice("AAA", 102.3, time.Time{})
	require.Equal(t, models.StatusFilled, entry.Status)

	stop, _ := p.PlaceStopOrder(ctx, "AAA", -100, 101.2, "ATR Stop")

	require.NoError(t, p.Liquidate(ctx, "AAA"))
	require.Equal(t, models.StatusCancelled, stop.Status)

	held, err := p.QuantityHeld(ctx, "AAA")
	require.NoError(t, err)
	require.Zero(t, held)
}

func TestRejectTags(t *testing.T) {
	p := New()
	p.RejectTags["Entry"] = true

	_, err := p.PlaceStopOrder(context.Background(), "AAA", 100, 102.2, "Entry")
	require.ErrorIs(t, err, platform.ErrOrderRejected)
}

func TestUpdateOnFilledOrderRejected(t *testing.T) {
	p := New()
	ctx := context.Background()

	h, _ := p.PlaceStopOrder(ctx, "AAA", 100, 102.2, "Entry")
	p.SetPrice("AAA", 102.3, time.Time{})
	require.Equal(t, models.StatusFilled, h.Status)

	require.Error(t, p.UpdateStopPrice(ctx, h.ID, 101))
	require.Error(t, p.UpdateOrderQty(ctx, h.ID, -50))
}
