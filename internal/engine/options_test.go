package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orb_bot/internal/config"
	"orb_bot/internal/models"
)

func optionsSettings(spread bool) *config.Settings {
	cfg := testSettings()
	cfg.UseOptions = true
	cfg.OptionUseDebitSpread = spread
	return cfg
}

var nearExpiry = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC) // DTE 2 on Aug 28
var farExpiry = time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)   // DTE 5

func liquidCall(id string, strike float64, expiry time.Time) models.OptionContract {
	return models.OptionContract{
		ID:         id,
		Underlying: "AAA",
		Right:      models.RightCall,
		Strike:     strike,
		Expiry:     expiry,
		Bid:        2.00,
		Ask:        2.10,

		OpenInterest:    500,
		HasOpenInterest: true,
	}
}

func seedChain(r *rig, contracts ...models.OptionContract) {
	r.sim.Chains["AAA"] = contracts
}

func armOptions(t *testing.T, r *rig) *models.PendingConfirmation {
	t.Helper()
	r.e.HandleCandidates(context.Background(), []models.SignalCandidate{longCandidate("AAA")}, sessionOpen)
	pend := r.e.Pending("AAA")
	require.NotNil(t, pend)
	require.Equal(t, sessionOpen.Add(7*time.Minute), pend.ReadyTime)
	return pend
}

func TestOptionsConfirmationGateAndReset(t *testing.T) {
	r := newRig(optionsSettings(false), "AAA")
	seedChain(r, liquidCall("AAA_C102", 102, nearExpiry))
	pend := armOptions(t, r)
	ctx := context.Background()

	// before the ready time, nothing counts
	r.e.OnBar(ctx, minuteBar("AAA", 5, 102.5))
	require.Equal(t, 0, pend.ConfirmCount)

	// first confirming close
	r.e.OnBar(ctx, minuteBar("AAA", 7, 102.5))
	require.Equal(t, 1, pend.ConfirmCount)

	// close back inside resets the streak
	r.e.OnBar(ctx, minuteBar("AAA", 8, 102.0))
	require.Equal(t, 0, pend.ConfirmCount)

	// two in a row fires the entry
	r.e.OnBar(ctx, minuteBar("AAA", 9, 102.5))
	r.e.OnBar(ctx, minuteBar("AAA", 10, 102.6))
	require.Nil(t, r.e.Pending("AAA"))

	p := r.e.Position("AAA")
	require.NotNil(t, p)
	require.Equal(t, models.ModeOptionsNaked, p.Mode)
	require.Equal(t, "AAA_C102", p.LongLeg)
	require.Empty(t, p.ShortLeg)
	// 2500 risk over a 2.05 mid and the 100 multiplier
	require.Equal(t, 12.0, p.LegQty)
	require.InDelta(t, 102.6, p.EntryPrice, 1e-9)
	require.InDelta(t, 101.2, p.CurrentStop, 1e-9)
	require.InDelta(t, 1.0, p.OneR, 1e-9)
}

func TestOptionsDebitSpreadWing(t *testing.T) {
	r := newRig(optionsSettings(true), "AAA")
	seedChain(r,
		liquidCall("AAA_C102", 102, nearExpiry),
		liquidCall("AAA_C105", 105, nearExpiry),
		liquidCall("AAA_C110", 110, nearExpiry),
	)
	armOptions(t, r)
	ctx := context.Background()

	r.e.OnBar(ctx, minuteBar("AAA", 9, 102.5))
	r.e.OnBar(ctx, minuteBar("AAA", 10, 102.6))

	p := r.e.Position("AAA")
	require.NotNil(t, p)
	require.Equal(t, models.ModeOptionsDebitSpread, p.Mode)
	require.Equal(t, "AAA_C102", p.LongLeg)
	// nearest strictly-OTM strike, not the farther one
	require.Equal(t, "AAA_C105", p.ShortLeg)

	long := r.orderByTag("ORB_ATM_OPTION")
	short := r.orderByTag("ORB_DEBIT_SHORT")
	require.NotNil(t, long)
	require.NotNil(t, short)
	require.Equal(t, 12.0, long.Qty)
	require.Equal(t, -12.0, short.Qty)
}

func TestOptionsWingExpiryMismatchFallsBackToNaked(t *testing.T) {
	r := newRig(optionsSettings(true), "AAA")
	seedChain(r,
		liquidCall("AAA_C102", 102, nearExpiry),
		liquidCall("AAA_C105_FAR", 105, farExpiry),
	)
	armOptions(t, r)
	ctx := context.Background()

	r.e.OnBar(ctx, minuteBar("AAA", 9, 102.5))
	r.e.OnBar(ctx, minuteBar("AAA", 10, 102.6))

	p := r.e.Position("AAA")
	require.NotNil(t, p)
	require.Equal(t, models.ModeOptionsNaked, p.Mode)
	require.Empty(t, p.ShortLeg)
	require.Nil(t, r.orderByTag("ORB_DEBIT_SHORT"))
}

func TestOptionsATMSelectionExpiryThenDistance(t *testing.T) {
	r := newRig(optionsSettings(false), "AAA")
	e := r.e
	bar := minuteBar("AAA", 10, 102.5)

	illiquid := liquidCall("AAA_C102_NOBID", 102.4, nearExpiry)
	illiquid.Bid = 0
	lowOI := liquidCall("AAA_C102_THIN", 102.4, nearExpiry)
	lowOI.OpenInterest = 50
	wide := liquidCall("AAA_C102_WIDE", 102.4, nearExpiry)
	wide.Ask = wide.Bid + 0.25 // 25 ticks
	expired := liquidCall("AAA_C102_EXP", 102.4, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC))
	tooFar := liquidCall("AAA_C102_LONGDTE", 102.4, time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC))

	chain := []models.OptionContract{
		illiquid, lowOI, wide, expired, tooFar,
		liquidCall("AAA_C105_NEAR", 105, nearExpiry),
		liquidCall("AAA_C102_FAR", 102, farExpiry),
	}

	got := e.pickATMContract(context.Background(), chain, models.RightCall, 102.5, bar)
	require.NotNil(t, got)
	// nearest expiry wins before strike distance does
	require.Equal(t, "AAA_C105_NEAR", got.ID)
}

func TestOptionsMissingOIStillLiquid(t *testing.T) {
	r := newRig(optionsSettings(false), "AAA")
	c := liquidCall("AAA_C102", 102, nearExpiry)
	c.OpenInterest = 0
	c.HasOpenInterest = false

	require.True(t, r.e.liquidityOK(context.Background(), &c))
}

func TestOptionsEmptyChainKeepsPending(t *testing.T) {
	r := newRig(optionsSettings(false), "AAA")
	pend := armOptions(t, r)
	ctx := context.Background()

	r.e.OnBar(ctx, minuteBar("AAA", 9, 102.5))
	r.e.OnBar(ctx, minuteBar("AAA", 10, 102.6))

	// confirmed, but no contract: the pending state survives for a retry
	require.NotNil(t, r.e.Pending("AAA"))
	require.Nil(t, r.e.Position("AAA"))
	require.Equal(t, 2, pend.ConfirmCount)

	// chain shows up on the next bar
	seedChain(r, liquidCall("AAA_C102", 102, nearExpiry))
	r.e.OnBar(ctx, minuteBar("AAA", 11, 102.7))
	require.NotNil(t, r.e.Position("AAA"))
}

func TestOptionsSyntheticStopClosesBothLegs(t *testing.T) {
	r := newRig(optionsSettings(true), "AAA")
	seedChain(r,
		liquidCall("AAA_C102", 102, nearExpiry),
		liquidCall("AAA_C105", 105, nearExpiry),
	)
	armOptions(t, r)
	ctx := context.Background()

	r.e.OnBar(ctx, minuteBar("AAA", 9, 102.5))
	r.e.OnBar(ctx, minuteBar("AAA", 10, 102.6))
	require.NotNil(t, r.e.Position("AAA"))

	// underlying through the stop level closes the whole structure
	r.e.OnBar(ctx, minuteBar("AAA", 30, 101.1))
	require.Nil(t, r.e.Position("AAA"))

	var exits []*models.OrderHandle
	for _, h := range r.sim.Orders() {
		if h.Tag == "Exit_BY_UNDERLYING_STOP" {
			exits = append(exits, h)
		}
	}
	require.Len(t, exits, 2)
	for _, h := range exits {
		switch h.Symbol {
		case "AAA_C102":
			require.Equal(t, -12.0, h.Qty)
		case "AAA_C105":
			require.Equal(t, 12.0, h.Qty)
		default:
			t.Fatalf("unexpected exit leg %s", h.Symbol)
		}
	}
}

func TestOptionsBreakevenAndTrailOnUnderlying(t *testing.T) {
	r := newRig(optionsSettings(false), "AAA")
	seedChain(r, liquidCall("AAA_C102", 102, nearExpiry))
	armOptions(t, r)
	ctx := context.Background()

	r.e.OnBar(ctx, minuteBar("AAA", 9, 102.5))
	r.e.OnBar(ctx, minuteBar("AAA", 10, 102.6))
	p := r.e.Position("AAA")
	require.NotNil(t, p)

	// +1R on the entry level moves the synthetic stop to the fill spot
	r.e.OnBar(ctx, minuteBar("AAA", 12, 103.7))
	require.True(t, p.MovedToBreakeven)
	require.InDelta(t, p.EntryPrice, p.CurrentStop, 1e-9)

	// then the ATR trail takes over
	r.e.OnBar(ctx, minuteBar("AAA", 13, 106.5))
	require.InDelta(t, 103.5, p.CurrentStop, 1e-9)
}
