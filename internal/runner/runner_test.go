package runner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orb_bot/internal/config"
	"orb_bot/internal/engine"
	"orb_bot/internal/indicator"
	"orb_bot/internal/models"
	"orb_bot/internal/notify"
	"orb_bot/internal/platform/sim"
	"orb_bot/internal/scanner"
	"orb_bot/internal/session"
	"orb_bot/internal/sizer"
	"orb_bot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var (
	open   = time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	scanAt = open.Add(5 * time.Minute)
)

func newRunner(t *testing.T) (*Runner, *sim.Platform, *engine.Engine) {
	t.Helper()
	cfg := &config.Settings{
		IndicatorPeriod:     2,
		OpeningRangeMinutes: 5,
		RVOLThreshold:       1.8,
		MaxPositions:        4,
		EntryBufferATR:      0.10,
		StopLossATRDistance: 0.5,
		ATRPriceFloor:       0.01,
		LongOnly:            true,

		RiskFraction:  0.01,
		MarginBuffer:  0.90,
		RetryFraction: 0.50,

		BreakevenTriggerR:       1.0,
		TrailATRMult:            1.5,
		TrailUpdateThresholdATR: 0.25,
		TrailMinTicks:           2,
	}

	p := sim.New()
	p.UniverseSymbols = []string{"AAA"}
	p.Metas["AAA"] = models.InstrumentMeta{Leverage: 4, TickSize: 0.01}
	p.SetPrice("AAA", 100, time.Time{})

	// five-minute opening range: open 100, high 102, low 99.5, close 101.5
	for i := 0; i < 5; i++ {
		b := models.Bar{
			Symbol: "AAA",
			Time:   scanAt.Add(time.Duration(i-5) * time.Minute),
			Open:   100, High: 102, Low: 99.5, Close: 100,
			Volume: 400,
		}
		if i == 4 {
			b.Close = 101.5
		}
		p.Minute["AAA"] = append(p.Minute["AAA"], b)
	}
	for d := 25; d <= 27; d++ {
		p.Daily["AAA"] = append(p.Daily["AAA"], models.Bar{
			Symbol: "AAA",
			Time:   time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC),
			High:   101, Low: 99, Close: 100,
		})
	}

	inds := indicator.NewStore(cfg.IndicatorPeriod)
	inds.VolumeSMA("AAA").Update(1000)
	inds.VolumeSMA("AAA").Update(1000)

	eng := engine.New(cfg, p, sizer.New(cfg, p), inds, notify.Noop{})
	return New(cfg, p, scanner.New(cfg, p, inds), eng, notify.Noop{}), p, eng
}

func TestScanCycleArmsCandidates(t *testing.T) {
	r, _, eng := newRunner(t)
	r.ScanCycle(context.Background(), scanAt, open)

	p := eng.Position("AAA")
	require.NotNil(t, p)
	require.Equal(t, models.StateArmed, p.State)
	require.InDelta(t, 102.2, p.EntryOrder.Price, 1e-9)
}

func TestPhaseRoutingThroughScanFillAndEOD(t *testing.T) {
	r, p, eng := newRunner(t)
	ctx := context.Background()

	r.HandlePhase(ctx, session.Phase{Kind: session.PhaseScan, At: scanAt, SessionOpen: open})
	require.NotNil(t, eng.Position("AAA"))

	// breakout fills the resting entry; forward the event like Run would
	p.SetPrice("AAA", 102.3, scanAt.Add(5*time.Minute))
	ev := <-p.OrderEvents()
	eng.OnOrderEvent(ctx, ev)
	require.Equal(t, models.StateFilled, eng.Position("AAA").State)

	r.HandlePhase(ctx, session.Phase{Kind: session.PhaseEndOfDay})
	require.Nil(t, eng.Position("AAA"))
	require.Equal(t, []string{"AAA"}, p.Released())
}
