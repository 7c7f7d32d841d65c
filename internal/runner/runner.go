// Package runner owns the event loop. Minute bars, order events and session
// phases arrive on channels and are handled one at a time on a single
// goroutine, so the engine and indicator state never need locking.
package runner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"orb_bot/internal/config"
	"orb_bot/internal/engine"
	"orb_bot/internal/notify"
	"orb_bot/internal/platform"
	"orb_bot/internal/scanner"
	"orb_bot/internal/session"
	"orb_bot/pkg/logger"
)

type Runner struct {
	cfg  *config.Settings
	plat platform.Platform
	scan *scanner.Scanner
	eng  *engine.Engine
	n    notify.Notifier
}

func New(cfg *config.Settings, plat platform.Platform, scan *scanner.Scanner, eng *engine.Engine, n notify.Notifier) *Runner {
	return &Runner{cfg: cfg, plat: plat, scan: scan, eng: eng, n: n}
}

// Run blocks until ctx ends, serializing every callback. Closed bar or
// phase channels end the loop cleanly.
func (r *Runner) Run(ctx context.Context, phases <-chan session.Phase) error {
	symbols, err := r.plat.Universe(ctx)
	if err != nil {
		return errors.Wrap(err, "runner: universe")
	}
	bars, err := r.plat.StreamBars(ctx, symbols)
	if err != nil {
		return errors.Wrap(err, "runner: subscribe bars")
	}
	events := r.plat.OrderEvents()

	logger.Info("runner: started, %d symbols", len(symbols))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-bars:
			if !ok {
				return nil
			}
			r.eng.OnBar(ctx, b)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.eng.OnOrderEvent(ctx, ev)
		case ph, ok := <-phases:
			if !ok {
				return nil
			}
			r.HandlePhase(ctx, ph)
		}
	}
}

func (r *Runner) HandlePhase(ctx context.Context, ph session.Phase) {
	logger.Info("runner: phase %s at %s", ph.Kind, ph.At.Format(time.RFC3339))
	switch ph.Kind {
	case session.PhaseScan:
		r.ScanCycle(ctx, ph.At, ph.SessionOpen)
	case session.PhaseTimeStop:
		r.eng.TimeStop(ctx, ph.At)
	case session.PhaseEndOfDay:
		r.eng.EndOfDay(ctx)
	}
}

// ScanCycle runs the once-per-session opening range scan and hands the
// surviving candidates to the engine. A data failure aborts the whole
// cycle rather than trading a partial picture.
func (r *Runner) ScanCycle(ctx context.Context, now, sessionOpen time.Time) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "scan_cycle")
	defer span.Finish()

	symbols, err := r.plat.Universe(ctx)
	if err != nil {
		logger.Error("runner: universe: %v", err)
		return
	}
	span.SetTag("universe", len(symbols))

	cands, err := r.scan.Scan(ctx, symbols, now)
	if err != nil {
		logger.Error("runner: scan aborted: %v", err)
		r.n.Sendf("⚠️ scan aborted: %v", err)
		return
	}
	span.SetTag("candidates", len(cands))
	if len(cands) == 0 {
		logger.Info("runner: scan produced no candidates")
		return
	}
	r.eng.HandleCandidates(ctx, cands, sessionOpen)
}
