// Package engine owns the position lifecycle: arming entries, reacting to
// fills, breakeven migration, throttled ATR trailing, the options overlay
// with its synthetic stop, and the session boundary exits. One engine serves
// both execution variants; the mode only changes how a signal is expressed,
// never the exit arithmetic.
//
// All entry points are invoked from a single event loop: the surrounding
// runner serializes scan, bar, order and boundary events, so no locking
// happens here and every mutation is atomic within its callback.
package engine

import (
	"context"

	"orb_bot/internal/config"
	"orb_bot/internal/models"
	"orb_bot/internal/notify"
	"orb_bot/internal/platform"
	"orb_bot/internal/sizer"

	"orb_bot/internal/indicator"
)

// Exec — the slice of the platform the engine drives.
type Exec interface {
	platform.Broker
	platform.Account
	platform.OptionChains
	Release(symbol string)
}

type Engine struct {
	cfg   *config.Settings
	exec  Exec
	sizer *sizer.Sizer
	inds  *indicator.Store
	n     notify.Notifier

	mode models.ExecutionMode

	positions map[string]*models.Position
	pendings  map[string]*models.PendingConfirmation

	metaCache map[string]models.InstrumentMeta
}

func New(cfg *config.Settings, exec Exec, sz *sizer.Sizer, inds *indicator.Store, n notify.Notifier) *Engine {
	mode := models.ModeEquity
	if cfg.UseOptions {
		mode = models.ModeOptionsNaked
		if cfg.OptionUseDebitSpread {
			mode = models.ModeOptionsDebitSpread
		}
	}
	return &Engine{
		cfg:       cfg,
		exec:      exec,
		sizer:     sz,
		inds:      inds,
		n:         n,
		mode:      mode,
		positions: make(map[string]*models.Position),
		pendings:  make(map[string]*models.PendingConfirmation),
		metaCache: make(map[string]models.InstrumentMeta),
	}
}

func (e *Engine) Mode() models.ExecutionMode { return e.mode }

// Position returns the live record for a symbol, or nil.
func (e *Engine) Position(symbol string) *models.Position { return e.positions[symbol] }

func (e *Engine) Pending(symbol string) *models.PendingConfirmation { return e.pendings[symbol] }

// TrackedSymbols — every symbol with a position or a pending confirmation.
func (e *Engine) TrackedSymbols() []string {
	out := make([]string, 0, len(e.positions)+len(e.pendings))
	for sym := range e.positions {
		out = append(out, sym)
	}
	for sym := range e.pendings {
		if _, ok := e.positions[sym]; !ok {
			out = append(out, sym)
		}
	}
	return out
}

func (e *Engine) tick(ctx context.Context, symbol string) float64 {
	meta, ok := e.metaCache[symbol]
	if !ok {
		m, err := e.exec.InstrumentMeta(ctx, symbol)
		if err != nil {
			return 0.01
		}
		e.metaCache[symbol] = m
		meta = m
	}
	if meta.TickSize <= 0 {
		return 0.01
	}
	return meta.TickSize
}

// drop clears every transient trace of a symbol's position.
func (e *Engine) drop(symbol string) {
	delete(e.positions, symbol)
}
