// Package platform declares the narrow boundary the breakout core consumes.
// Market data retrieval, order execution, account math, option chains and
// the session calendar all live behind these interfaces; the core never
// talks to a venue directly.
package platform

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"orb_bot/internal/models"
)

var (
	// ErrDataUnavailable — empty or missing history / chain snapshot.
	ErrDataUnavailable = errors.New("platform: data unavailable")
	// ErrOrderRejected — the venue refused the order outright.
	ErrOrderRejected = errors.New("platform: order rejected")
)

type MarketData interface {
	// MinuteBars returns up to lookback most recent minute bars per symbol.
	MinuteBars(ctx context.Context, symbols []string, lookback int) (map[string][]models.Bar, error)
	// DailyBars returns up to lookback most recent daily bars per symbol.
	DailyBars(ctx context.Context, symbols []string, lookback int) (map[string][]models.Bar, error)
}

type Broker interface {
	PlaceStopOrder(ctx context.Context, symbol string, qty, stopPrice float64, tag string) (*models.OrderHandle, error)
	PlaceLimitOrder(ctx context.Context, symbol string, qty, limitPrice float64, tag string) (*models.OrderHandle, error)
	PlaceMarketOrder(ctx context.Context, symbol string, qty float64, tag string) (*models.OrderHandle, error)
	UpdateStopPrice(ctx context.Context, orderID string, stopPrice float64) error
	UpdateOrderQty(ctx context.Context, orderID string, qty float64) error
	CancelOrder(ctx context.Context, orderID string) error
	// Liquidate closes any held quantity in symbol at market and cancels its
	// resting orders.
	Liquidate(ctx context.Context, symbol string) error
}

type Account interface {
	TotalValue(ctx context.Context) (float64, error)
	MarginRemaining(ctx context.Context) (float64, error)
	QuantityHeld(ctx context.Context, symbol string) (float64, error)
	// MaxAllocationQty — how many units of symbol a `fraction` slice of the
	// portfolio buys at current prices. Computed by the boundary, not the core.
	MaxAllocationQty(ctx context.Context, symbol string, fraction float64) (float64, error)
	InstrumentMeta(ctx context.Context, symbol string) (models.InstrumentMeta, error)
}

type OptionChains interface {
	// Chain returns the current snapshot for an underlying. An empty chain is
	// not an error; a failed fetch is.
	Chain(ctx context.Context, underlying string) ([]models.OptionContract, error)
}

type Calendar interface {
	NextMarketOpen(after time.Time) time.Time
	NextMarketClose(after time.Time) time.Time
}

// Platform — everything the core needs from the surrounding system.
type Platform interface {
	MarketData
	Broker
	Account
	OptionChains
	Calendar

	// Universe — the externally maintained tradable symbol list.
	Universe(ctx context.Context) ([]string, error)
	// StreamBars delivers minute bars for the given symbols until ctx ends.
	StreamBars(ctx context.Context, symbols []string) (<-chan models.Bar, error)
	// OrderEvents — asynchronous fill/cancel/reject notifications.
	OrderEvents() <-chan models.OrderEvent
	// Release drops a per-symbol subscription once the core stops tracking it.
	Release(symbol string)
}
