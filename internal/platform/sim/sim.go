// Package sim is an in-memory Platform used by tests and the paper loop:
// scripted history, immediate market fills, resting stop/limit orders swept
// on every price update, and a margin figure that reserves expected usage as
// soon as an order is accepted.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"orb_bot/internal/models"
	"orb_bot/internal/platform"
)

type Platform struct {
	mu sync.Mutex

	UniverseSymbols []string

	Minute map[string][]models.Bar
	Daily  map[string][]models.Bar
	Chains map[string][]models.OptionContract
	Metas  map[string]models.InstrumentMeta

	PortfolioValue float64
	FreeMargin     float64

	marks  map[string]float64
	held   map[string]float64
	orders map[string]*models.OrderHandle
	nextID int

	events   chan models.OrderEvent
	bars     chan models.Bar
	released []string

	Open  time.Time
	Close time.Time

	// RejectTags — order tags the venue refuses, for rejection-path tests.
	RejectTags map[string]bool
}

func New() *Platform {
	return &Platform{
		Minute:         make(map[string][]models.Bar),
		Daily:          make(map[string][]models.Bar),
		Chains:         make(map[string][]models.OptionContract),
		Metas:          make(map[string]models.InstrumentMeta),
		PortfolioValue: 1_000_000,
		FreeMargin:     1_000_000,
		marks:          make(map[string]float64),
		held:           make(map[string]float64),
		orders:         make(map[string]*models.OrderHandle),
		events:         make(chan models.OrderEvent, 256),
		bars:           make(chan models.Bar, 256),
		RejectTags:     make(map[string]bool),
	}
}

// ---- market data ----

func (p *Platform) MinuteBars(_ context.Context, symbols []string, lookback int) (map[string][]models.Bar, error) {
	return p.history(p.Minute, symbols, lookback), nil
}

func (p *Platform) DailyBars(_ context.Context, symbols []string, lookback int) (map[string][]models.Bar, error) {
	return p.history(p.Daily, symbols, lookback), nil
}

func (p *Platform) history(src map[string][]models.Bar, symbols []string, lookback int) map[string][]models.Bar {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string][]models.Bar)
	for _, sym := range symbols {
		bars := src[sym]
		if len(bars) == 0 {
			continue
		}
		if len(bars) > lookback {
			bars = bars[len(bars)-lookback:]
		}
		out[sym] = append([]models.Bar(nil), bars...)
	}
	return out
}

// ---- broker ----

func (p *Platform) place(symbol string, qty, price float64, kind models.OrderKind, tag string) (*models.OrderHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RejectTags[tag] {
		return nil, platform.ErrOrderRejected
	}
	p.nextID++
	h := &models.OrderHandle{
		ID:     fmt.Sprintf("ord-%d", p.nextID),
		Symbol: symbol,
		Kind:   kind,
		Qty:    qty,
		Price:  price,
		Status: models.StatusWorking,
		Tag:    tag,
	}
	p.orders[h.ID] = h
	p.reserveMargin(symbol, qty, price)
	return h, nil
}

// reserveMargin mimics the live platform: accepted orders reduce free
// margin by their expected usage before any fill arrives.
func (p *Platform) reserveMargin(symbol string, qty, price float64) {
	if price <= 0 {
		price = p.marks[symbol]
	}
	lev := p.Metas[symbol].Leverage
	if lev <= 0 {
		lev = 1
	}
	if qty < 0 {
		qty = -qty
	}
	p.FreeMargin -= qty * price / lev
}

func (p *Platform) PlaceStopOrder(_ context.Context, symbol string, qty, stopPrice float64, tag string) (*models.OrderHandle, error) {
	return p.place(symbol, qty, stopPrice, models.KindProtectiveStop, tag)
}

func (p *Platform) PlaceLimitOrder(_ context.Context, symbol string, qty, limitPrice float64, tag string) (*models.OrderHandle, error) {
	return p.place(symbol, qty, limitPrice, models.KindTakeProfit, tag)
}

func (p *Platform) PlaceMarketOrder(ctx context.Context, symbol string, qty float64, tag string) (*models.OrderHandle, error) {
	h, err := p.place(symbol, qty, 0, models.KindMarket, tag)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.fillLocked(h, p.marks[symbol], time.Time{})
	p.mu.Unlock()
	return h, nil
}

func (p *Platform) UpdateStopPrice(_ context.Context, orderID string, stopPrice float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.orders[orderID]
	if !ok || h.Status != models.StatusWorking {
		return platform.ErrOrderRejected
	}
	h.Price = stopPrice
	return nil
}

func (p *Platform) UpdateOrderQty(_ context.Context, orderID string, qty float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.orders[orderID]
	if !ok || h.Status != models.StatusWorking {
		return platform.ErrOrderRejected
	}
	h.Qty = qty
	return nil
}

func (p *Platform) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.orders[orderID]
	if !ok {
		return platform.ErrOrderRejected
	}
	if h.Status == models.StatusWorking {
		h.Status = models.StatusCancelled
	}
	return nil
}

func (p *Platform) Liquidate(_ context.Context, symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range p.orders {
		if h.Symbol == symbol && h.Status == models.StatusWorking {
			h.Status = models.StatusCancelled
		}
	}
	if q := p.held[symbol]; q != 0 {
		p.nextID++
		h := &models.OrderHandle{
			ID:     fmt.Sprintf("ord-%d", p.nextID),
			Symbol: symbol,
			Kind:   models.KindMarket,
			Qty:    -q,
			Status: models.StatusWorking,
			Tag:    "Liquidate",
		}
		p.orders[h.ID] = h
		p.fillLocked(h, p.marks[symbol], time.Time{})
	}
	return nil
}

func (p *Platform) fillLocked(h *models.OrderHandle, price float64, t time.Time) {
	h.Status = models.StatusFilled
	p.held[h.Symbol] += h.Qty
	p.events <- models.OrderEvent{
		OrderID:   h.ID,
		Symbol:    h.Symbol,
		Status:    models.StatusFilled,
		FillQty:   h.Qty,
		FillPrice: price,
		Time:      t,
	}
}

// SetPrice marks a symbol and sweeps its resting orders: stops trigger
// through the level, limits through the opposite side.
func (p *Platform) SetPrice(symbol string, price float64, t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marks[symbol] = price
	for _, h := range p.orders {
		if h.Symbol != symbol || h.Status != models.StatusWorking {
			continue
		}
		switch h.Kind {
		case models.KindProtectiveStop, models.KindEntry:
			if (h.Qty > 0 && price >= h.Price) || (h.Qty < 0 && price <= h.Price) {
				p.fillLocked(h, h.Price, t)
			}
		case models.KindTakeProfit:
			if (h.Qty > 0 && price <= h.Price) || (h.Qty < 0 && price >= h.Price) {
				p.fillLocked(h, h.Price, t)
			}
		}
	}
}

// ---- account ----

func (p *Platform) TotalValue(context.Context) (float64, error) {
	return p.PortfolioValue, nil
}

func (p *Platform) MarginRemaining(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.FreeMargin, nil
}

func (p *Platform) QuantityHeld(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held[symbol], nil
}

func (p *Platform) MaxAllocationQty(_ context.Context, symbol string, fraction float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	px := p.marks[symbol]
	if px <= 0 {
		return 0, platform.ErrDataUnavailable
	}
	return fraction * p.PortfolioValue / px, nil
}

func (p *Platform) InstrumentMeta(_ context.Context, symbol string) (models.InstrumentMeta, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.Metas[symbol]
	if !ok {
		return models.InstrumentMeta{Leverage: 1, TickSize: 0.01}, nil
	}
	return m, nil
}

// ---- options ----

func (p *Platform) Chain(_ context.Context, underlying string) ([]models.OptionContract, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.OptionContract(nil), p.Chains[underlying]...), nil
}

// ---- calendar / subscriptions ----

func (p *Platform) NextMarketOpen(after time.Time) time.Time  { return p.Open }
func (p *Platform) NextMarketClose(after time.Time) time.Time { return p.Close }

func (p *Platform) Universe(context.Context) ([]string, error) {
	return append([]string(nil), p.UniverseSymbols...), nil
}

func (p *Platform) StreamBars(ctx context.Context, symbols []string) (<-chan models.Bar, error) {
	return p.bars, nil
}

// PushBar feeds the bar stream and moves the mark so resting orders sweep.
func (p *Platform) PushBar(b models.Bar) {
	p.SetPrice(b.Symbol, b.Close, b.Time)
	p.bars <- b
}

func (p *Platform) OrderEvents() <-chan models.OrderEvent { return p.events }

func (p *Platform) Release(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, symbol)
}

// Released — symbols dropped so far, for assertions.
func (p *Platform) Released() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.released...)
}

// Orders — snapshot of every order the sim has seen, for assertions.
func (p *Platform) Orders() []*models.OrderHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.OrderHandle, 0, len(p.orders))
	for _, h := range p.orders {
		out = append(out, h)
	}
	return out
}
