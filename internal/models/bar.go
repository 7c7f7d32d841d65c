package models

import "time"

// Bar — one OHLCV bar for a symbol. Minute bars drive intraday management,
// daily bars feed the ATR and the gap filter.
type Bar struct {
	Symbol string
	Time   time.Time // bar close time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// InstrumentMeta — per-symbol execution parameters read from the platform.
type InstrumentMeta struct {
	Leverage float64
	TickSize float64
}
