package models

import "time"

type OrderKind int

const (
	KindEntry OrderKind = iota
	KindProtectiveStop
	KindTakeProfit
	KindMarket
)

type OrderStatus int

const (
	StatusWorking OrderStatus = iota
	StatusFilled
	StatusCancelled
	StatusRejected
)

// OrderHandle — reference to an order at the execution boundary. The core
// never owns fills; it reacts to OrderEvents carrying the same ID.
type OrderHandle struct {
	ID     string
	Symbol string
	Kind   OrderKind
	Qty    float64 // signed
	Price  float64 // stop/limit level, 0 for market
	Status OrderStatus
	Tag    string
}

// OrderEvent — asynchronous status notification from the platform.
type OrderEvent struct {
	OrderID   string
	Symbol    string
	Status    OrderStatus
	FillQty   float64 // signed
	FillPrice float64
	Time      time.Time
}
