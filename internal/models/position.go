package models

import "time"

type PositionState int

const (
	StateArmed PositionState = iota // entry order resting, nothing filled
	StateFilled
	StatePartialExit // take-profit filled, remainder rides the stop
)

// Position — lifecycle state for one actively traded symbol. Created when an
// entry is armed, mutated only by fill/bar/boundary events, removed on full
// exit or session close. All fields are declared here; nothing is attached
// to the symbol ad hoc.
type Position struct {
	Symbol    string
	Mode      ExecutionMode // fixed at entry, never changes mid-life
	Direction Direction
	State     PositionState

	Qty float64 // signed, current equity quantity

	EntryPrice  float64
	InitialStop float64
	CurrentStop float64
	// OneR = |EntryPrice - InitialStop|. Set exactly once at entry fill.
	OneR float64

	MovedToBreakeven bool
	EntryTime        time.Time
	HighWater        float64
	LowWater         float64
	LastStopUpdate   time.Time

	EntryOrder *OrderHandle
	StopOrder  *OrderHandle
	TPOrder    *OrderHandle

	// options legs (contract IDs); ShortLeg empty for naked positions
	LongLeg  string
	ShortLeg string
	LegQty   float64 // signed contracts
}

// PendingConfirmation — options-mode sub-state armed before any entry.
// Levels are carried over verbatim from the equity signal.
type PendingConfirmation struct {
	Symbol     string
	Direction  Direction
	EntryLevel float64
	StopLevel  float64
	// no option entry may occur before this wall-clock time
	ReadyTime    time.Time
	ConfirmCount int
}
