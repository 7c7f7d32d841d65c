package models

// Direction of a trade: +1 long, -1 short.
type Direction int

const (
	DirLong  Direction = 1
	DirShort Direction = -1
)

func (d Direction) Sign() float64 {
	if d < 0 {
		return -1
	}
	return 1
}

// ExecutionMode — how a signal is expressed once it fires.
type ExecutionMode int

const (
	ModeEquity ExecutionMode = iota
	ModeOptionsNaked
	ModeOptionsDebitSpread
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeEquity:
		return "equity"
	case ModeOptionsNaked:
		return "options-naked"
	case ModeOptionsDebitSpread:
		return "options-spread"
	}
	return "unknown"
}

// SignalCandidate — one scan-cycle output. Ephemeral: consumed by the sizer
// and the engine within the same cycle, never kept across cycles.
type SignalCandidate struct {
	Symbol    string
	Direction Direction

	ORHigh  float64
	ORLow   float64
	OROpen  float64
	ORClose float64

	ATR  float64
	RVOL float64

	Entry float64
	Stop  float64
}
