package models

import "time"

type OptionRight int

const (
	RightCall OptionRight = iota
	RightPut
)

func (r OptionRight) String() string {
	if r == RightPut {
		return "P"
	}
	return "C"
}

// OptionContract — one row of a chain snapshot. OpenInterest may be absent
// on some feeds; HasOpenInterest = false means the OI filter does not apply.
type OptionContract struct {
	ID         string
	Underlying string
	Right      OptionRight
	Strike     float64
	Expiry     time.Time

	Bid  float64
	Ask  float64
	Last float64

	OpenInterest    int
	HasOpenInterest bool
}

// DTE — whole days to expiry relative to now's date.
func (c OptionContract) DTE(now time.Time) int {
	ey, em, ed := c.Expiry.Date()
	ny, nm, nd := now.Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(expiry.Sub(today).Hours() / 24)
}
