package helper

import (
	"math"
	"strconv"
	"strings"
)

func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	return math.Floor(tickSteps(px, tick)) * tick
}

func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	return math.Ceil(tickSteps(px, tick)) * tick
}

// tickSteps snaps px/tick to an integer when it is integral up to fp error,
// so prices already on the grid survive both rounding directions.
func tickSteps(px, tick float64) float64 {
	ratio := px / tick
	if r := math.Round(ratio); math.Abs(ratio-r) < 1e-9*math.Max(1, math.Abs(r)) {
		return r
	}
	return ratio
}

// TruncQty truncates a signed quantity toward zero to whole units.
func TruncQty(q float64) float64 {
	return math.Trunc(q)
}

// Mid — quote midpoint, falling back to the last trade when the quote is
// not two-sided.
func Mid(bid, ask, last float64) float64 {
	if bid > 0 && ask > 0 {
		return (bid + ask) / 2.0
	}
	return last
}

/// ParseHHMM parses "HH:MM" into hour/minute, returning the defaults on any
// malformed input.
func ParseHHMM(raw string, defHH, defMM int) (int, int) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return defHH, defMM
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return defHH, defMM
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return defHH, defMM
	}
	return hh, mm
}

