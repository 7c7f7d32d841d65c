package indicator

import (
	"math"
	"time"

	"orb_bot/internal/models"
)

// ATR — Average True Range over daily bars, Wilder smoothing. Ready after
// `period` bars. Update ignores bars not strictly after the last seen one,
// so re-feeding overlapping history is safe.
type ATR struct {
	period    int
	count     int
	prevClose float64
	value     float64
	lastTime  time.Time
}

func NewATR(period int) *ATR {
	if period <= 0 {
		period = 14
	}
	return &ATR{period: period}
}

func (a *ATR) Update(bar models.Bar) {
	if !bar.Time.After(a.lastTime) {
		return
	}
	a.lastTime = bar.Time

	tr := bar.High - bar.Low
	if a.count > 0 {
		tr = math.Max(tr, math.Max(
			math.Abs(bar.High-a.prevClose),
			math.Abs(bar.Low-a.prevClose),
		))
	}
	a.prevClose = bar.Close
	a.count++

	if a.count <= a.period {
		// simple average during warm-up
		a.value += (tr - a.value) / float64(a.count)
		return
	}
	a.value = (a.value*float64(a.period-1) + tr) / float64(a.period)
}

func (a *ATR) Ready() bool { return a.count >= a.period }

func (a *ATR) Value() float64 { return a.value }
