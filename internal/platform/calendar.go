package platform

import (
	"time"

	"github.com/pkg/errors"

	"orb_bot/internal/helper"
)

// WallCalendar derives session boundaries from fixed wall-clock open and
// close times in one timezone, skipping weekends. Holidays are the live
// venue's job; the paper setup does not model them.
type WallCalendar struct {
	openHH, openMM   int
	closeHH, closeMM int
	loc              *time.Location
}

func NewWallCalendar(openHHMM, closeHHMM, tz string) (*WallCalendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrap(err, "calendar: timezone")
	}
	c := &WallCalendar{loc: loc}
	c.openHH, c.openMM = helper.ParseHHMM(openHHMM, 9, 30)
	c.closeHH, c.closeMM = helper.ParseHHMM(closeHHMM, 16, 0)
	return c, nil
}

func (c *WallCalendar) NextMarketOpen(after time.Time) time.Time {
	return c.next(after, c.openHH, c.openMM)
}

func (c *WallCalendar) NextMarketClose(after time.Time) time.Time {
	return c.next(after, c.closeHH, c.closeMM)
}

func (c *WallCalendar) next(after time.Time, hh, mm int) time.Time {
	t := after.In(c.loc)
	for {
		at := time.Date(t.Year(), t.Month(), t.Day(), hh, mm, 0, 0, c.loc)
		if !at.Before(after) && at.Weekday() != time.Saturday && at.Weekday() != time.Sunday {
			return at
		}
		t = t.AddDate(0, 0, 1)
	}
}
