package bot

import (
	"time"

	"github.com/ducminhle1904/equity-signal-bot/internal/config"
)

// MarketHours is a weekday session [open, close) in a fixed timezone
type MarketHours struct {
	loc   *time.Location
	open  time.Duration
	close time.Duration
}

// NewMarketHours parses "HH:MM" session bounds in the named timezone
func NewMarketHours(tz, open, close string) (MarketHours, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return MarketHours{}, err
	}
	o, err := config.ParseClock(open)
	if err != nil {
		return MarketHours{}, err
	}
	c, err := config.ParseClock(close)
	if err != nil {
		return MarketHours{}, err
	}
	return MarketHours{loc: loc, open: o, close: c}, nil
}

// MarketHoursFromConfig builds the session from the schedule section
func MarketHoursFromConfig(cfg config.ScheduleConfig) (MarketHours, error) {
	return NewMarketHours(cfg.Timezone, cfg.SessionOpen, cfg.SessionClose)
}

// Location returns the session timezone
func (m MarketHours) Location() *time.Location {
	return m.loc
}

// IsTradingDay reports whether t falls on a weekday in the session timezone
func (m MarketHours) IsTradingDay(t time.Time) bool {
	switch t.In(m.loc).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// IsOpen reports whether t is inside the session
func (m MarketHours) IsOpen(t time.Time) bool {
	if !m.IsTradingDay(t) {
		return false
	}
	since := m.sinceMidnight(t)
	return since >= m.open && since < m.close
}

// AfterClose reports whether t is at or past the close of a trading day
func (m MarketHours) AfterClose(t time.Time) bool {
	return m.IsTradingDay(t) && m.sinceMidnight(t) >= m.close
}

// Day is the session date of t, used to tie cycles to a trading day
func (m MarketHours) Day(t time.Time) string {
	return t.In(m.loc).Format("2006-01-02")
}

// Clock wraps now so its times read in the session timezone. Daily log
// files dated from it line up with Day.
func (m MarketHours) Clock(now func() time.Time) func() time.Time {
	loc := m.Location()
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return now().In(loc) }
}

func (m MarketHours) sinceMidnight(t time.Time) time.Duration {
	// wall clock, so DST transition days keep their session bounds
	hh, mm, ss := t.In(m.loc).Clock()
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second
}
