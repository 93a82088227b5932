package dayclock

import (
	"fmt"
	"time"
)

// Layout is the canonical calendar-day format used for scheduling keys.
const Layout = "2006-01-02"

// DayKey is a calendar day in the reference timezone, formatted as YYYY-MM-DD.
// Keys compare correctly with plain string ordering.
type DayKey string

// Parse validates a raw string as a DayKey.
func Parse(raw string) (DayKey, error) {
	if _, err := time.ParseInLocation(Layout, raw, time.UTC); err != nil {
		return "", fmt.Errorf("invalid day key %q: %w", raw, err)
	}
	return DayKey(raw), nil
}

// FromTime converts a timestamp into the day key for the given location.
func FromTime(t time.Time, loc *time.Location) DayKey {
	return DayKey(t.In(loc).Format(Layout))
}

// AddDays returns the day key n days after d (n may be negative).
func (d DayKey) AddDays(n int) DayKey {
	t, err := time.ParseInLocation(Layout, string(d), time.UTC)
	if err != nil {
		return d
	}
	return DayKey(t.AddDate(0, 0, n).Format(Layout))
}

// Before reports whether d falls strictly before other.
func (d DayKey) Before(other DayKey) bool { return string(d) < string(other) }

// After reports whether d falls strictly after other.
func (d DayKey) After(other DayKey) bool { return string(d) > string(other) }

func (d DayKey) String() string { return string(d) }

// Time returns the midnight instant of the day in the given location.
func (d DayKey) Time(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(Layout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clock supplies the current instant and its calendar day in a fixed
// reference timezone, so scheduling stays consistent regardless of the
// caller's locale.
type Clock interface {
	Now() time.Time
	Today() DayKey
}

type fixedZoneClock struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Clock bound to the named timezone (empty means UTC).
func New(timezone string) (Clock, error) {
	loc := time.UTC
	if timezone != "" {
		parsed, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
		loc = parsed
	}
	return &fixedZoneClock{loc: loc, now: time.Now}, nil
}

// NewFixed returns a Clock frozen at the given instant, for tests.
func NewFixed(at time.Time, loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &fixedZoneClock{loc: loc, now: func() time.Time { return at }}
}

func (c *fixedZoneClock) Now() time.Time { return c.now() }

func (c *fixedZoneClock) Today() DayKey { return FromTime(c.now(), c.loc) }
