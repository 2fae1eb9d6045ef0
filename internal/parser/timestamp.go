package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/trendlog-viewer/backend/internal/models"
)

// yearBase is the calendar year of raw year 0.
const yearBase = 1900

// FractionResolution is the unit of the fourth time component.
type FractionResolution int

const (
	// Hundredths is the standard BACnet resolution (0-99, 0xFF unspecified).
	Hundredths FractionResolution = iota
	// Milliseconds is used by devices reporting 0-999 (0xFFFF unspecified).
	Milliseconds
)

func (r FractionResolution) String() string {
	switch r {
	case Milliseconds:
		return "milliseconds"
	default:
		return "hundredths"
	}
}

// ParseFractionResolution accepts "hundredths" or "milliseconds" (case-insensitive).
func ParseFractionResolution(s string) (FractionResolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hundredths", "centiseconds":
		return Hundredths, nil
	case "milliseconds", "ms":
		return Milliseconds, nil
	}
	return Hundredths, fmt.Errorf("unknown fraction resolution: %q", s)
}

func (r FractionResolution) limits() (highest uint16, unspecified uint16, unit time.Duration) {
	if r == Milliseconds {
		return 999, 0xFFFF, time.Millisecond
	}
	return 99, models.Unspecified, 10 * time.Millisecond
}

// reconstructTimestamp turns the device's split date/time into an absolute time.
//
// The day-of-week octet never contributes to the result: 0xFF is accepted and
// ignored, a specified value must be 1..7 and, when strictDOW is set, must
// match the calendar date. Every other field must hold a concrete in-range
// value; unspecified and wildcard values fail rather than being coerced.
// On failure the name of the offending field is returned with the error.
func reconstructTimestamp(dt models.DateTime, res FractionResolution, loc *time.Location, strictDOW bool) (time.Time, string, error) {
	d, t := dt.Date, dt.Time

	if d.Year == models.Unspecified {
		return time.Time{}, "year", ErrUnspecifiedField
	}
	year := yearBase + int(d.Year)

	if err := checkOctet(d.Month, 1, 12); err != nil {
		return time.Time{}, "month", err
	}
	month := time.Month(d.Month)

	if err := checkOctet(d.Day, 1, uint8(daysIn(month, year))); err != nil {
		return time.Time{}, "day", err
	}
	if err := checkOctet(t.Hour, 0, 23); err != nil {
		return time.Time{}, "hour", err
	}
	if err := checkOctet(t.Minute, 0, 59); err != nil {
		return time.Time{}, "minute", err
	}
	if err := checkOctet(t.Second, 0, 59); err != nil {
		return time.Time{}, "second", err
	}

	maxFrac, unspecifiedFrac, unit := res.limits()
	if t.Fraction == unspecifiedFrac {
		return time.Time{}, "fraction", ErrUnspecifiedField
	}
	if t.Fraction > maxFrac {
		return time.Time{}, "fraction", fmt.Errorf("%w: %d exceeds %d for %s", ErrFieldOutOfRange, t.Fraction, maxFrac, res)
	}

	if loc == nil {
		loc = time.UTC
	}
	ts := time.Date(year, month, int(d.Day), int(t.Hour), int(t.Minute), int(t.Second),
		int(time.Duration(t.Fraction)*unit), loc)

	if d.DayOfWeek != models.Unspecified {
		if d.DayOfWeek < 1 || d.DayOfWeek > 7 {
			return time.Time{}, "dayOfWeek", fmt.Errorf("%w: %d not in [1,7]", ErrFieldOutOfRange, d.DayOfWeek)
		}
		if strictDOW && d.DayOfWeek != bacnetWeekday(ts.Weekday()) {
			return time.Time{}, "dayOfWeek", fmt.Errorf("%w: %d does not match %s", ErrFieldOutOfRange, d.DayOfWeek, ts.Weekday())
		}
	}

	return ts, "", nil
}

func checkOctet(v, lo, hi uint8) error {
	if v == models.Unspecified {
		return ErrUnspecifiedField
	}
	if v < lo || v > hi {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrFieldOutOfRange, v, lo, hi)
	}
	return nil
}

// daysIn returns the number of days in month of year.
func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// bacnetWeekday maps Go's Sunday=0 numbering to BACnet's Monday=1..Sunday=7.
func bacnetWeekday(wd time.Weekday) uint8 {
	if wd == time.Sunday {
		return 7
	}
	return uint8(wd)
}
