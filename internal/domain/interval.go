package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in YYYY-MM-DD form, interpreted in the service location.
type Date string

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", NewValidationError("date", "expected YYYY-MM-DD")
	}
	return Date(t.Format(dateLayout)), nil
}

// DateOf returns the calendar day of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	return Date(t.In(loc).Format(dateLayout))
}

func (d Date) String() string { return string(d) }

// At returns the instant at which wall clocks in loc read tod on day d.
// 24:00 is midnight of the following day.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), int(tod)/60, int(tod)%60, 0, 0, loc)
}

// TimeOfDay is minutes since midnight.
type TimeOfDay int

const endOfDay TimeOfDay = 24 * 60

// ParseTimeOfDay accepts "HH:MM". "24:00" is allowed as an end bound.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if s == "24:00" {
		return endOfDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, NewValidationError("time", fmt.Sprintf("invalid time %q, expected HH:MM", s))
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// TimeOfDayOf returns the minute of the day of t in loc.
func TimeOfDayOf(t time.Time, loc *time.Location) TimeOfDay {
	t = t.In(loc)
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= endOfDay
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

// Contains reports whether t lies in [start, end).
func Contains(start, end TimeOfDay, t TimeOfDay) bool {
	return start <= t && t < end
}

// ValidateInterval checks end > start and both bounds inside the day.
func ValidateInterval(start, end TimeOfDay) error {
	if !start.Valid() || start == endOfDay {
		return NewValidationError("start_time", "out of range")
	}
	if !end.Valid() {
		return NewValidationError("end_time", "out of range")
	}
	if end <= start {
		return NewValidationError("end_time", "must be after start_time")
	}
	return nil
}
