// Package dateutil is the single source of truth for calendar-day keys.
// Keys are built from local year/month/day components, never by formatting
// through UTC, so a date near midnight can not shift to a neighbour day.
package dateutil

import (
	"fmt"
	"time"
)

const (
	DayKeyLayout = "2006-01-02"
	ClockLayout  = "15:04"
)

// DayKey returns the "YYYY-MM-DD" key for the local calendar day of t.
func DayKey(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// ParseDayKey parses a "YYYY-MM-DD" key into local midnight of that day.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day key %q: %w", key, err)
	}
	return t, nil
}

// AtMidnight truncates t to local midnight, preserving the calendar day.
func AtMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}

// Today returns local midnight of the current day. Callers compute it once
// per evaluation; today is always an eligible booking day, never "past".
func Today() time.Time {
	return AtMidnight(time.Now())
}

// ParseClock parses an "HH:MM" 24-hour string.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// ValidWindow reports whether start and end are well-formed "HH:MM" values
// with start strictly before end.
func ValidWindow(start, end string) bool {
	sh, sm, err := ParseClock(start)
	if err != nil {
		return false
	}
	eh, em, err := ParseClock(end)
	if err != nil {
		return false
	}
	return sh*60+sm < eh*60+em
}
