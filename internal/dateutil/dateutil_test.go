package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey(t *testing.T) {
	d := time.Date(2024, 3, 4, 9, 30, 0, 0, time.Local)
	assert.Equal(t, "2024-03-04", DayKey(d))
}

func TestDayKeyUsesLocalComponents(t *testing.T) {
	// 23:30 in a UTC+3 zone is already the next day in UTC. The key must
	// follow the wall clock, not the UTC instant.
	loc := time.FixedZone("UTC+3", 3*60*60)
	d := time.Date(2024, 3, 4, 23, 30, 0, 0, loc)

	assert.Equal(t, "2024-03-04", DayKey(d))
	assert.NotEqual(t, DayKey(d), d.UTC().Format(DayKeyLayout))
}

func TestParseDayKey(t *testing.T) {
	d, err := ParseDayKey("2024-03-04")
	require.NoError(t, err)

	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 4, d.Day())
	assert.Equal(t, 0, d.Hour())

	_, err = ParseDayKey("04.03.2024")
	assert.Error(t, err)
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2024, 3, 4, 0, 0, 1, 0, time.Local)
	night := time.Date(2024, 3, 4, 23, 59, 59, 0, time.Local)
	nextDay := time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local)

	assert.True(t, SameDay(morning, night))
	assert.False(t, SameDay(night, nextDay))
}

func TestAtMidnight(t *testing.T) {
	d := time.Date(2024, 3, 4, 18, 45, 12, 99, time.Local)
	midnight := AtMidnight(d)

	assert.True(t, SameDay(d, midnight))
	assert.Equal(t, 0, midnight.Hour())
	assert.Equal(t, 0, midnight.Minute())
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 30, m)

	_, _, err = ParseClock("9:30pm")
	assert.Error(t, err)
}

func TestValidWindow(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"normal window", "09:00", "10:00", true},
		{"one minute", "09:00", "09:01", true},
		{"equal", "09:00", "09:00", false},
		{"inverted", "10:00", "09:00", false},
		{"malformed start", "9am", "10:00", false},
		{"malformed end", "09:00", "25:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidWindow(tt.start, tt.end))
		})
	}
}
