// Package availability expands a recurring schedule into concrete bookable
// calendar days net of committed reservations. The result is a read
// snapshot: it is advisory only and is re-checked at commit time.
package availability

import (
	"time"

	"github.com/vpetrenko/lessonbook/internal/dateutil"
	"github.com/vpetrenko/lessonbook/internal/model"
)

// DayAvailability describes one bookable day of a schedule.
type DayAvailability struct {
	TotalCapacity int                `json:"total_capacity"`
	Booked        int                `json:"booked"`
	Available     int                `json:"available"`
	TimeWindows   []model.TimeWindow `json:"time_windows"`
}

// Result is the expansion of one schedule: qualifying day keys in
// ascending order plus the per-day map.
type Result struct {
	Days  []string
	ByDay map[string]DayAvailability
}

// Contains reports whether the day key qualifies for booking.
func (r *Result) Contains(dayKey string) bool {
	_, ok := r.ByDay[dayKey]
	return ok
}

// Compute walks every calendar day from max(from_date, today) through
// to_date inclusive, keeps days whose weekday the schedule offers and
// which still have seats, and attaches the configured time windows.
// Today itself is always eligible. Fully booked days are dropped.
func Compute(schedule *model.Schedule, booked []*model.BookedSlot, today time.Time) *Result {
	result := &Result{ByDay: make(map[string]DayAvailability)}
	if len(schedule.Days) == 0 {
		return result
	}

	bookedByDay := countCommitted(booked)
	capacity := schedule.EffectiveCapacity()

	start := dateutil.AtMidnight(schedule.FromDate)
	if t := dateutil.AtMidnight(today); t.After(start) {
		start = t
	}
	end := dateutil.AtMidnight(schedule.ToDate)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := schedule.DayFor(d.Weekday())
		if day == nil {
			continue
		}

		key := dateutil.DayKey(d)
		count := bookedByDay[key]
		if count >= capacity {
			continue
		}

		result.Days = append(result.Days, key)
		result.ByDay[key] = DayAvailability{
			TotalCapacity: capacity,
			Booked:        count,
			Available:     capacity - count,
			TimeWindows:   day.TimeWindows,
		}
	}

	return result
}

// countCommitted counts non-cancelled reservations per day key.
func countCommitted(booked []*model.BookedSlot) map[string]int {
	counts := make(map[string]int, len(booked))
	for _, b := range booked {
		if b.IsCommitted() {
			counts[b.ScheduledDate]++
		}
	}
	return counts
}
