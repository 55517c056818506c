package model

import (
	"time"
)

// SlotType defines how seats on a schedule occurrence are counted.
type SlotType string

const (
	SlotTypeOneToOne SlotType = "one_to_one"
	SlotTypeGroup    SlotType = "group"
	SlotTypeInPerson SlotType = "in_person"
)

// TimeWindow is a bookable interval within a day, "HH:MM" 24-hour.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ScheduleDay lists the time windows offered on one weekday.
// Weekday follows time.Weekday: 0 = Sunday, 6 = Saturday.
type ScheduleDay struct {
	Weekday     time.Weekday `json:"weekday"`
	TimeWindows []TimeWindow `json:"time_windows"`
}

// Schedule is a teacher's recurring weekly availability over a bounded
// date range. FromDate and ToDate are inclusive calendar-day bounds.
type Schedule struct {
	ID        int64         `json:"id"`
	TeacherID int64         `json:"teacher_id"`
	Subject   string        `json:"subject"`
	SlotType  SlotType      `json:"slot_type"`
	Capacity  int           `json:"capacity"` // seats per occurrence
	Price     int64         `json:"price"`    // whole currency units
	FromDate  time.Time     `json:"from_date"`
	ToDate    time.Time     `json:"to_date"`
	Days      []ScheduleDay `json:"days"`
	IsActive  bool          `json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// EffectiveCapacity returns the seat count that gates bookings.
// One-to-one schedules always hold a single seat regardless of the
// stored capacity column.
func (s *Schedule) EffectiveCapacity() int {
	switch s.SlotType {
	case SlotTypeOneToOne:
		return 1
	case SlotTypeGroup, SlotTypeInPerson:
		if s.Capacity < 1 {
			return 1
		}
		return s.Capacity
	default:
		return 1
	}
}

// DayFor returns the ScheduleDay matching the weekday, or nil.
func (s *Schedule) DayFor(weekday time.Weekday) *ScheduleDay {
	for i := range s.Days {
		if s.Days[i].Weekday == weekday {
			return &s.Days[i]
		}
	}
	return nil
}
