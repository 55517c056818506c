package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpetrenko/lessonbook/internal/model"
)

func mondaySchedule() *model.Schedule {
	return &model.Schedule{
		ID:       1,
		SlotType: model.SlotTypeOneToOne,
		Capacity: 1,
		Price:    40,
		FromDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local),
		ToDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.Local),
		Days: []model.ScheduleDay{
			{Weekday: time.Monday, TimeWindows: []model.TimeWindow{{Start: "10:00", End: "11:00"}}},
		},
	}
}

func committed(date string) *model.BookedSlot {
	return &model.BookedSlot{ScheduleID: 1, ScheduledDate: date, Status: model.BookedSlotStatusCommitted}
}

func TestComputeMondaysWithOneBooked(t *testing.T) {
	schedule := mondaySchedule()
	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	booked := []*model.BookedSlot{committed("2024-03-11")}

	result := Compute(schedule, booked, today)

	assert.Equal(t, []string{"2024-03-04", "2024-03-18", "2024-03-25"}, result.Days)
	assert.False(t, result.Contains("2024-03-11"), "fully booked Monday must be excluded")
	assert.False(t, result.Contains("2024-03-05"), "Tuesday must never qualify")

	day := result.ByDay["2024-03-04"]
	assert.Equal(t, 1, day.TotalCapacity)
	assert.Equal(t, 0, day.Booked)
	assert.Equal(t, 1, day.Available)
	require.Len(t, day.TimeWindows, 1)
	assert.Equal(t, "10:00", day.TimeWindows[0].Start)
}

func TestComputeTodayIsEligible(t *testing.T) {
	schedule := mondaySchedule()
	// Today is Monday 2024-03-04, inside the range.
	today := time.Date(2024, 3, 4, 15, 30, 0, 0, time.Local)

	result := Compute(schedule, nil, today)

	assert.True(t, result.Contains("2024-03-04"), "today must never be treated as past")
	assert.False(t, result.Contains("2024-03-01"), "days before today are past")
}

func TestComputeEmptyDays(t *testing.T) {
	schedule := mondaySchedule()
	schedule.Days = nil

	result := Compute(schedule, nil, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local))

	assert.Empty(t, result.Days)
	assert.Empty(t, result.ByDay)
}

func TestComputeRangeAlreadyPast(t *testing.T) {
	schedule := mondaySchedule()
	today := time.Date(2024, 4, 15, 0, 0, 0, 0, time.Local)

	result := Compute(schedule, nil, today)

	assert.Empty(t, result.Days)
}

func TestComputeGroupCapacity(t *testing.T) {
	schedule := mondaySchedule()
	schedule.SlotType = model.SlotTypeGroup
	schedule.Capacity = 3
	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)

	booked := []*model.BookedSlot{
		committed("2024-03-04"),
		committed("2024-03-04"),
		committed("2024-03-11"),
		committed("2024-03-11"),
		committed("2024-03-11"),
	}

	result := Compute(schedule, booked, today)

	assert.True(t, result.Contains("2024-03-04"))
	assert.Equal(t, 1, result.ByDay["2024-03-04"].Available)
	assert.False(t, result.Contains("2024-03-11"), "day at capacity must be excluded")
}

func TestComputeIgnoresCancelled(t *testing.T) {
	schedule := mondaySchedule()
	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)

	cancelled := &model.BookedSlot{ScheduleID: 1, ScheduledDate: "2024-03-04", Status: model.BookedSlotStatusCancelled}
	result := Compute(schedule, []*model.BookedSlot{cancelled}, today)

	assert.True(t, result.Contains("2024-03-04"))
	assert.Equal(t, 0, result.ByDay["2024-03-04"].Booked)
}

func TestComputeProperties(t *testing.T) {
	schedule := mondaySchedule()
	schedule.SlotType = model.SlotTypeGroup
	schedule.Capacity = 2
	today := time.Date(2024, 3, 6, 0, 0, 0, 0, time.Local)
	booked := []*model.BookedSlot{committed("2024-03-11"), committed("2024-03-18")}

	result := Compute(schedule, booked, today)

	from := schedule.FromDate
	to := schedule.ToDate
	prev := ""
	for _, key := range result.Days {
		assert.Greater(t, key, prev, "days must be strictly ascending")
		prev = key

		d, err := time.ParseInLocation("2006-01-02", key, time.Local)
		require.NoError(t, err)
		assert.False(t, d.Before(from), "day before from_date: %s", key)
		assert.False(t, d.After(to), "day after to_date: %s", key)
		assert.NotNil(t, schedule.DayFor(d.Weekday()), "weekday not offered: %s", key)

		day := result.ByDay[key]
		assert.Less(t, day.Booked, day.TotalCapacity, "booked must stay below capacity: %s", key)
		assert.Equal(t, day.TotalCapacity-day.Booked, day.Available)
	}
}
