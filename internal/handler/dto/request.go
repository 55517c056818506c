package dto

import (
	"time"

	"github.com/vpetrenko/lessonbook/internal/dateutil"
	"github.com/vpetrenko/lessonbook/internal/model"
)

type ScheduleDayRequest struct {
	Weekday     int          `json:"weekday" binding:"min=0,max=6"`
	TimeWindows []TimeWindow `json:"time_windows" binding:"required,min=1"`
}

type CreateScheduleRequest struct {
	TeacherID int64                `json:"teacher_id" binding:"required"`
	Subject   string               `json:"subject" binding:"required"`
	SlotType  string               `json:"slot_type" binding:"required"`
	Capacity  int                  `json:"capacity"`
	Price     int64                `json:"price"`
	FromDate  string               `json:"from_date" binding:"required"`
	ToDate    string               `json:"to_date" binding:"required"`
	Days      []ScheduleDayRequest `json:"days" binding:"required,min=1"`
}

// ToModel converts the request, parsing the day-key bounds.
func (r CreateScheduleRequest) ToModel() (*model.Schedule, error) {
	from, err := dateutil.ParseDayKey(r.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := dateutil.ParseDayKey(r.ToDate)
	if err != nil {
		return nil, err
	}

	days := make([]model.ScheduleDay, 0, len(r.Days))
	for _, d := range r.Days {
		windows := make([]model.TimeWindow, 0, len(d.TimeWindows))
		for _, w := range d.TimeWindows {
			windows = append(windows, model.TimeWindow{Start: w.Start, End: w.End})
		}
		days = append(days, model.ScheduleDay{Weekday: time.Weekday(d.Weekday), TimeWindows: windows})
	}

	return &model.Schedule{
		TeacherID: r.TeacherID,
		Subject:   r.Subject,
		SlotType:  model.SlotType(r.SlotType),
		Capacity:  r.Capacity,
		Price:     r.Price,
		FromDate:  from,
		ToDate:    to,
		Days:      days,
		IsActive:  true,
	}, nil
}

type CreateIntentRequest struct {
	ScheduleID    int64  `json:"schedule_id" binding:"required"`
	ScheduledDate string `json:"scheduled_date" binding:"required"`
	StudentID     int64  `json:"student_id" binding:"required"`
	PointsToUse   int64  `json:"points_to_use"`
}

type ConfirmBookingRequest struct {
	ScheduleID      int64  `json:"schedule_id" binding:"required"`
	ScheduledDate   string `json:"scheduled_date" binding:"required"`
	StudentID       int64  `json:"student_id" binding:"required"`
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	HandoffToken    string `json:"handoff_token"`
}
