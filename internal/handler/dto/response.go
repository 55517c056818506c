package dto

import (
	"github.com/vpetrenko/lessonbook/internal/dateutil"
	"github.com/vpetrenko/lessonbook/internal/handoff"
	"github.com/vpetrenko/lessonbook/internal/model"
	"github.com/vpetrenko/lessonbook/internal/service"
)

// TimeWindow is the wire shape of one bookable interval, shared by
// requests and responses.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ScheduleDayResponse struct {
	Weekday     int          `json:"weekday"`
	TimeWindows []TimeWindow `json:"time_windows"`
}

type ScheduleResponse struct {
	ID        int64                 `json:"id"`
	TeacherID int64                 `json:"teacher_id"`
	Subject   string                `json:"subject"`
	SlotType  string                `json:"slot_type"`
	Capacity  int                   `json:"capacity"`
	Price     int64                 `json:"price"`
	FromDate  string                `json:"from_date"`
	ToDate    string                `json:"to_date"`
	Days      []ScheduleDayResponse `json:"days"`
	IsActive  bool                  `json:"is_active"`
}

type SeatInfo struct {
	Available int `json:"available"`
	Booked    int `json:"booked"`
}

type BookedSlotResponse struct {
	ID            int64  `json:"id"`
	ScheduleID    int64  `json:"schedule_id"`
	ScheduledDate string `json:"scheduled_date"`
	StudentID     int64  `json:"student_id"`
	Status        string `json:"status"`
}

type SlotDetailResponse struct {
	Schedule            ScheduleResponse     `json:"schedule"`
	BookableDates       []string             `json:"bookable_dates"`
	DailyAvailableSeats map[string]SeatInfo  `json:"daily_available_seats"`
	BookedSlots         []BookedSlotResponse `json:"booked_slots"`
}

type IntentResponse struct {
	RequiresPayment bool                `json:"requires_payment"`
	Amount          int64               `json:"amount"`
	PointsApplied   int64               `json:"points_applied"`
	ClientSecret    string              `json:"client_secret,omitempty"`
	PaymentIntentID string              `json:"payment_intent_id,omitempty"`
	HandoffToken    string              `json:"handoff_token,omitempty"`
	Slot            *BookedSlotResponse `json:"slot,omitempty"`
	Message         string              `json:"message,omitempty"`
}

type ConfirmResponse struct {
	Status  string              `json:"status"`
	Booking *BookedSlotResponse `json:"booking,omitempty"`
}

type HandoffResponse struct {
	ScheduleID      int64  `json:"schedule_id"`
	ScheduledDate   string `json:"scheduled_date"`
	StudentID       int64  `json:"student_id"`
	ClientSecret    string `json:"client_secret"`
	Amount          int64  `json:"amount"`
	PointsToUse     int64  `json:"points_to_use"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func ToScheduleResponse(s *model.Schedule) ScheduleResponse {
	days := make([]ScheduleDayResponse, 0, len(s.Days))
	for _, d := range s.Days {
		windows := make([]TimeWindow, 0, len(d.TimeWindows))
		for _, w := range d.TimeWindows {
			windows = append(windows, TimeWindow{Start: w.Start, End: w.End})
		}
		days = append(days, ScheduleDayResponse{Weekday: int(d.Weekday), TimeWindows: windows})
	}

	return ScheduleResponse{
		ID:        s.ID,
		TeacherID: s.TeacherID,
		Subject:   s.Subject,
		SlotType:  string(s.SlotType),
		Capacity:  s.EffectiveCapacity(),
		Price:     s.Price,
		FromDate:  dateutil.DayKey(s.FromDate),
		ToDate:    dateutil.DayKey(s.ToDate),
		Days:      days,
		IsActive:  s.IsActive,
	}
}

func ToBookedSlotResponse(b *model.BookedSlot) BookedSlotResponse {
	return BookedSlotResponse{
		ID:            b.ID,
		ScheduleID:    b.ScheduleID,
		ScheduledDate: b.ScheduledDate,
		StudentID:     b.StudentID,
		Status:        string(b.Status),
	}
}

func ToSlotDetailResponse(d *service.SlotDetail) SlotDetailResponse {
	seats := make(map[string]SeatInfo, len(d.Availability.ByDay))
	for day, a := range d.Availability.ByDay {
		seats[day] = SeatInfo{Available: a.Available, Booked: a.Booked}
	}

	booked := make([]BookedSlotResponse, 0, len(d.BookedSlots))
	for _, b := range d.BookedSlots {
		booked = append(booked, ToBookedSlotResponse(b))
	}

	return SlotDetailResponse{
		Schedule:            ToScheduleResponse(d.Schedule),
		BookableDates:       d.Availability.Days,
		DailyAvailableSeats: seats,
		BookedSlots:         booked,
	}
}

func ToIntentResponse(r *service.IntentResult) IntentResponse {
	resp := IntentResponse{
		RequiresPayment: r.RequiresPayment,
		Amount:          r.Intent.FinalAmount,
		PointsApplied:   r.Intent.PointsApplied,
	}

	if r.RequiresPayment {
		resp.ClientSecret = r.Intent.ClientSecret
		resp.PaymentIntentID = r.Intent.PaymentReference
		resp.HandoffToken = r.HandoffToken
		return resp
	}

	resp.Message = "booking confirmed, no payment required"
	if r.Booked != nil {
		slot := ToBookedSlotResponse(r.Booked)
		resp.Slot = &slot
	}
	return resp
}

func ToHandoffResponse(p *handoff.Payload) HandoffResponse {
	return HandoffResponse{
		ScheduleID:      p.ScheduleID,
		ScheduledDate:   p.ScheduledDate,
		StudentID:       p.StudentID,
		ClientSecret:    p.ClientSecret,
		Amount:          p.Amount,
		PointsToUse:     p.PointsToUse,
		PaymentIntentID: p.PaymentRef,
	}
}

func ToConfirmResponse(r *service.ConfirmResult) ConfirmResponse {
	if r.Committed {
		booking := ToBookedSlotResponse(r.Booked)
		return ConfirmResponse{Status: "committed", Booking: &booking}
	}
	// Payment captured, seat write pending reconciliation. Still success
	// from the student's point of view.
	return ConfirmResponse{Status: "confirmed"}
}
