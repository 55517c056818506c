package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vpetrenko/lessonbook/internal/availability"
	"github.com/vpetrenko/lessonbook/internal/handler/dto"
	"github.com/vpetrenko/lessonbook/internal/handoff"
	"github.com/vpetrenko/lessonbook/internal/model"
	"github.com/vpetrenko/lessonbook/internal/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockBookingSvc struct {
	detail        *service.SlotDetail
	detailErr     error
	grid          []service.GridDay
	gridErr       error
	intentResult  *service.IntentResult
	intentErr     error
	confirmResult *service.ConfirmResult
	confirmErr    error

	handoffPayload *handoff.Payload
	handoffErr     error
	studentSlots   []*model.BookedSlot
	studentErr     error
	cancelErr      error

	lastIntentParams  service.CreateIntentParams
	lastConfirmParams service.ConfirmParams
	lastCancelID      int64
}

func (m *mockBookingSvc) GetSlotDetail(ctx context.Context, scheduleID int64) (*service.SlotDetail, error) {
	return m.detail, m.detailErr
}

func (m *mockBookingSvc) MonthGrid(ctx context.Context, scheduleID int64, year int, month time.Month) ([]service.GridDay, error) {
	return m.grid, m.gridErr
}

func (m *mockBookingSvc) CreateIntent(ctx context.Context, p service.CreateIntentParams) (*service.IntentResult, error) {
	m.lastIntentParams = p
	return m.intentResult, m.intentErr
}

func (m *mockBookingSvc) Confirm(ctx context.Context, p service.ConfirmParams) (*service.ConfirmResult, error) {
	m.lastConfirmParams = p
	return m.confirmResult, m.confirmErr
}

func (m *mockBookingSvc) ResumeHandoff(ctx context.Context, token string) (*handoff.Payload, error) {
	return m.handoffPayload, m.handoffErr
}

func (m *mockBookingSvc) StudentBookings(ctx context.Context, studentID int64) ([]*model.BookedSlot, error) {
	return m.studentSlots, m.studentErr
}

func (m *mockBookingSvc) CancelBooking(ctx context.Context, id int64) error {
	m.lastCancelID = id
	return m.cancelErr
}

type mockScheduleSvc struct {
	createErr error
	schedules []*model.Schedule
	listErr   error
	deactErr  error

	lastCreated *model.Schedule
}

func (m *mockScheduleSvc) Create(ctx context.Context, schedule *model.Schedule) error {
	m.lastCreated = schedule
	schedule.ID = 42
	return m.createErr
}

func (m *mockScheduleSvc) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Schedule, error) {
	return m.schedules, m.listErr
}

func (m *mockScheduleSvc) Deactivate(ctx context.Context, id int64) error {
	return m.deactErr
}

func setupRouter(svc *mockBookingSvc) *gin.Engine {
	return InitRouter(gin.TestMode, zap.NewNop(), NewHandler(svc, &mockScheduleSvc{}))
}

func setupScheduleRouter(svc *mockScheduleSvc) *gin.Engine {
	return InitRouter(gin.TestMode, zap.NewNop(), NewHandler(&mockBookingSvc{}, svc))
}

func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sampleDetail() *service.SlotDetail {
	return &service.SlotDetail{
		Schedule: &model.Schedule{
			ID:        7,
			TeacherID: 3,
			Subject:   "Algebra",
			SlotType:  model.SlotTypeGroup,
			Capacity:  5,
			Price:     40,
			FromDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local),
			ToDate:    time.Date(2026, 3, 31, 0, 0, 0, 0, time.Local),
			IsActive:  true,
			Days: []model.ScheduleDay{
				{Weekday: time.Monday, TimeWindows: []model.TimeWindow{{Start: "10:00", End: "11:00"}}},
			},
		},
		Availability: &availability.Result{
			Days: []string{"2026-03-02", "2026-03-09"},
			ByDay: map[string]availability.DayAvailability{
				"2026-03-02": {TotalCapacity: 5, Booked: 2, Available: 3},
				"2026-03-09": {TotalCapacity: 5, Booked: 0, Available: 5},
			},
		},
		BookedSlots: []*model.BookedSlot{
			{ID: 1, ScheduleID: 7, ScheduledDate: "2026-03-02", StudentID: 11, Status: model.BookedSlotStatusCommitted},
			{ID: 2, ScheduleID: 7, ScheduledDate: "2026-03-02", StudentID: 12, Status: model.BookedSlotStatusCommitted},
		},
	}
}

func TestGetSchedule(t *testing.T) {
	router := setupRouter(&mockBookingSvc{detail: sampleDetail()})

	w := performRequest(router, http.MethodGet, "/api/schedules/7", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.SlotDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.Schedule.ID)
	assert.Equal(t, []string{"2026-03-02", "2026-03-09"}, resp.BookableDates)
	assert.Equal(t, 3, resp.DailyAvailableSeats["2026-03-02"].Available)
	assert.Len(t, resp.BookedSlots, 2)
}

func TestGetScheduleNotFound(t *testing.T) {
	router := setupRouter(&mockBookingSvc{detailErr: model.ErrScheduleNotFound})

	w := performRequest(router, http.MethodGet, "/api/schedules/404", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetScheduleBadID(t *testing.T) {
	router := setupRouter(&mockBookingSvc{})

	w := performRequest(router, http.MethodGet, "/api/schedules/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCalendar(t *testing.T) {
	grid := make([]service.GridDay, availability.GridCells)
	for i := range grid {
		grid[i] = service.GridDay{Date: "2026-03-01", IsCurrentMonth: true}
	}
	router := setupRouter(&mockBookingSvc{grid: grid})

	w := performRequest(router, http.MethodGet, "/api/schedules/7/calendar?year=2026&month=3", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Cells []service.GridDay `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Cells, availability.GridCells)
}

func TestGetCalendarInvalidMonth(t *testing.T) {
	router := setupRouter(&mockBookingSvc{})

	w := performRequest(router, http.MethodGet, "/api/schedules/7/calendar?year=2026&month=13", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIntentRequiresPayment(t *testing.T) {
	svc := &mockBookingSvc{
		intentResult: &service.IntentResult{
			RequiresPayment: true,
			Intent: &model.BookingIntent{
				FinalAmount:      15,
				PointsApplied:    25,
				ClientSecret:     "pi_1_secret",
				PaymentReference: "pi_1",
			},
			HandoffToken: "token-1",
		},
	}
	router := setupRouter(svc)

	w := performRequest(router, http.MethodPost, "/api/bookings/intent", dto.CreateIntentRequest{
		ScheduleID:    7,
		ScheduledDate: "2026-03-02",
		StudentID:     10,
		PointsToUse:   30,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(30), svc.lastIntentParams.PointsRequested)

	var resp dto.IntentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.RequiresPayment)
	assert.Equal(t, int64(15), resp.Amount)
	assert.Equal(t, int64(25), resp.PointsApplied)
	assert.Equal(t, "pi_1_secret", resp.ClientSecret)
	assert.Equal(t, "token-1", resp.HandoffToken)
}

func TestCreateIntentFullDiscount(t *testing.T) {
	svc := &mockBookingSvc{
		intentResult: &service.IntentResult{
			RequiresPayment: false,
			Intent:          &model.BookingIntent{FinalAmount: 0, PointsApplied: 40},
			Booked: &model.BookedSlot{
				ID:            5,
				ScheduleID:    7,
				ScheduledDate: "2026-03-02",
				StudentID:     10,
				Status:        model.BookedSlotStatusCommitted,
			},
		},
	}
	router := setupRouter(svc)

	w := performRequest(router, http.MethodPost, "/api/bookings/intent", dto.CreateIntentRequest{
		ScheduleID:    7,
		ScheduledDate: "2026-03-02",
		StudentID:     10,
		PointsToUse:   40,
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.IntentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.RequiresPayment)
	assert.Equal(t, int64(0), resp.Amount)
	require.NotNil(t, resp.Slot)
	assert.Equal(t, "committed", resp.Slot.Status)
}

func TestCreateIntentMissingFields(t *testing.T) {
	router := setupRouter(&mockBookingSvc{})

	w := performRequest(router, http.MethodPost, "/api/bookings/intent", gin.H{"schedule_id": 7})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIntentUnavailableDate(t *testing.T) {
	router := setupRouter(&mockBookingSvc{
		intentErr: &model.ValidationError{ScheduleID: 7, Date: "2026-03-03", Reason: "date is not available for booking"},
	})

	w := performRequest(router, http.MethodPost, "/api/bookings/intent", dto.CreateIntentRequest{
		ScheduleID:    7,
		ScheduledDate: "2026-03-03",
		StudentID:     10,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmBookingCommitted(t *testing.T) {
	svc := &mockBookingSvc{
		confirmResult: &service.ConfirmResult{
			Committed: true,
			Booked: &model.BookedSlot{
				ID:            9,
				ScheduleID:    7,
				ScheduledDate: "2026-03-02",
				StudentID:     10,
				Status:        model.BookedSlotStatusCommitted,
			},
		},
	}
	router := setupRouter(svc)

	w := performRequest(router, http.MethodPost, "/api/bookings/confirm", dto.ConfirmBookingRequest{
		ScheduleID:      7,
		ScheduledDate:   "2026-03-02",
		StudentID:       10,
		PaymentIntentID: "pi_1",
		HandoffToken:    "token-1",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pi_1", svc.lastConfirmParams.PaymentIntentID)

	var resp dto.ConfirmResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "committed", resp.Status)
	require.NotNil(t, resp.Booking)
	assert.Equal(t, int64(9), resp.Booking.ID)
}

func TestConfirmBookingReconciliation(t *testing.T) {
	router := setupRouter(&mockBookingSvc{
		confirmResult: &service.ConfirmResult{Committed: false, ReconciliationNeeded: true},
	})

	w := performRequest(router, http.MethodPost, "/api/bookings/confirm", dto.ConfirmBookingRequest{
		ScheduleID:      7,
		ScheduledDate:   "2026-03-02",
		StudentID:       10,
		PaymentIntentID: "pi_1",
	})

	// Money moved: the client still sees success.
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ConfirmResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp.Status)
	assert.Nil(t, resp.Booking)
}

func TestConfirmBookingConflict(t *testing.T) {
	router := setupRouter(&mockBookingSvc{
		confirmErr: &model.AvailabilityConflictError{ScheduleID: 7, Date: "2026-03-02"},
	})

	w := performRequest(router, http.MethodPost, "/api/bookings/confirm", dto.ConfirmBookingRequest{
		ScheduleID:      7,
		ScheduledDate:   "2026-03-02",
		StudentID:       10,
		PaymentIntentID: "pi_1",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConfirmBookingDeclined(t *testing.T) {
	router := setupRouter(&mockBookingSvc{
		confirmErr: &model.PaymentDeclinedError{Reference: "pi_1", Reason: "insufficient funds"},
	})

	w := performRequest(router, http.MethodPost, "/api/bookings/confirm", dto.ConfirmBookingRequest{
		ScheduleID:      7,
		ScheduledDate:   "2026-03-02",
		StudentID:       10,
		PaymentIntentID: "pi_1",
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestConfirmBookingIndeterminateIsRetryable(t *testing.T) {
	router := setupRouter(&mockBookingSvc{
		confirmErr: &model.PaymentIndeterminateError{Reference: "pi_1", Err: errors.New("connection reset")},
	})

	w := performRequest(router, http.MethodPost, "/api/bookings/confirm", dto.ConfirmBookingRequest{
		ScheduleID:      7,
		ScheduledDate:   "2026-03-02",
		StudentID:       10,
		PaymentIntentID: "pi_1",
	})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Retryable)
}

func TestGetHandoff(t *testing.T) {
	router := setupRouter(&mockBookingSvc{
		handoffPayload: &handoff.Payload{
			ScheduleID:    7,
			ScheduledDate: "2026-03-02",
			StudentID:     10,
			ClientSecret:  "pi_1_secret",
			Amount:        15,
			PointsToUse:   25,
			PaymentRef:    "pi_1",
		},
	})

	w := performRequest(router, http.MethodGet, "/api/bookings/handoff/token-1", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.HandoffResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pi_1_secret", resp.ClientSecret)
	assert.Equal(t, "pi_1", resp.PaymentIntentID)
	assert.Equal(t, int64(15), resp.Amount)
}

func TestGetHandoffExpired(t *testing.T) {
	router := setupRouter(&mockBookingSvc{handoffErr: handoff.ErrNotFound})

	w := performRequest(router, http.MethodGet, "/api/bookings/handoff/gone", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSchedule(t *testing.T) {
	svc := &mockScheduleSvc{}
	router := setupScheduleRouter(svc)

	w := performRequest(router, http.MethodPost, "/api/schedules", dto.CreateScheduleRequest{
		TeacherID: 3,
		Subject:   "Algebra",
		SlotType:  "group",
		Capacity:  5,
		Price:     40,
		FromDate:  "2026-03-01",
		ToDate:    "2026-03-31",
		Days: []dto.ScheduleDayRequest{
			{Weekday: 1, TimeWindows: []dto.TimeWindow{{Start: "10:00", End: "11:00"}}},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.lastCreated)
	assert.Equal(t, "Algebra", svc.lastCreated.Subject)
	assert.True(t, svc.lastCreated.IsActive)

	var resp dto.ScheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, "2026-03-01", resp.FromDate)
}

func TestCreateScheduleInvalidDefinition(t *testing.T) {
	router := setupScheduleRouter(&mockScheduleSvc{
		createErr: fmt.Errorf("%w: to_date before from_date", model.ErrInvalidSchedule),
	})

	w := performRequest(router, http.MethodPost, "/api/schedules", dto.CreateScheduleRequest{
		TeacherID: 3,
		Subject:   "Algebra",
		SlotType:  "group",
		Capacity:  5,
		FromDate:  "2026-03-31",
		ToDate:    "2026-03-01",
		Days: []dto.ScheduleDayRequest{
			{Weekday: 1, TimeWindows: []dto.TimeWindow{{Start: "10:00", End: "11:00"}}},
		},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTeacherSchedules(t *testing.T) {
	router := setupScheduleRouter(&mockScheduleSvc{
		schedules: []*model.Schedule{sampleDetail().Schedule},
	})

	w := performRequest(router, http.MethodGet, "/api/teachers/3/schedules", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Schedules []dto.ScheduleResponse `json:"schedules"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Schedules, 1)
	assert.Equal(t, int64(7), resp.Schedules[0].ID)
}

func TestDeactivateSchedule(t *testing.T) {
	router := setupScheduleRouter(&mockScheduleSvc{})

	w := performRequest(router, http.MethodDelete, "/api/schedules/7", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeactivateScheduleNotFound(t *testing.T) {
	router := setupScheduleRouter(&mockScheduleSvc{deactErr: model.ErrScheduleNotFound})

	w := performRequest(router, http.MethodDelete, "/api/schedules/404", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStudentBookings(t *testing.T) {
	router := setupRouter(&mockBookingSvc{
		studentSlots: []*model.BookedSlot{
			{ID: 1, ScheduleID: 7, ScheduledDate: "2026-03-02", StudentID: 10, Status: model.BookedSlotStatusCommitted},
		},
	})

	w := performRequest(router, http.MethodGet, "/api/students/10/bookings", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bookings []dto.BookedSlotResponse `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, int64(10), resp.Bookings[0].StudentID)
}

func TestCancelBooking(t *testing.T) {
	svc := &mockBookingSvc{}
	router := setupRouter(svc)

	w := performRequest(router, http.MethodPost, "/api/bookings/9/cancel", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(9), svc.lastCancelID)
}

func TestCancelBookingNotFound(t *testing.T) {
	router := setupRouter(&mockBookingSvc{cancelErr: model.ErrBookingNotFound})

	w := performRequest(router, http.MethodPost, "/api/bookings/404/cancel", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestLoggerRecordsDomainError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := InitRouter(gin.TestMode, zap.New(core),
		NewHandler(&mockBookingSvc{detailErr: model.ErrScheduleNotFound}, &mockScheduleSvc{}))

	w := performRequest(router, http.MethodGet, "/api/schedules/404", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	entries := logs.FilterField(zap.String("error", model.ErrScheduleNotFound.Error())).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "request", entries[0].Message)
}

func TestHealthEndpoint(t *testing.T) {
	router := setupRouter(&mockBookingSvc{})

	w := performRequest(router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}
