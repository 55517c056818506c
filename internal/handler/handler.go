package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vpetrenko/lessonbook/internal/handler/dto"
	"github.com/vpetrenko/lessonbook/internal/handoff"
	"github.com/vpetrenko/lessonbook/internal/model"
	"github.com/vpetrenko/lessonbook/internal/service"
)

type BookingSvc interface {
	GetSlotDetail(ctx context.Context, scheduleID int64) (*service.SlotDetail, error)
	MonthGrid(ctx context.Context, scheduleID int64, year int, month time.Month) ([]service.GridDay, error)
	CreateIntent(ctx context.Context, p service.CreateIntentParams) (*service.IntentResult, error)
	Confirm(ctx context.Context, p service.ConfirmParams) (*service.ConfirmResult, error)
	ResumeHandoff(ctx context.Context, token string) (*handoff.Payload, error)
	StudentBookings(ctx context.Context, studentID int64) ([]*model.BookedSlot, error)
	CancelBooking(ctx context.Context, id int64) error
}

type ScheduleSvc interface {
	Create(ctx context.Context, schedule *model.Schedule) error
	ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Schedule, error)
	Deactivate(ctx context.Context, id int64) error
}

type Handler struct {
	bookingService  BookingSvc
	scheduleService ScheduleSvc
}

func NewHandler(bookingService BookingSvc, scheduleService ScheduleSvc) *Handler {
	return &Handler{bookingService: bookingService, scheduleService: scheduleService}
}

// GetSchedule returns the schedule with daily available seats and the
// committed reservations for the requesting window.
func (h *Handler) GetSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid schedule id"})
		return
	}

	detail, err := h.bookingService.GetSlotDetail(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSlotDetailResponse(detail))
}

// GetCalendar returns the 42-cell month grid for a schedule.
func (h *Handler) GetCalendar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid schedule id"})
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid year"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid month"})
		return
	}

	grid, err := h.bookingService.MonthGrid(c.Request.Context(), id, year, time.Month(month))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cells": grid})
}

// CreateIntent validates the requested date, applies the loyalty discount
// and returns either a payment intent or a direct booking confirmation.
func (h *Handler) CreateIntent(c *gin.Context) {
	var req dto.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.bookingService.CreateIntent(c.Request.Context(), service.CreateIntentParams{
		ScheduleID:      req.ScheduleID,
		StudentID:       req.StudentID,
		ScheduledDate:   req.ScheduledDate,
		PointsRequested: req.PointsToUse,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	status := http.StatusOK
	if !result.RequiresPayment {
		status = http.StatusCreated
	}
	c.JSON(status, dto.ToIntentResponse(result))
}

// ConfirmBooking finalizes a paid reservation.
func (h *Handler) ConfirmBooking(c *gin.Context) {
	var req dto.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.bookingService.Confirm(c.Request.Context(), service.ConfirmParams{
		ScheduleID:      req.ScheduleID,
		ScheduledDate:   req.ScheduledDate,
		StudentID:       req.StudentID,
		PaymentIntentID: req.PaymentIntentID,
		HandoffToken:    req.HandoffToken,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	status := http.StatusCreated
	if !result.Committed {
		// money captured, seat pending reconciliation
		status = http.StatusOK
	}
	c.JSON(status, dto.ToConfirmResponse(result))
}

// CreateSchedule registers a teacher's recurring availability.
func (h *Handler) CreateSchedule(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	schedule, err := req.ToModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.scheduleService.Create(c.Request.Context(), schedule); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToScheduleResponse(schedule))
}

// GetTeacherSchedules lists all schedules of a teacher.
func (h *Handler) GetTeacherSchedules(c *gin.Context) {
	teacherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid teacher id"})
		return
	}

	schedules, err := h.scheduleService.ListByTeacher(c.Request.Context(), teacherID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]dto.ScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, dto.ToScheduleResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}

// DeactivateSchedule takes a schedule off the market.
func (h *Handler) DeactivateSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid schedule id"})
		return
	}

	if err := h.scheduleService.Deactivate(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStudentBookings lists a student's reservations, newest first.
func (h *Handler) GetStudentBookings(c *gin.Context) {
	studentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid student id"})
		return
	}

	slots, err := h.bookingService.StudentBookings(c.Request.Context(), studentID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]dto.BookedSlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, dto.ToBookedSlotResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// CancelBooking releases a committed seat.
func (h *Handler) CancelBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid booking id"})
		return
	}

	if err := h.bookingService.CancelBooking(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetHandoff restores the in-flight payment state for the confirmation
// page after a navigation or reload.
func (h *Handler) GetHandoff(c *gin.Context) {
	token := c.Param("token")

	payload, err := h.bookingService.ResumeHandoff(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, handoff.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
			return
		}
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToHandoffResponse(payload))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	c.Set("error", err.Error())

	var validationErr *model.ValidationError
	var conflictErr *model.AvailabilityConflictError
	var declinedErr *model.PaymentDeclinedError
	var indeterminateErr *model.PaymentIndeterminateError

	switch {
	case errors.Is(err, model.ErrScheduleNotFound),
		errors.Is(err, model.ErrStudentNotFound),
		errors.Is(err, model.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})

	case errors.Is(err, model.ErrInvalidSchedule):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})

	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})

	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})

	case errors.As(err, &declinedErr):
		c.JSON(http.StatusPaymentRequired, dto.ErrorResponse{Error: err.Error()})

	case errors.As(err, &indeterminateErr):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error(), Retryable: true})

	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}
