package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vpetrenko/lessonbook/internal/availability"
	"github.com/vpetrenko/lessonbook/internal/dateutil"
	"github.com/vpetrenko/lessonbook/internal/handoff"
	"github.com/vpetrenko/lessonbook/internal/metrics"
	"github.com/vpetrenko/lessonbook/internal/model"
	"github.com/vpetrenko/lessonbook/internal/payment"
	"github.com/vpetrenko/lessonbook/internal/repository"
	"go.uber.org/zap"
)

type ScheduleStore interface {
	GetByID(ctx context.Context, id int64) (*model.Schedule, error)
}

type SlotStore interface {
	Commit(ctx context.Context, p repository.CommitParams) (*model.BookedSlot, error)
	GetByScheduleID(ctx context.Context, scheduleID int64) ([]*model.BookedSlot, error)
	GetByStudentID(ctx context.Context, studentID int64) ([]*model.BookedSlot, error)
	Cancel(ctx context.Context, id int64) (*model.BookedSlot, error)
}

type PointsStore interface {
	Balance(ctx context.Context, studentID int64) (int64, error)
	Grant(ctx context.Context, studentID, points int64) error
}

type HandoffStore interface {
	Put(ctx context.Context, payload handoff.Payload) (string, error)
	Get(ctx context.Context, token string) (*handoff.Payload, error)
	Clear(ctx context.Context, token string) error
}

type BookingService struct {
	scheduleStore ScheduleStore
	slotStore     SlotStore
	pointsStore   PointsStore
	processor     payment.Processor
	handoffStore  HandoffStore
	logger        *zap.Logger
}

func NewBookingService(
	scheduleStore ScheduleStore,
	slotStore SlotStore,
	pointsStore PointsStore,
	processor payment.Processor,
	handoffStore HandoffStore,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		scheduleStore: scheduleStore,
		slotStore:     slotStore,
		pointsStore:   pointsStore,
		processor:     processor,
		handoffStore:  handoffStore,
		logger:        logger,
	}
}

// SlotDetail is the schedule with its current availability snapshot.
type SlotDetail struct {
	Schedule     *model.Schedule
	Availability *availability.Result
	BookedSlots  []*model.BookedSlot
}

// GetSlotDetail returns a schedule with per-day available seats and the
// committed reservations for the requesting window.
func (s *BookingService) GetSlotDetail(ctx context.Context, scheduleID int64) (*SlotDetail, error) {
	schedule, err := s.scheduleStore.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if schedule == nil {
		return nil, model.ErrScheduleNotFound
	}

	booked, err := s.slotStore.GetByScheduleID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("get booked slots: %w", err)
	}

	return &SlotDetail{
		Schedule:     schedule,
		Availability: availability.Compute(schedule, booked, dateutil.Today()),
		BookedSlots:  booked,
	}, nil
}

// GridDay is one presentation cell of the month view.
type GridDay struct {
	Date           string `json:"date"`
	IsCurrentMonth bool   `json:"is_current_month"`
	Bookable       bool   `json:"bookable"`
}

// MonthGrid returns the fixed 42-cell grid for a month with the bookable
// days of the schedule flagged.
func (s *BookingService) MonthGrid(ctx context.Context, scheduleID int64, year int, month time.Month) ([]GridDay, error) {
	detail, err := s.GetSlotDetail(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	cells := availability.BuildGrid(year, month)
	days := make([]GridDay, len(cells))
	for i, cell := range cells {
		key := dateutil.DayKey(cell.Date)
		days[i] = GridDay{
			Date:           key,
			IsCurrentMonth: cell.IsCurrentMonth,
			Bookable:       detail.Availability.Contains(key),
		}
	}
	return days, nil
}

type CreateIntentParams struct {
	ScheduleID      int64
	StudentID       int64
	ScheduledDate   string // "YYYY-MM-DD"
	PointsRequested int64
}

// IntentResult is the outcome of CreateIntent. When the discount covers
// the full price no processor round trip happens and the reservation is
// committed immediately; Booked is set and RequiresPayment is false.
type IntentResult struct {
	RequiresPayment bool
	Intent          *model.BookingIntent
	HandoffToken    string
	Booked          *model.BookedSlot
}

// CreateIntent validates the requested date against the availability
// expansion, applies the loyalty discount and asks the processor for an
// authorization. No seat is held: availability is re-checked at commit.
func (s *BookingService) CreateIntent(ctx context.Context, p CreateIntentParams) (*IntentResult, error) {
	schedule, err := s.scheduleStore.GetByID(ctx, p.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if schedule == nil {
		return nil, model.ErrScheduleNotFound
	}
	if !schedule.IsActive {
		return nil, &model.ValidationError{ScheduleID: p.ScheduleID, Date: p.ScheduledDate, Reason: "schedule is not active"}
	}
	if _, err := dateutil.ParseDayKey(p.ScheduledDate); err != nil {
		return nil, &model.ValidationError{ScheduleID: p.ScheduleID, Date: p.ScheduledDate, Reason: "malformed date, expected YYYY-MM-DD"}
	}
	if p.PointsRequested < 0 {
		return nil, &model.ValidationError{ScheduleID: p.ScheduleID, Date: p.ScheduledDate, Reason: "points_to_use must not be negative"}
	}

	booked, err := s.slotStore.GetByScheduleID(ctx, p.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("get booked slots: %w", err)
	}

	avail := availability.Compute(schedule, booked, dateutil.Today())
	if !avail.Contains(p.ScheduledDate) {
		return nil, &model.ValidationError{
			ScheduleID: p.ScheduleID,
			Date:       p.ScheduledDate,
			Reason:     "date is not available for booking",
		}
	}

	balance, err := s.pointsStore.Balance(ctx, p.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get point balance: %w", err)
	}

	pointsApplied := applyPointsRule(p.PointsRequested, schedule.Price, balance)
	finalAmount := schedule.Price - pointsApplied
	if finalAmount < 0 {
		finalAmount = 0
	}

	intent := &model.BookingIntent{
		ScheduleID:      p.ScheduleID,
		ScheduledDate:   p.ScheduledDate,
		StudentID:       p.StudentID,
		BasePrice:       schedule.Price,
		PointsRequested: p.PointsRequested,
		PointsApplied:   pointsApplied,
		FinalAmount:     finalAmount,
		Status:          model.IntentStatusCreated,
		CreatedAt:       time.Now(),
	}

	if !intent.RequiresPayment() {
		return s.commitWithoutPayment(ctx, intent)
	}

	processorIntent, err := s.processor.CreateIntent(ctx, finalAmount, map[string]string{
		"schedule_id":    strconv.FormatInt(p.ScheduleID, 10),
		"scheduled_date": p.ScheduledDate,
		"student_id":     strconv.FormatInt(p.StudentID, 10),
		"points_applied": strconv.FormatInt(pointsApplied, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	intent.PaymentReference = processorIntent.ID
	intent.ClientSecret = processorIntent.ClientSecret
	intent.Status = model.IntentStatusAuthorizing

	token, err := s.handoffStore.Put(ctx, handoff.Payload{
		ScheduleID:    p.ScheduleID,
		ScheduledDate: p.ScheduledDate,
		StudentID:     p.StudentID,
		ClientSecret:  processorIntent.ClientSecret,
		Amount:        finalAmount,
		PointsToUse:   pointsApplied,
		PaymentRef:    processorIntent.ID,
	})
	if err != nil {
		// The intent stays confirmable by its reference; losing the handoff
		// only degrades the cross-page experience.
		s.logger.Warn("failed to store payment handoff",
			zap.Int64("schedule_id", p.ScheduleID),
			zap.String("payment_ref", processorIntent.ID),
			zap.Error(err))
		token = ""
	}

	s.logger.Info("booking intent created",
		zap.Int64("schedule_id", p.ScheduleID),
		zap.String("scheduled_date", p.ScheduledDate),
		zap.Int64("student_id", p.StudentID),
		zap.Int64("points_applied", pointsApplied),
		zap.Int64("final_amount", finalAmount),
		zap.String("payment_ref", processorIntent.ID),
	)

	return &IntentResult{RequiresPayment: true, Intent: intent, HandoffToken: token}, nil
}

// commitWithoutPayment finalizes a fully discounted booking. No money
// moves, so a commit failure here is an ordinary error, not a
// reconciliation case.
func (s *BookingService) commitWithoutPayment(ctx context.Context, intent *model.BookingIntent) (*IntentResult, error) {
	intent.PaymentReference = "free_" + uuid.NewString()
	intent.Status = model.IntentStatusAuthorized

	slot, err := s.slotStore.Commit(ctx, repository.CommitParams{
		ScheduleID:       intent.ScheduleID,
		ScheduledDate:    intent.ScheduledDate,
		StudentID:        intent.StudentID,
		PaymentReference: intent.PaymentReference,
		PointsApplied:    intent.PointsApplied,
		AmountPaid:       0,
	})
	if err != nil {
		var conflict *model.AvailabilityConflictError
		if errors.As(err, &conflict) {
			metrics.AvailabilityConflicts.Inc()
		}
		return nil, err
	}

	metrics.BookingsCommitted.Inc()
	s.logger.Info("booking committed without payment",
		zap.Int64("schedule_id", intent.ScheduleID),
		zap.String("scheduled_date", intent.ScheduledDate),
		zap.Int64("student_id", intent.StudentID),
		zap.Int64("points_applied", intent.PointsApplied),
	)

	return &IntentResult{RequiresPayment: false, Intent: intent, Booked: slot}, nil
}

// ResumeHandoff restores the in-flight payment state for a token, so the
// confirmation page can recover its client secret after a navigation.
func (s *BookingService) ResumeHandoff(ctx context.Context, token string) (*handoff.Payload, error) {
	if token == "" {
		return nil, handoff.ErrNotFound
	}
	payload, err := s.handoffStore.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

type ConfirmParams struct {
	ScheduleID      int64
	ScheduledDate   string
	StudentID       int64
	PaymentIntentID string
	HandoffToken    string
}

// ConfirmResult reports the commit outcome. ReconciliationNeeded means the
// payment was captured but the seat write failed: the caller surfaces
// success and operators follow up out of band.
type ConfirmResult struct {
	Committed            bool
	ReconciliationNeeded bool
	Booked               *model.BookedSlot
}

// Confirm verifies the processor outcome for an intent and runs the atomic
// commit. The availability snapshot taken at intent time is never trusted;
// capacity is re-checked under the schedule row lock.
func (s *BookingService) Confirm(ctx context.Context, p ConfirmParams) (*ConfirmResult, error) {
	if p.PaymentIntentID == "" {
		return nil, &model.ValidationError{ScheduleID: p.ScheduleID, Date: p.ScheduledDate, Reason: "payment_intent_id is required"}
	}

	intent, err := s.processor.RetrieveIntent(ctx, p.PaymentIntentID)
	if err != nil {
		return nil, &model.PaymentIndeterminateError{Reference: p.PaymentIntentID, Err: err}
	}

	switch intent.Status {
	case payment.IntentSucceeded:
		// authorized, fall through to commit
	case payment.IntentDeclined:
		metrics.PaymentsDeclined.Inc()
		s.clearHandoff(ctx, p.HandoffToken)
		return nil, &model.PaymentDeclinedError{Reference: intent.ID, Reason: intent.DeclineReason}
	default:
		return nil, &model.PaymentIndeterminateError{
			Reference: p.PaymentIntentID,
			Err:       fmt.Errorf("authorization not completed, status %q", intent.Status),
		}
	}

	if err := matchesIntent(intent, p); err != nil {
		return nil, err
	}

	pointsApplied, _ := strconv.ParseInt(intent.Metadata["points_applied"], 10, 64)

	slot, err := s.slotStore.Commit(ctx, repository.CommitParams{
		ScheduleID:       p.ScheduleID,
		ScheduledDate:    p.ScheduledDate,
		StudentID:        p.StudentID,
		PaymentReference: intent.ID,
		PointsApplied:    pointsApplied,
		AmountPaid:       intent.Amount,
	})
	if err != nil {
		var conflict *model.AvailabilityConflictError
		if errors.As(err, &conflict) {
			metrics.AvailabilityConflicts.Inc()
			s.clearHandoff(ctx, p.HandoffToken)
			return nil, conflict
		}

		// Authorization succeeded but the commit did not. Money has moved,
		// so the student must never see a failure here.
		recErr := &model.CommitReconciliationError{
			ScheduleID: p.ScheduleID,
			Date:       p.ScheduledDate,
			Reference:  intent.ID,
			Err:        err,
		}
		metrics.ReconciliationsNeeded.Inc()
		s.logger.Error("booking commit failed after captured payment",
			zap.Int64("schedule_id", p.ScheduleID),
			zap.String("scheduled_date", p.ScheduledDate),
			zap.String("payment_ref", intent.ID),
			zap.Error(recErr),
		)
		s.clearHandoff(ctx, p.HandoffToken)
		return &ConfirmResult{Committed: false, ReconciliationNeeded: true}, nil
	}

	metrics.BookingsCommitted.Inc()
	s.clearHandoff(ctx, p.HandoffToken)

	s.logger.Info("booking committed",
		zap.Int64("booked_slot_id", slot.ID),
		zap.Int64("schedule_id", p.ScheduleID),
		zap.String("scheduled_date", p.ScheduledDate),
		zap.Int64("student_id", p.StudentID),
		zap.String("payment_ref", intent.ID),
	)

	return &ConfirmResult{Committed: true, Booked: slot}, nil
}

// StudentBookings returns all reservations of a student, newest first.
func (s *BookingService) StudentBookings(ctx context.Context, studentID int64) ([]*model.BookedSlot, error) {
	slots, err := s.slotStore.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student bookings: %w", err)
	}
	return slots, nil
}

// CancelBooking releases a committed seat and returns redeemed points to
// the student. The day becomes bookable again on the next availability
// expansion. Captured payments are settled out of band.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) error {
	slot, err := s.slotStore.Cancel(ctx, id)
	if err != nil {
		return err
	}

	if slot.PointsApplied > 0 {
		if err := s.pointsStore.Grant(ctx, slot.StudentID, slot.PointsApplied); err != nil {
			// The seat is already released; the refund is retried by operators.
			s.logger.Error("failed to refund points after cancellation",
				zap.Int64("booked_slot_id", slot.ID),
				zap.Int64("student_id", slot.StudentID),
				zap.Int64("points", slot.PointsApplied),
				zap.Error(err))
		}
	}

	s.logger.Info("booking cancelled",
		zap.Int64("booked_slot_id", slot.ID),
		zap.Int64("schedule_id", slot.ScheduleID),
		zap.String("scheduled_date", slot.ScheduledDate),
	)
	return nil
}

// applyPointsRule clamps the discount: never above the requested points,
// the price or the balance, and never negative.
func applyPointsRule(requested, price, balance int64) int64 {
	applied := requested
	if applied > price {
		applied = price
	}
	if applied > balance {
		applied = balance
	}
	if applied < 0 {
		applied = 0
	}
	return applied
}

// matchesIntent rejects confirms whose request does not match what the
// intent was created for. The student check keeps a stolen intent
// reference from committing the payer's seat, and the payer's discount,
// to someone else.
func matchesIntent(intent *payment.Intent, p ConfirmParams) error {
	scheduleID, _ := strconv.ParseInt(intent.Metadata["schedule_id"], 10, 64)
	studentID, _ := strconv.ParseInt(intent.Metadata["student_id"], 10, 64)
	if scheduleID != p.ScheduleID ||
		studentID != p.StudentID ||
		intent.Metadata["scheduled_date"] != p.ScheduledDate {
		return &model.ValidationError{
			ScheduleID: p.ScheduleID,
			Date:       p.ScheduledDate,
			Reason:     "payment intent does not match this booking",
		}
	}
	return nil
}

func (s *BookingService) clearHandoff(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.handoffStore.Clear(ctx, token); err != nil {
		s.logger.Warn("failed to clear payment handoff", zap.Error(err))
	}
}
