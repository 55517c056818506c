package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vpetrenko/lessonbook/internal/model"
)

type BookedSlotRepository struct {
	pool *pgxpool.Pool
}

func NewBookedSlotRepository(pool *pgxpool.Pool) *BookedSlotRepository {
	return &BookedSlotRepository{pool: pool}
}

// CommitParams carries everything the atomic commit step needs.
type CommitParams struct {
	ScheduleID       int64
	ScheduledDate    string // "YYYY-MM-DD"
	StudentID        int64
	PaymentReference string
	PointsApplied    int64
	AmountPaid       int64
}

// Commit is the single serialization point for seat capacity. In one
// transaction it locks the schedule row, recounts committed reservations
// for the date, and only then inserts the BookedSlot and redeems points.
// A day at capacity returns AvailabilityConflictError and writes nothing.
// At most `capacity` commits can ever succeed for a (schedule, date) pair,
// however many concurrent callers arrive.
func (r *BookedSlotRepository) Commit(ctx context.Context, p CommitParams) (*model.BookedSlot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	lockQuery := `SELECT slot_type, capacity FROM schedules WHERE id = $1 FOR UPDATE`
	var slotType string
	var capacity int
	if err = tx.QueryRow(ctx, lockQuery, p.ScheduleID).Scan(&slotType, &capacity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("lock schedule: %w", err)
	}

	seats := (&model.Schedule{SlotType: model.SlotType(slotType), Capacity: capacity}).EffectiveCapacity()

	countQuery := `
		SELECT COUNT(*)
		FROM booked_slots
		WHERE schedule_id = $1 AND scheduled_date = $2 AND status = $3
	`
	var committed int
	err = tx.QueryRow(ctx, countQuery, p.ScheduleID, p.ScheduledDate, model.BookedSlotStatusCommitted).Scan(&committed)
	if err != nil {
		return nil, fmt.Errorf("count committed slots: %w", err)
	}

	if committed >= seats {
		return nil, &model.AvailabilityConflictError{ScheduleID: p.ScheduleID, Date: p.ScheduledDate}
	}

	insertQuery := `
		INSERT INTO booked_slots (schedule_id, scheduled_date, student_id, session_id, points_applied, amount_paid, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	slot := &model.BookedSlot{
		ScheduleID:    p.ScheduleID,
		ScheduledDate: p.ScheduledDate,
		StudentID:     p.StudentID,
		SessionID:     p.PaymentReference,
		PointsApplied: p.PointsApplied,
		AmountPaid:    p.AmountPaid,
		Status:        model.BookedSlotStatusCommitted,
	}
	err = tx.QueryRow(
		ctx, insertQuery,
		slot.ScheduleID,
		slot.ScheduledDate,
		slot.StudentID,
		slot.SessionID,
		slot.PointsApplied,
		slot.AmountPaid,
		slot.Status,
	).Scan(&slot.ID, &slot.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert booked slot: %w", err)
	}

	if p.PointsApplied > 0 {
		redeemQuery := `
			UPDATE loyalty_points
			SET balance = balance - $2, updated_at = now()
			WHERE student_id = $1 AND balance >= $2
		`
		result, err := tx.Exec(ctx, redeemQuery, p.StudentID, p.PointsApplied)
		if err != nil {
			return nil, fmt.Errorf("redeem points: %w", err)
		}
		if result.RowsAffected() == 0 {
			return nil, fmt.Errorf("redeem points: insufficient balance for student %d", p.StudentID)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return slot, nil
}

// GetByScheduleID returns all non-cancelled reservations of a schedule.
func (r *BookedSlotRepository) GetByScheduleID(ctx context.Context, scheduleID int64) ([]*model.BookedSlot, error) {
	query := `
		SELECT id, schedule_id, scheduled_date, student_id, session_id, points_applied, amount_paid, status, created_at
		FROM booked_slots
		WHERE schedule_id = $1 AND status = $2
		ORDER BY scheduled_date, id
	`

	rows, err := r.pool.Query(ctx, query, scheduleID, model.BookedSlotStatusCommitted)
	if err != nil {
		return nil, fmt.Errorf("get booked slots by schedule: %w", err)
	}
	defer rows.Close()

	return scanBookedSlots(rows)
}

// GetByStudentID returns all reservations of a student, newest first.
func (r *BookedSlotRepository) GetByStudentID(ctx context.Context, studentID int64) ([]*model.BookedSlot, error) {
	query := `
		SELECT id, schedule_id, scheduled_date, student_id, session_id, points_applied, amount_paid, status, created_at
		FROM booked_slots
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get booked slots by student: %w", err)
	}
	defer rows.Close()

	return scanBookedSlots(rows)
}

// Cancel releases a seat and returns the cancelled reservation. The
// availability calculator stops counting it on the next expansion.
func (r *BookedSlotRepository) Cancel(ctx context.Context, id int64) (*model.BookedSlot, error) {
	query := `
		UPDATE booked_slots
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING id, schedule_id, scheduled_date, student_id, session_id, points_applied, amount_paid, status, created_at
	`

	var slot model.BookedSlot
	err := r.pool.QueryRow(ctx, query, model.BookedSlotStatusCancelled, id, model.BookedSlotStatusCommitted).Scan(
		&slot.ID,
		&slot.ScheduleID,
		&slot.ScheduledDate,
		&slot.StudentID,
		&slot.SessionID,
		&slot.PointsApplied,
		&slot.AmountPaid,
		&slot.Status,
		&slot.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBookingNotFound
		}
		return nil, fmt.Errorf("cancel booked slot: %w", err)
	}

	return &slot, nil
}

func scanBookedSlots(rows pgx.Rows) ([]*model.BookedSlot, error) {
	var slots []*model.BookedSlot
	for rows.Next() {
		var slot model.BookedSlot
		err := rows.Scan(
			&slot.ID,
			&slot.ScheduleID,
			&slot.ScheduledDate,
			&slot.StudentID,
			&slot.SessionID,
			&slot.PointsApplied,
			&slot.AmountPaid,
			&slot.Status,
			&slot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booked slot: %w", err)
		}
		slots = append(slots, &slot)
	}

	return slots, rows.Err()
}
