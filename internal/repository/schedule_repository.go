package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vpetrenko/lessonbook/internal/model"
)

type ScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// Create inserts a schedule together with its weekday windows.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO schedules (teacher_id, subject, slot_type, capacity, price, from_date, to_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(
		ctx, query,
		schedule.TeacherID,
		schedule.Subject,
		schedule.SlotType,
		schedule.Capacity,
		schedule.Price,
		schedule.FromDate,
		schedule.ToDate,
		schedule.IsActive,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}

	dayQuery := `
		INSERT INTO schedule_days (schedule_id, weekday, start_time, end_time)
		VALUES ($1, $2, $3, $4)
	`
	for _, day := range schedule.Days {
		for _, window := range day.TimeWindows {
			_, err = tx.Exec(ctx, dayQuery, schedule.ID, int(day.Weekday), window.Start, window.End)
			if err != nil {
				return fmt.Errorf("create schedule day: %w", err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID returns a schedule with its weekday windows, or nil.
func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*model.Schedule, error) {
	query := `
		SELECT id, teacher_id, subject, slot_type, capacity, price, from_date, to_date, is_active, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`

	var schedule model.Schedule
	var slotType string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&schedule.ID,
		&schedule.TeacherID,
		&schedule.Subject,
		&slotType,
		&schedule.Capacity,
		&schedule.Price,
		&schedule.FromDate,
		&schedule.ToDate,
		&schedule.IsActive,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get schedule by id: %w", err)
	}
	schedule.SlotType = model.SlotType(slotType)

	days, err := r.getDays(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule.Days = days

	return &schedule, nil
}

// GetByTeacherID returns all schedules of a teacher, windows included.
func (r *ScheduleRepository) GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.Schedule, error) {
	query := `
		SELECT id, teacher_id, subject, slot_type, capacity, price, from_date, to_date, is_active, created_at, updated_at
		FROM schedules
		WHERE teacher_id = $1
		ORDER BY from_date, id
	`

	rows, err := r.pool.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get schedules by teacher: %w", err)
	}
	defer rows.Close()

	var schedules []*model.Schedule
	for rows.Next() {
		var schedule model.Schedule
		var slotType string
		err := rows.Scan(
			&schedule.ID,
			&schedule.TeacherID,
			&schedule.Subject,
			&slotType,
			&schedule.Capacity,
			&schedule.Price,
			&schedule.FromDate,
			&schedule.ToDate,
			&schedule.IsActive,
			&schedule.CreatedAt,
			&schedule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedule.SlotType = model.SlotType(slotType)
		schedules = append(schedules, &schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}

	for _, schedule := range schedules {
		days, err := r.getDays(ctx, schedule.ID)
		if err != nil {
			return nil, err
		}
		schedule.Days = days
	}

	return schedules, nil
}

// Deactivate turns a schedule off without touching existing reservations.
func (r *ScheduleRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE schedules SET is_active = false, updated_at = now() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrScheduleNotFound
	}

	return nil
}

// getDays loads weekday windows for a schedule grouped by weekday.
func (r *ScheduleRepository) getDays(ctx context.Context, scheduleID int64) ([]model.ScheduleDay, error) {
	query := `
		SELECT weekday, start_time, end_time
		FROM schedule_days
		WHERE schedule_id = $1
		ORDER BY weekday, start_time
	`

	rows, err := r.pool.Query(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule days: %w", err)
	}
	defer rows.Close()

	var days []model.ScheduleDay
	for rows.Next() {
		var weekday int
		var window model.TimeWindow
		if err := rows.Scan(&weekday, &window.Start, &window.End); err != nil {
			return nil, fmt.Errorf("scan schedule day: %w", err)
		}

		wd := time.Weekday(weekday)
		if n := len(days); n > 0 && days[n-1].Weekday == wd {
			days[n-1].TimeWindows = append(days[n-1].TimeWindows, window)
			continue
		}
		days = append(days, model.ScheduleDay{Weekday: wd, TimeWindows: []model.TimeWindow{window}})
	}

	return days, rows.Err()
}
