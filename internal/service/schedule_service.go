package service

import (
	"context"
	"fmt"

	"github.com/vpetrenko/lessonbook/internal/dateutil"
	"github.com/vpetrenko/lessonbook/internal/model"
	"go.uber.org/zap"
)

type ScheduleAdminStore interface {
	Create(ctx context.Context, schedule *model.Schedule) error
	GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.Schedule, error)
	Deactivate(ctx context.Context, id int64) error
}

// ScheduleService covers the teacher-facing side: defining a recurring
// schedule and taking it off the market. Existing reservations are never
// touched by either operation.
type ScheduleService struct {
	store  ScheduleAdminStore
	logger *zap.Logger
}

func NewScheduleService(store ScheduleAdminStore, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{store: store, logger: logger}
}

// Create validates and persists a schedule definition.
func (s *ScheduleService) Create(ctx context.Context, schedule *model.Schedule) error {
	if err := validateSchedule(schedule); err != nil {
		return err
	}
	if schedule.SlotType == model.SlotTypeOneToOne {
		schedule.Capacity = 1
	}

	if err := s.store.Create(ctx, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}

	s.logger.Info("schedule created",
		zap.Int64("schedule_id", schedule.ID),
		zap.Int64("teacher_id", schedule.TeacherID),
		zap.String("subject", schedule.Subject),
		zap.String("slot_type", string(schedule.SlotType)),
	)

	return nil
}

// ListByTeacher returns all schedules of a teacher, active or not.
func (s *ScheduleService) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Schedule, error) {
	schedules, err := s.store.GetByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list teacher schedules: %w", err)
	}
	return schedules, nil
}

// Deactivate takes a schedule off the market. Committed reservations stay.
func (s *ScheduleService) Deactivate(ctx context.Context, id int64) error {
	if err := s.store.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info("schedule deactivated", zap.Int64("schedule_id", id))
	return nil
}

func validateSchedule(schedule *model.Schedule) error {
	if schedule.TeacherID <= 0 {
		return fmt.Errorf("%w: teacher_id is required", model.ErrInvalidSchedule)
	}
	if schedule.Subject == "" {
		return fmt.Errorf("%w: subject is required", model.ErrInvalidSchedule)
	}

	switch schedule.SlotType {
	case model.SlotTypeOneToOne, model.SlotTypeGroup, model.SlotTypeInPerson:
	default:
		return fmt.Errorf("%w: unknown slot type %q", model.ErrInvalidSchedule, schedule.SlotType)
	}

	if schedule.SlotType != model.SlotTypeOneToOne && schedule.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", model.ErrInvalidSchedule)
	}
	if schedule.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", model.ErrInvalidSchedule)
	}
	if schedule.ToDate.Before(schedule.FromDate) {
		return fmt.Errorf("%w: to_date before from_date", model.ErrInvalidSchedule)
	}
	if len(schedule.Days) == 0 {
		return fmt.Errorf("%w: at least one weekday is required", model.ErrInvalidSchedule)
	}

	seen := make(map[int]bool, len(schedule.Days))
	for _, day := range schedule.Days {
		wd := int(day.Weekday)
		if wd < 0 || wd > 6 {
			return fmt.Errorf("%w: weekday %d out of range", model.ErrInvalidSchedule, wd)
		}
		if seen[wd] {
			return fmt.Errorf("%w: duplicate weekday %d", model.ErrInvalidSchedule, wd)
		}
		seen[wd] = true

		if len(day.TimeWindows) == 0 {
			return fmt.Errorf("%w: weekday %d has no time windows", model.ErrInvalidSchedule, wd)
		}
		for _, window := range day.TimeWindows {
			if !dateutil.ValidWindow(window.Start, window.End) {
				return fmt.Errorf("%w: invalid window %s-%s on weekday %d",
					model.ErrInvalidSchedule, window.Start, window.End, wd)
			}
		}
	}

	return nil
}
