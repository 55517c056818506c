package model

import (
	"errors"
	"fmt"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrStudentNotFound  = errors.New("student not found")
	ErrBookingNotFound  = errors.New("booking not found or already cancelled")
	ErrInvalidSchedule  = errors.New("invalid schedule definition")
)

// ValidationError rejects a booking request before any money moves:
// date outside the schedule range, wrong weekday, fully booked day,
// past date or a malformed field.
type ValidationError struct {
	ScheduleID int64
	Date       string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for schedule %d date %s: %s", e.ScheduleID, e.Date, e.Reason)
}

// AvailabilityConflictError means the commit re-check found the day at
// capacity: another caller won the race between intent and commit.
type AvailabilityConflictError struct {
	ScheduleID int64
	Date       string
}

func (e *AvailabilityConflictError) Error() string {
	return fmt.Sprintf("no seats left for schedule %d on %s", e.ScheduleID, e.Date)
}

// PaymentDeclinedError carries the processor's reason. Retryable with new
// payment details, never with the same reference.
type PaymentDeclinedError struct {
	Reference string
	Reason    string
}

func (e *PaymentDeclinedError) Error() string {
	return fmt.Sprintf("payment %s declined: %s", e.Reference, e.Reason)
}

// PaymentIndeterminateError means the processor outcome is unknown
// (network failure, timeout). The intent stays usable for a retry.
type PaymentIndeterminateError struct {
	Reference string
	Err       error
}

func (e *PaymentIndeterminateError) Error() string {
	return fmt.Sprintf("payment %s outcome unknown: %v", e.Reference, e.Err)
}

func (e *PaymentIndeterminateError) Unwrap() error { return e.Err }

// CommitReconciliationError records a commit failure after a successful
// authorization. Money has moved, so this is never surfaced as a failure
// to the student; it is logged for operator follow-up.
type CommitReconciliationError struct {
	ScheduleID int64
	Date       string
	Reference  string
	Err        error
}

func (e *CommitReconciliationError) Error() string {
	return fmt.Sprintf("payment %s captured but commit failed for schedule %d on %s: %v",
		e.Reference, e.ScheduleID, e.Date, e.Err)
}

func (e *CommitReconciliationError) Unwrap() error { return e.Err }
