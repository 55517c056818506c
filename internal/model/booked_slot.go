package model

import "time"

type BookedSlotStatus string

const (
	BookedSlotStatusCommitted BookedSlotStatus = "committed"
	BookedSlotStatusCancelled BookedSlotStatus = "cancelled"
)

// BookedSlot is a committed reservation against one concrete calendar day
// of a Schedule. ScheduledDate is a "YYYY-MM-DD" day key.
type BookedSlot struct {
	ID            int64            `json:"id"`
	ScheduleID    int64            `json:"schedule_id"`
	ScheduledDate string           `json:"scheduled_date"`
	StudentID     int64            `json:"student_id"`
	SessionID     string           `json:"session_id"` // processor payment reference
	PointsApplied int64            `json:"points_applied"`
	AmountPaid    int64            `json:"amount_paid"`
	Status        BookedSlotStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}

// IsCommitted reports whether the reservation still holds a seat.
func (b *BookedSlot) IsCommitted() bool {
	return b.Status == BookedSlotStatusCommitted
}
