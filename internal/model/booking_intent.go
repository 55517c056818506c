package model

import "time"

type IntentStatus string

const (
	IntentStatusCreated     IntentStatus = "created"
	IntentStatusAuthorizing IntentStatus = "authorizing"
	IntentStatusAuthorized  IntentStatus = "authorized"
	IntentStatusFailed      IntentStatus = "failed"
)

// BookingIntent is the ephemeral pre-payment record of a requested
// reservation. It is never persisted: an abandoned intent simply expires
// with the processor, no seat is held and no cleanup runs.
type BookingIntent struct {
	ScheduleID       int64        `json:"schedule_id"`
	ScheduledDate    string       `json:"scheduled_date"`
	StudentID        int64        `json:"student_id"`
	BasePrice        int64        `json:"base_price"`
	PointsRequested  int64        `json:"points_requested"`
	PointsApplied    int64        `json:"points_applied"`
	FinalAmount      int64        `json:"final_amount"`
	PaymentReference string       `json:"payment_reference"`
	ClientSecret     string       `json:"client_secret,omitempty"`
	Status           IntentStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
}

// RequiresPayment reports whether the intent needs a processor round trip.
func (i *BookingIntent) RequiresPayment() bool {
	return i.FinalAmount > 0
}
