package domain

import "time"

type EmailLogStatus string

const (
	EmailSent   EmailLogStatus = "sent"
	EmailFailed EmailLogStatus = "failed"
)

// EmailLog is one row of the append-only delivery audit trail. Rows are
// never updated or deleted.
type EmailLog struct {
	ID           int64
	PaymentID    string
	StudentID    int64
	Recipient    string
	Status       EmailLogStatus
	Subject      string
	SentAt       time.Time
	ErrorMessage *string
}
