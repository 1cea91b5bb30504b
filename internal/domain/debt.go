package domain

import "time"

type DebtStatus string

const (
	DebtPending DebtStatus = "pending"
	DebtPartial DebtStatus = "partial"
	DebtPaid    DebtStatus = "paid"
	DebtOverdue DebtStatus = "overdue"
)

// Debt is the amount a student owes for a payment concept by a due date.
// Rows are created administratively; only the confirmation pipeline mutates
// the status, and a debt never leaves "paid" once it got there.
type Debt struct {
	ID          int64
	StudentID   int64
	ConceptID   int64
	TotalAmount float64
	DueDate     *time.Time
	Status      DebtStatus

	CreatedAt *time.Time
	UpdatedAt *time.Time

	ConceptName *string
	StudentName *string
}
