package domain

import "time"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentValidating PaymentStatus = "validating"
	PaymentConfirmed  PaymentStatus = "confirmed"
	PaymentRejected   PaymentStatus = "rejected"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// Payment is a recorded settlement, possibly partial, against a debt.
// ProviderReference is the processor-side intent id and carries a unique
// constraint in storage; it is the idempotency key for confirmations.
type Payment struct {
	ID                string
	StudentID         int64
	ConceptID         int64
	DebtID            *int64
	Amount            float64
	PaymentDate       time.Time
	Method            string
	Status            PaymentStatus
	ProviderReference string

	// ReceiptKey is the artifact-store pointer behind the public receipt
	// URL; populated lazily, overwritten on regeneration.
	ReceiptKey *string

	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// PaymentSummary aggregates a guardian's linked students' payments over a
// period.
type PaymentSummary struct {
	GuardianID    int64
	TotalPaid     float64
	TotalPending  float64
	TotalRejected float64
	From          time.Time
	To            time.Time
}
