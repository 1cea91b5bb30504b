package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDebtNotFound    = errors.New("debt not found")
	ErrDebtAlreadyPaid = errors.New("debt already paid")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrNoGuardian      = errors.New("student has no active guardian")
	ErrUnauthorized    = errors.New("caller may not access this student")
	ErrIntentMismatch  = errors.New("intent does not match the given debt")
	ErrTokenNotFound   = errors.New("token not found")
)

// ProviderError carries a failure from the external payment processor. The
// coordinator never retries these; callers may repeat the whole call.
type ProviderError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("processor %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("processor %s failed", e.Op)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ArtifactError reports a receipt render or storage failure. It never
// affects recorded payment state.
type ArtifactError struct {
	PaymentID string
	Err       error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("receipt artifact for payment %s: %v", e.PaymentID, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// DeliveryError reports an email transport failure; it ends up in EmailLog,
// not in the confirmation outcome.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
