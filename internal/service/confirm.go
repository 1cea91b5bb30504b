package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"schoolpay/internal/clients"
	"schoolpay/internal/domain"
)

// Advisory side-effect outcomes folded into a confirmation result. They
// describe the receipt and notification steps only; the financial outcome
// is carried by PaymentID and DebtStatus.
const (
	SideEffectReady   = "ready"
	SideEffectPending = "pending"
	SideEffectSent    = "sent"
	SideEffectFailed  = "failed"
	SideEffectSkipped = "skipped"
)

type ConfirmPaymentRepository interface {
	FindByProviderReference(ctx context.Context, ref string) (*domain.Payment, error)
	CreateConfirmed(ctx context.Context, p *domain.Payment) (*domain.Payment, domain.DebtStatus, bool, error)
}

type ConfirmEmailLogRepository interface {
	LatestForPayment(ctx context.Context, paymentID string) (*domain.EmailLog, error)
}

type ConfirmGuardianRepository interface {
	LinkedGuardianIDs(ctx context.Context, studentID int64) ([]int64, error)
}

type ReceiptEnsurer interface {
	Ensure(ctx context.Context, paymentID string) (string, error)
}

type GuardianNotifier interface {
	NotifyGuardian(ctx context.Context, paymentID string) (string, error)
}

type PaymentEventPublisher interface {
	NotifyPaymentConfirmed(ctx context.Context, userIDs []int64, paymentID string, debtID *int64, amount float64, debtStatus string) error
}

type ConfirmResult struct {
	PaymentID          string
	DebtStatus         domain.DebtStatus
	ReceiptStatus      string
	ReceiptURL         string
	NotificationStatus string
	AlreadyConfirmed   bool
}

// ConfirmService turns a processor confirmation into a consistent ledger
// state. The ledger transaction is the only fatal path; the receipt, the
// guardian email and the dashboard event are advisory and can each fail
// without undoing the recorded payment.
type ConfirmService struct {
	payments  ConfirmPaymentRepository
	debts     IntentDebtRepository
	emailLogs ConfirmEmailLogRepository
	guardians ConfirmGuardianRepository
	processor Processor
	receipts  ReceiptEnsurer
	notifier  GuardianNotifier
	events    PaymentEventPublisher
	redis     *clients.RedisClient
}

func NewConfirmService(
	payments ConfirmPaymentRepository,
	debts IntentDebtRepository,
	emailLogs ConfirmEmailLogRepository,
	guardians ConfirmGuardianRepository,
	processor Processor,
	receipts ReceiptEnsurer,
	notifier GuardianNotifier,
	events PaymentEventPublisher,
	redis *clients.RedisClient,
) *ConfirmService {
	return &ConfirmService{
		payments:  payments,
		debts:     debts,
		emailLogs: emailLogs,
		guardians: guardians,
		processor: processor,
		receipts:  receipts,
		notifier:  notifier,
		events:    events,
		redis:     redis,
	}
}

func (s *ConfirmService) Confirm(ctx context.Context, providerIntentID string, studentID int64, debtID *int64, method string) (*ConfirmResult, error) {
	// 1. idempotency pre-check: a recorded payment for this reference is
	// the authoritative outcome no matter how many times the caller asks.
	existing, err := s.payments.FindByProviderReference(ctx, providerIntentID)
	if err == nil {
		return s.replay(ctx, existing)
	}
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		return nil, err
	}

	// cross-check against the correlation handle while it still exists
	if rec, rerr := loadIntentRecord(ctx, s.redis, providerIntentID); rerr == nil && rec != nil {
		if (debtID != nil && rec.DebtID != *debtID) || rec.StudentID != studentID {
			return nil, domain.ErrIntentMismatch
		}
	}

	// 2. the processor decides; we never trust the caller's word
	intent, err := s.processor.GetIntent(ctx, providerIntentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != clients.IntentSucceeded {
		reason := intent.FailureReason
		if reason == "" {
			reason = "intent status is " + intent.Status
		}
		return nil, &domain.ProviderError{Op: "confirm", Reason: reason}
	}

	var conceptID int64
	if debtID != nil {
		debt, derr := s.debts.FindByID(ctx, *debtID)
		if derr != nil {
			return nil, derr
		}
		if debt.StudentID != studentID {
			return nil, domain.ErrDebtNotFound
		}
		conceptID = debt.ConceptID
	}

	payment := &domain.Payment{
		ID:                uuid.NewString(),
		StudentID:         studentID,
		ConceptID:         conceptID,
		DebtID:            debtID,
		Amount:            intent.Amount,
		PaymentDate:       time.Now(),
		Method:            method,
		Status:            domain.PaymentConfirmed,
		ProviderReference: providerIntentID,
	}

	// 3. one atomic transaction: payment insert + debt recompute
	stored, debtStatus, created, err := s.payments.CreateConfirmed(ctx, payment)
	if err != nil {
		return nil, err
	}
	if !created {
		// a concurrent confirm for the same reference got there first
		return s.replay(ctx, stored)
	}

	// 4. committed; everything below is best-effort
	result := &ConfirmResult{PaymentID: stored.ID, DebtStatus: debtStatus}

	if url, rerr := s.receipts.Ensure(ctx, stored.ID); rerr != nil {
		log.Printf("[CONFIRM] receipt for payment %s: %v", stored.ID, rerr)
		result.ReceiptStatus = SideEffectFailed
	} else {
		result.ReceiptStatus = SideEffectReady
		result.ReceiptURL = url
	}

	if notifyStatus, nerr := s.notifier.NotifyGuardian(ctx, stored.ID); nerr != nil {
		log.Printf("[CONFIRM] notify guardian for payment %s: %v", stored.ID, nerr)
		result.NotificationStatus = SideEffectFailed
	} else {
		result.NotificationStatus = notifyStatus
	}

	s.publishEvent(ctx, stored, debtStatus)

	return result, nil
}

// replay reports the stored outcome of an earlier confirmation without
// re-running any side effect.
func (s *ConfirmService) replay(ctx context.Context, p *domain.Payment) (*ConfirmResult, error) {
	result := &ConfirmResult{
		PaymentID:        p.ID,
		AlreadyConfirmed: true,
	}

	if p.DebtID != nil {
		if debt, err := s.debts.FindByID(ctx, *p.DebtID); err == nil {
			result.DebtStatus = debt.Status
		}
	}

	if p.ReceiptKey != nil && *p.ReceiptKey != "" {
		result.ReceiptStatus = SideEffectReady
	} else {
		result.ReceiptStatus = SideEffectPending
	}

	lastLog, err := s.emailLogs.LatestForPayment(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	switch {
	case lastLog == nil:
		result.NotificationStatus = SideEffectSkipped
	case lastLog.Status == domain.EmailSent:
		result.NotificationStatus = SideEffectSent
	default:
		result.NotificationStatus = SideEffectFailed
	}

	return result, nil
}

func (s *ConfirmService) publishEvent(ctx context.Context, p *domain.Payment, debtStatus domain.DebtStatus) {
	if s.events == nil {
		return
	}
	ids, err := s.guardians.LinkedGuardianIDs(ctx, p.StudentID)
	if err != nil {
		log.Printf("[CONFIRM] resolve guardians for student %d: %v", p.StudentID, err)
		return
	}
	if len(ids) == 0 {
		return
	}
	if err := s.events.NotifyPaymentConfirmed(ctx, ids, p.ID, p.DebtID, p.Amount, string(debtStatus)); err != nil {
		log.Printf("[CONFIRM] publish event for payment %s: %v", p.ID, err)
	}
}
