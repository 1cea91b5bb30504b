package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"schoolpay/internal/clients"
	"schoolpay/internal/domain"
)

const (
	statusCacheTTL  = 10 * time.Second
	summaryCacheTTL = time.Minute
)

type StatusPaymentRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Payment, error)
	FindByProviderReference(ctx context.Context, ref string) (*domain.Payment, error)
	LatestConfirmedForDebt(ctx context.Context, debtID int64) (*domain.Payment, error)
	SummaryForGuardian(ctx context.Context, guardianID int64, from, to time.Time) (*domain.PaymentSummary, error)
}

// StatusService is the read side of the pipeline: processor status polling,
// receipt lookups and guardian summaries. Redis keeps polling off the
// processor and the aggregates off the hot path.
type StatusService struct {
	payments  StatusPaymentRepository
	processor Processor
	receipts  ReceiptEnsurer
	redis     *clients.RedisClient
}

func NewStatusService(payments StatusPaymentRepository, processor Processor, receipts ReceiptEnsurer, redis *clients.RedisClient) *StatusService {
	return &StatusService{payments: payments, processor: processor, receipts: receipts, redis: redis}
}

// Status passes the processor's live intent status through for client
// polling, behind a short cache.
func (s *StatusService) Status(ctx context.Context, providerIntentID string) (string, error) {
	cacheKey := "pstatus:" + providerIntentID
	if s.redis != nil {
		if v, err := s.redis.Get(ctx, cacheKey); err == nil {
			return v, nil
		}
	}

	intent, err := s.processor.GetIntent(ctx, providerIntentID)
	if err != nil {
		return "", err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey, intent.Status, statusCacheTTL); err != nil {
			log.Printf("[STATUS] cache intent %s: %v", providerIntentID, err)
		}
	}
	return intent.Status, nil
}

// OwnerOfReference reports which student a recorded payment for the given
// reference belongs to. found=false means no payment exists yet.
func (s *StatusService) OwnerOfReference(ctx context.Context, providerIntentID string) (int64, bool, error) {
	p, err := s.payments.FindByProviderReference(ctx, providerIntentID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return p.StudentID, true, nil
}

func (s *StatusService) ReceiptByPayment(ctx context.Context, paymentID string) (string, error) {
	return s.receipts.Ensure(ctx, paymentID)
}

// ReceiptByDebt resolves the latest confirmed payment of the debt and
// ensures its receipt.
func (s *StatusService) ReceiptByDebt(ctx context.Context, debtID int64) (string, error) {
	p, err := s.payments.LatestConfirmedForDebt(ctx, debtID)
	if err != nil {
		return "", err
	}
	return s.receipts.Ensure(ctx, p.ID)
}

func (s *StatusService) StudentOfPayment(ctx context.Context, paymentID string) (int64, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return 0, err
	}
	return p.StudentID, nil
}

func (s *StatusService) StudentOfDebtPayment(ctx context.Context, debtID int64) (int64, error) {
	p, err := s.payments.LatestConfirmedForDebt(ctx, debtID)
	if err != nil {
		return 0, err
	}
	return p.StudentID, nil
}

func (s *StatusService) GuardianSummary(ctx context.Context, guardianID int64, from, to time.Time) (*domain.PaymentSummary, error) {
	cacheKey := summaryCacheKey(guardianID, from, to)
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey); err == nil {
			var cached domain.PaymentSummary
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	summary, err := s.payments.SummaryForGuardian(ctx, guardianID, from, to)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := s.redis.Set(ctx, cacheKey, string(data), summaryCacheTTL); err != nil {
				log.Printf("[STATUS] cache summary for guardian %d: %v", guardianID, err)
			}
		}
	}
	return summary, nil
}

func summaryCacheKey(guardianID int64, from, to time.Time) string {
	return "summary:" + strconv.FormatInt(guardianID, 10) + ":" + from.Format("2006-01-02") + ":" + to.Format("2006-01-02")
}
