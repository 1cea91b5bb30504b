package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"schoolpay/internal/clients"
	"schoolpay/internal/domain"
)

const (
	intentKeyPrefix = "intent:"
	intentTTL       = 24 * time.Hour
)

// Processor is the external payment processor seen from the services.
type Processor interface {
	CreateIntent(ctx context.Context, req clients.IntentRequest) (*clients.Intent, error)
	GetIntent(ctx context.Context, providerIntentID string) (*clients.Intent, error)
}

// IntentRecord is the ephemeral correlation handle kept in Redis between
// opening an intent and confirming it. Not a business record; losing it
// only disables the debt/student cross-check on confirm.
type IntentRecord struct {
	DebtID    int64   `json:"debt_id"`
	StudentID int64   `json:"student_id"`
	Amount    float64 `json:"amount"`
}

type IntentDebtRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Debt, error)
}

type IntentResult struct {
	ProviderIntentID string
	ClientSecret     string
}

type IntentService struct {
	debts     IntentDebtRepository
	processor Processor
	redis     *clients.RedisClient
	currency  string
}

func NewIntentService(debts IntentDebtRepository, processor Processor, redis *clients.RedisClient) *IntentService {
	return &IntentService{debts: debts, processor: processor, redis: redis, currency: "USD"}
}

// Create opens a payment attempt with the processor for one debt. Metadata
// on the intent (concept, student, caller) exists purely for audit.
func (s *IntentService) Create(ctx context.Context, callerID, studentID, debtID int64, amount float64) (*IntentResult, error) {
	debt, err := s.debts.FindByID(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if debt.StudentID != studentID {
		return nil, domain.ErrDebtNotFound
	}
	if debt.Status == domain.DebtPaid {
		return nil, domain.ErrDebtAlreadyPaid
	}

	meta := map[string]string{
		"debt_id":    strconv.FormatInt(debtID, 10),
		"student_id": strconv.FormatInt(studentID, 10),
		"caller_id":  strconv.FormatInt(callerID, 10),
	}
	if debt.ConceptName != nil {
		meta["concept"] = *debt.ConceptName
	}
	if debt.StudentName != nil {
		meta["student"] = *debt.StudentName
	}

	intent, err := s.processor.CreateIntent(ctx, clients.IntentRequest{
		Amount:      amount,
		Currency:    s.currency,
		Description: fmt.Sprintf("tuition debt #%d", debtID),
		Metadata:    meta,
	})
	if err != nil {
		return nil, err
	}

	if err := saveIntentRecord(ctx, s.redis, intent.ID, IntentRecord{
		DebtID:    debtID,
		StudentID: studentID,
		Amount:    amount,
	}); err != nil {
		// the handle is advisory; the intent is already open
		log.Printf("[INTENT] save correlation record for %s: %v", intent.ID, err)
	}

	return &IntentResult{ProviderIntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func saveIntentRecord(ctx context.Context, redis *clients.RedisClient, ref string, rec IntentRecord) error {
	if redis == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return redis.Set(ctx, intentKeyPrefix+ref, string(data), intentTTL)
}

func loadIntentRecord(ctx context.Context, redis *clients.RedisClient, ref string) (*IntentRecord, error) {
	if redis == nil {
		return nil, nil
	}
	raw, err := redis.Get(ctx, intentKeyPrefix+ref)
	if err != nil {
		if err == clients.ErrCacheMiss {
			return nil, nil
		}
		return nil, err
	}
	var rec IntentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
