package service

import (
	"context"
	"errors"
	"testing"

	"schoolpay/internal/domain"
)

func TestIntentCreateOpensProcessorIntent(t *testing.T) {
	ledger := newFakeLedger(&domain.Debt{ID: 1, StudentID: 10, ConceptID: 3, TotalAmount: 1000, Status: domain.DebtPending})
	proc := &fakeProcessor{}
	svc := NewIntentService(ledger, proc, nil)

	result, err := svc.Create(context.Background(), 100, 10, 1, 600)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if result.ProviderIntentID == "" || result.ClientSecret == "" {
		t.Fatalf("incomplete intent result: %+v", result)
	}
	if proc.created != 1 {
		t.Fatalf("expected 1 processor call, got %d", proc.created)
	}
}

func TestIntentCreateRejectsUnknownDebt(t *testing.T) {
	svc := NewIntentService(newFakeLedger(), &fakeProcessor{}, nil)

	_, err := svc.Create(context.Background(), 100, 10, 42, 600)
	if !errors.Is(err, domain.ErrDebtNotFound) {
		t.Fatalf("expected debt not found, got %v", err)
	}
}

func TestIntentCreateRejectsForeignStudent(t *testing.T) {
	ledger := newFakeLedger(&domain.Debt{ID: 1, StudentID: 99, ConceptID: 3, TotalAmount: 1000, Status: domain.DebtPending})
	proc := &fakeProcessor{}
	svc := NewIntentService(ledger, proc, nil)

	_, err := svc.Create(context.Background(), 100, 10, 1, 600)
	if !errors.Is(err, domain.ErrDebtNotFound) {
		t.Fatalf("expected debt not found for foreign student, got %v", err)
	}
	if proc.created != 0 {
		t.Fatal("no processor call may happen for a foreign debt")
	}
}

func TestIntentCreateRejectsSettledDebt(t *testing.T) {
	ledger := newFakeLedger(&domain.Debt{ID: 1, StudentID: 10, ConceptID: 3, TotalAmount: 1000, Status: domain.DebtPaid})
	svc := NewIntentService(ledger, &fakeProcessor{}, nil)

	_, err := svc.Create(context.Background(), 100, 10, 1, 600)
	if !errors.Is(err, domain.ErrDebtAlreadyPaid) {
		t.Fatalf("expected already paid, got %v", err)
	}
}
