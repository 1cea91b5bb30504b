package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"schoolpay/internal/clients"
	"schoolpay/internal/domain"
)

type fakeGuardianTable struct {
	relations map[int64]*domain.GuardianRelation
}

func (f *fakeGuardianTable) FirstForStudent(ctx context.Context, studentID int64) (*domain.GuardianRelation, error) {
	rel, ok := f.relations[studentID]
	if !ok {
		return nil, domain.ErrNoGuardian
	}
	return rel, nil
}

type fakeAttacher struct {
	err error
}

func (f *fakeAttacher) Attachment(ctx context.Context, paymentID string) (*clients.EmailAttachment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &clients.EmailAttachment{
		Filename:    "receipt_" + paymentID + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("PKfake"),
	}, nil
}

type fakeSender struct {
	err  error
	sent []clients.EmailMessage
}

func (f *fakeSender) Send(ctx context.Context, msg clients.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newNotifyFixture(withGuardian bool) (*NotifyService, *fakeEmailLogs, *fakeSender, *fakeAttacher) {
	payments := &fakePaymentTable{payments: map[string]*domain.Payment{
		"pay-1": {
			ID: "pay-1", StudentID: 10, ConceptID: 3, Amount: 500,
			PaymentDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			Method:      "card", Status: domain.PaymentConfirmed,
			ProviderReference: "pi_1",
		},
	}}

	guardians := &fakeGuardianTable{relations: map[int64]*domain.GuardianRelation{}}
	if withGuardian {
		guardians.relations[10] = &domain.GuardianRelation{
			GuardianID: 100, StudentID: 10, Active: true,
			GuardianName: "Maria Gomez", GuardianEmail: "maria@example.com",
		}
	}

	logs := &fakeEmailLogs{}
	sender := &fakeSender{}
	attacher := &fakeAttacher{}
	svc := NewNotifyService(payments, fakeStudentTable{}, guardians, logs, attacher, sender)
	return svc, logs, sender, attacher
}

func TestNotifySendsReceiptToGuardian(t *testing.T) {
	svc, logs, sender, _ := newNotifyFixture(true)

	status, err := svc.NotifyGuardian(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if status != SideEffectSent {
		t.Fatalf("expected sent, got %q", status)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "maria@example.com" {
		t.Fatalf("wrong recipient %q", msg.To)
	}
	if msg.Attachment == nil {
		t.Fatal("receipt attachment missing")
	}

	if len(logs.logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(logs.logs))
	}
	if logs.logs[0].Status != domain.EmailSent {
		t.Fatalf("expected sent log, got %s", logs.logs[0].Status)
	}
	if logs.logs[0].Recipient != "maria@example.com" {
		t.Fatalf("wrong log recipient %q", logs.logs[0].Recipient)
	}
}

func TestNotifyNoGuardianIsNoOp(t *testing.T) {
	svc, logs, sender, _ := newNotifyFixture(false)

	status, err := svc.NotifyGuardian(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("missing guardian must not be an error: %v", err)
	}
	if status != SideEffectSkipped {
		t.Fatalf("absence of a guardian is a no-op, got %q", status)
	}
	if len(sender.sent) != 0 || len(logs.logs) != 0 {
		t.Fatal("no email and no log row expected")
	}
}

func TestNotifyDeliveryFailureIsRecorded(t *testing.T) {
	svc, logs, sender, _ := newNotifyFixture(true)
	sender.err = errors.New("rate limited")

	status, err := svc.NotifyGuardian(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("delivery failure must not surface as an error: %v", err)
	}
	if status != SideEffectFailed {
		t.Fatalf("expected failed, got %q", status)
	}

	if len(logs.logs) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(logs.logs))
	}
	row := logs.logs[0]
	if row.Status != domain.EmailFailed {
		t.Fatalf("expected failed log, got %s", row.Status)
	}
	if row.ErrorMessage == nil || *row.ErrorMessage != "rate limited" {
		t.Fatal("failure reason must be recorded")
	}
}

func TestNotifyAttachmentFailureIsRecorded(t *testing.T) {
	svc, logs, sender, attacher := newNotifyFixture(true)
	attacher.err = errors.New("artifact store down")

	status, err := svc.NotifyGuardian(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("attachment failure must not surface as an error: %v", err)
	}
	if status != SideEffectFailed {
		t.Fatalf("expected failed, got %q", status)
	}
	if len(sender.sent) != 0 {
		t.Fatal("no email should go out without its attachment")
	}
	if len(logs.logs) != 1 || logs.logs[0].Status != domain.EmailFailed {
		t.Fatal("a failed log row is expected")
	}
}

func TestNotifyRetryAppendsNewRow(t *testing.T) {
	svc, logs, sender, _ := newNotifyFixture(true)
	sender.err = errors.New("timeout")

	if _, err := svc.NotifyGuardian(context.Background(), "pay-1"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	// operator retries after the outage
	sender.err = nil
	status, err := svc.NotifyGuardian(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if status != SideEffectSent {
		t.Fatalf("retry should deliver, got %q", status)
	}

	if len(logs.logs) != 2 {
		t.Fatalf("audit trail is append-only, expected 2 rows, got %d", len(logs.logs))
	}
	if logs.logs[0].Status != domain.EmailFailed || logs.logs[1].Status != domain.EmailSent {
		t.Fatalf("expected failed then sent, got %s then %s", logs.logs[0].Status, logs.logs[1].Status)
	}
}
