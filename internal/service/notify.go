package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"schoolpay/internal/clients"
	"schoolpay/internal/domain"
)

type NotifyPaymentRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Payment, error)
}

type NotifyStudentRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Student, error)
}

type NotifyGuardianRepository interface {
	FirstForStudent(ctx context.Context, studentID int64) (*domain.GuardianRelation, error)
}

type NotifyEmailLogRepository interface {
	Append(ctx context.Context, l *domain.EmailLog) error
}

type ReceiptAttacher interface {
	Attachment(ctx context.Context, paymentID string) (*clients.EmailAttachment, error)
}

// NotifyService delivers the receipt to the responsible guardian. Delivery
// is fire-and-forget relative to the ledger: failures are appended to the
// audit log and folded into the returned outcome, never into an error that
// could bubble into the confirmation path. There is no retry loop; retries
// are repeat invocations.
type NotifyService struct {
	payments  NotifyPaymentRepository
	students  NotifyStudentRepository
	guardians NotifyGuardianRepository
	emailLogs NotifyEmailLogRepository
	receipts  ReceiptAttacher
	sender    clients.EmailSender
}

func NewNotifyService(
	payments NotifyPaymentRepository,
	students NotifyStudentRepository,
	guardians NotifyGuardianRepository,
	emailLogs NotifyEmailLogRepository,
	receipts ReceiptAttacher,
	sender clients.EmailSender,
) *NotifyService {
	return &NotifyService{
		payments:  payments,
		students:  students,
		guardians: guardians,
		emailLogs: emailLogs,
		receipts:  receipts,
		sender:    sender,
	}
}

// NotifyGuardian resolves the student's guardian and mails the receipt.
// The returned outcome is one of the side-effect statuses: sent, failed
// (recorded in the email log) or skipped when there is nobody to notify.
func (s *NotifyService) NotifyGuardian(ctx context.Context, paymentID string) (string, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return "", err
	}

	rel, err := s.guardians.FirstForStudent(ctx, p.StudentID)
	if err != nil {
		if errors.Is(err, domain.ErrNoGuardian) {
			// nobody to notify; not a failure
			log.Printf("[NOTIFY] payment %s: student %d has no active guardian", p.ID, p.StudentID)
			return SideEffectSkipped, nil
		}
		return "", err
	}

	student, err := s.students.FindByID(ctx, p.StudentID)
	if err != nil {
		return "", err
	}

	subject := fmt.Sprintf("Payment receipt for %s", student.FullName())
	body := fmt.Sprintf(
		"Dear %s,\n\nA payment of %.2f for %s was confirmed on %s.\nThe receipt is attached.\n",
		rel.GuardianName, p.Amount, student.FullName(), p.PaymentDate.Format("2006-01-02"),
	)

	attachment, err := s.receipts.Attachment(ctx, p.ID)
	if err != nil {
		s.appendLog(ctx, p, rel.GuardianEmail, subject, domain.EmailFailed, err.Error())
		return SideEffectFailed, nil
	}

	msg := clients.EmailMessage{
		ToName:     rel.GuardianName,
		To:         rel.GuardianEmail,
		Subject:    subject,
		Body:       body,
		Attachment: attachment,
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.appendLog(ctx, p, rel.GuardianEmail, subject, domain.EmailFailed, err.Error())
		return SideEffectFailed, nil
	}

	s.appendLog(ctx, p, rel.GuardianEmail, subject, domain.EmailSent, "")
	return SideEffectSent, nil
}

func (s *NotifyService) appendLog(ctx context.Context, p *domain.Payment, recipient, subject string, status domain.EmailLogStatus, errMsg string) {
	l := &domain.EmailLog{
		PaymentID: p.ID,
		StudentID: p.StudentID,
		Recipient: recipient,
		Status:    status,
		Subject:   subject,
		SentAt:    time.Now(),
	}
	if errMsg != "" {
		l.ErrorMessage = &errMsg
	}
	if err := s.emailLogs.Append(ctx, l); err != nil {
		log.Printf("[NOTIFY] append email log for payment %s: %v", p.ID, err)
	}
}
