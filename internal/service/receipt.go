package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"schoolpay/internal/clients"
	"schoolpay/internal/domain"
)

type ReceiptPaymentRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Payment, error)
	SetReceiptKey(ctx context.Context, id, key string) error
}

type ReceiptStudentRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Student, error)
	ConceptName(ctx context.Context, conceptID int64) (string, error)
}

// ReceiptService owns the durable receipt artifact of a confirmed payment.
// It never mutates payment state beyond the receipt pointer.
type ReceiptService struct {
	payments ReceiptPaymentRepository
	students ReceiptStudentRepository
	store    clients.ArtifactStore
}

func NewReceiptService(payments ReceiptPaymentRepository, students ReceiptStudentRepository, store clients.ArtifactStore) *ReceiptService {
	return &ReceiptService{payments: payments, students: students, store: store}
}

// Ensure returns a URL for the payment's receipt, generating the artifact
// when it does not exist yet. A pointer to a vanished artifact is healed by
// regenerating and overwriting the pointer.
func (s *ReceiptService) Ensure(ctx context.Context, paymentID string) (string, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return "", err
	}

	if p.ReceiptKey != nil && *p.ReceiptKey != "" {
		ok, err := s.store.Exists(ctx, *p.ReceiptKey)
		if err != nil {
			return "", &domain.ArtifactError{PaymentID: paymentID, Err: err}
		}
		if ok {
			url, err := s.store.URL(ctx, *p.ReceiptKey)
			if err != nil {
				return "", &domain.ArtifactError{PaymentID: paymentID, Err: err}
			}
			return url, nil
		}
		// pointer survived, artifact did not; fall through and re-render
	}

	return s.generate(ctx, p)
}

// Regenerate always re-renders and overwrites the pointer, even when a
// valid artifact exists. Used to retroactively apply template fixes.
func (s *ReceiptService) Regenerate(ctx context.Context, paymentID string) (string, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, p)
}

// Attachment ensures the receipt exists and returns its bytes for mailing.
func (s *ReceiptService) Attachment(ctx context.Context, paymentID string) (*clients.EmailAttachment, error) {
	if _, err := s.Ensure(ctx, paymentID); err != nil {
		return nil, err
	}

	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.ReceiptKey == nil || *p.ReceiptKey == "" {
		return nil, &domain.ArtifactError{PaymentID: paymentID, Err: fmt.Errorf("receipt pointer missing after ensure")}
	}

	data, err := s.store.Read(ctx, *p.ReceiptKey)
	if err != nil {
		return nil, &domain.ArtifactError{PaymentID: paymentID, Err: err}
	}

	return &clients.EmailAttachment{
		Filename:    fmt.Sprintf("receipt_%s.xlsx", p.ID),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     data,
	}, nil
}

func (s *ReceiptService) generate(ctx context.Context, p *domain.Payment) (string, error) {
	student, err := s.students.FindByID(ctx, p.StudentID)
	if err != nil {
		return "", err
	}
	conceptName, err := s.students.ConceptName(ctx, p.ConceptID)
	if err != nil {
		return "", err
	}

	data, err := renderReceipt(p, student, conceptName)
	if err != nil {
		return "", &domain.ArtifactError{PaymentID: p.ID, Err: err}
	}

	key, err := s.store.Save(ctx, fmt.Sprintf("receipt_%s.xlsx", p.ID), data)
	if err != nil {
		return "", &domain.ArtifactError{PaymentID: p.ID, Err: err}
	}

	if err := s.payments.SetReceiptKey(ctx, p.ID, key); err != nil {
		return "", err
	}

	url, err := s.store.URL(ctx, key)
	if err != nil {
		return "", &domain.ArtifactError{PaymentID: p.ID, Err: err}
	}
	return url, nil
}

// renderReceipt is a deterministic rendering of payment, student and
// concept data; the same inputs always produce the same document.
func renderReceipt(p *domain.Payment, student *domain.Student, conceptName string) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Receipt"
	f.SetSheetName(f.GetSheetName(0), sheet)

	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "B", 40)

	rows := [][2]any{
		{"Payment receipt", ""},
		{"Receipt no.", p.ID},
		{"Date", p.PaymentDate.Format("2006-01-02")},
		{"Student", student.FullName()},
		{"Concept", conceptName},
		{"Method", p.Method},
		{"Amount", p.Amount},
		{"Provider reference", p.ProviderReference},
	}

	for i, row := range rows {
		cellA, _ := excelize.CoordinatesToCellName(1, i+1)
		cellB, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(sheet, cellA, row[0])
		_ = f.SetCellValue(sheet, cellB, row[1])
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
