package repository

import (
	"context"
	"database/sql"
	"errors"

	"schoolpay/internal/domain"
)

// EmailLogRepository writes the delivery audit trail. The table is
// append-only: no update or delete statements belong here.
type EmailLogRepository struct {
	db *sql.DB
}

func NewEmailLogRepository(db *sql.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

func (r *EmailLogRepository) Append(ctx context.Context, l *domain.EmailLog) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO email_logs (payment_id, student_id, recipient, status, subject, sent_at, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		l.PaymentID, l.StudentID, l.Recipient, l.Status, l.Subject, l.SentAt, l.ErrorMessage,
	).Scan(&l.ID)
}

func (r *EmailLogRepository) LatestForPayment(ctx context.Context, paymentID string) (*domain.EmailLog, error) {
	query := `
		SELECT id, payment_id, student_id, recipient, status, subject, sent_at, error_message
		FROM email_logs
		WHERE payment_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	`

	var l domain.EmailLog
	err := r.db.QueryRowContext(ctx, query, paymentID).Scan(
		&l.ID,
		&l.PaymentID,
		&l.StudentID,
		&l.Recipient,
		&l.Status,
		&l.Subject,
		&l.SentAt,
		&l.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
