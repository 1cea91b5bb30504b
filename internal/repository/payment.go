package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"schoolpay/internal/domain"
)

const paymentColumns = `p.id, p.student_id, p.concept_id, p.debt_id, p.amount, p.payment_date, p.method, p.status, p.provider_reference, p.receipt_key, p.created_at, p.updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		p          domain.Payment
		debtID     sql.NullInt64
		receiptKey sql.NullString
	)
	if err := row.Scan(
		&p.ID,
		&p.StudentID,
		&p.ConceptID,
		&debtID,
		&p.Amount,
		&p.PaymentDate,
		&p.Method,
		&p.Status,
		&p.ProviderReference,
		&receiptKey,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if debtID.Valid {
		v := debtID.Int64
		p.DebtID = &v
	}
	if receiptKey.Valid {
		v := receiptKey.String
		p.ReceiptKey = &v
	}
	return &p, nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.id = $1`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) FindByProviderReference(ctx context.Context, ref string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.provider_reference = $1`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) LatestConfirmedForDebt(ctx context.Context, debtID int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p
		WHERE p.debt_id = $1 AND p.status = $2
		ORDER BY p.created_at DESC
		LIMIT 1`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, debtID, domain.PaymentConfirmed))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) SetReceiptKey(ctx context.Context, id, key string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET receipt_key = $1, updated_at = now() WHERE id = $2`,
		key, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// CreateConfirmed records a confirmed payment and recomputes the debt status
// in one transaction. The debt row is locked for the duration so two
// overlapping partial payments cannot lose an update; the unique constraint
// on provider_reference closes the check-then-insert race, and a violation
// is answered with the already-recorded row instead of an error.
//
// The returned bool is true when this call inserted the row.
func (r *PaymentRepository) CreateConfirmed(ctx context.Context, p *domain.Payment) (*domain.Payment, domain.DebtStatus, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", false, err
	}
	defer tx.Rollback()

	var debtStatus domain.DebtStatus
	var totalAmount float64

	if p.DebtID != nil {
		err = tx.QueryRowContext(ctx,
			`SELECT total_amount, status FROM debts WHERE id = $1 FOR UPDATE`,
			*p.DebtID,
		).Scan(&totalAmount, &debtStatus)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, "", false, domain.ErrDebtNotFound
			}
			return nil, "", false, err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, student_id, concept_id, debt_id, amount, payment_date, method, status, provider_reference, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
		p.ID, p.StudentID, p.ConceptID, p.DebtID, p.Amount, p.PaymentDate, p.Method, p.Status, p.ProviderReference,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// lost the insert race; the other confirmation won
			_ = tx.Rollback()
			existing, ferr := r.FindByProviderReference(ctx, p.ProviderReference)
			if ferr != nil {
				return nil, "", false, fmt.Errorf("fetch existing payment after conflict: %w", ferr)
			}
			status, serr := r.debtStatusOf(ctx, existing.DebtID)
			if serr != nil {
				return nil, "", false, serr
			}
			return existing, status, false, nil
		}
		return nil, "", false, err
	}

	if p.DebtID != nil {
		var confirmedSum float64
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE debt_id = $1 AND status = $2`,
			*p.DebtID, domain.PaymentConfirmed,
		).Scan(&confirmedSum)
		if err != nil {
			return nil, "", false, err
		}

		// paid is terminal regardless of what the sum says
		newStatus := domain.DebtPartial
		if confirmedSum >= totalAmount || debtStatus == domain.DebtPaid {
			newStatus = domain.DebtPaid
		}

		if _, err = tx.ExecContext(ctx,
			`UPDATE debts SET status = $1 WHERE id = $2`,
			newStatus, *p.DebtID,
		); err != nil {
			return nil, "", false, err
		}
		debtStatus = newStatus
	}

	if err := tx.Commit(); err != nil {
		return nil, "", false, err
	}

	now := time.Now()
	p.CreatedAt = &now
	p.UpdatedAt = &now
	return p, debtStatus, true, nil
}

func (r *PaymentRepository) debtStatusOf(ctx context.Context, debtID *int64) (domain.DebtStatus, error) {
	if debtID == nil {
		return "", nil
	}
	var status domain.DebtStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM debts WHERE id = $1`, *debtID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrDebtNotFound
		}
		return "", err
	}
	return status, nil
}

// SummaryForGuardian aggregates payments for every student actively linked
// to the guardian within [from, to].
func (r *PaymentRepository) SummaryForGuardian(ctx context.Context, guardianID int64, from, to time.Time) (*domain.PaymentSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN p.status = 'confirmed' THEN p.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN p.status IN ('pending', 'validating') THEN p.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN p.status = 'rejected' THEN p.amount ELSE 0 END), 0)
		FROM payments p
		JOIN guardian_students gs ON gs.student_id = p.student_id AND gs.active
		WHERE gs.guardian_id = $1
		  AND p.payment_date >= $2
		  AND p.payment_date <= $3
	`

	s := domain.PaymentSummary{GuardianID: guardianID, From: from, To: to}
	err := r.db.QueryRowContext(ctx, query, guardianID, from, to).Scan(
		&s.TotalPaid,
		&s.TotalPending,
		&s.TotalRejected,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
