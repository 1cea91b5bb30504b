package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"schoolpay/internal/domain"
)

type DebtRepository struct {
	db *sql.DB
}

func NewDebtRepository(db *sql.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

func (r *DebtRepository) FindByID(ctx context.Context, id int64) (*domain.Debt, error) {
	query := `
		SELECT
			d.id,
			d.student_id,
			d.concept_id,
			d.total_amount,
			d.due_date,
			d.status,
			c.name AS concept_name,
			s.first_name || ' ' || s.last_name AS student_name
		FROM debts d
		LEFT JOIN payment_concepts c ON c.id = d.concept_id
		LEFT JOIN students s ON s.id = d.student_id
		WHERE d.id = $1
	`

	var (
		d       domain.Debt
		dueDate sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.StudentID,
		&d.ConceptID,
		&d.TotalAmount,
		&dueDate,
		&d.Status,
		&d.ConceptName,
		&d.StudentName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDebtNotFound
		}
		return nil, err
	}

	if dueDate.Valid {
		d.DueDate = &dueDate.Time
	}
	return &d, nil
}

// MarkOverdue flips pending debts past their due date to overdue. Partial
// and paid debts are never touched.
func (r *DebtRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE debts SET status = $1 WHERE status = $2 AND due_date IS NOT NULL AND due_date < $3`,
		domain.DebtOverdue, domain.DebtPending, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
