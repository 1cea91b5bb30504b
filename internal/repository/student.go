package repository

import (
	"context"
	"database/sql"
	"errors"

	"schoolpay/internal/domain"
)

type StudentRepository struct {
	db *sql.DB
}

func NewStudentRepository(db *sql.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*domain.Student, error) {
	var s domain.Student
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name FROM students WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.FirstName, &s.LastName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) ConceptName(ctx context.Context, conceptID int64) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM payment_concepts WHERE id = $1`,
		conceptID,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return name, nil
}
