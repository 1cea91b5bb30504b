package repository

import (
	"context"
	"database/sql"
	"errors"

	"schoolpay/internal/domain"
)

type GuardianRepository struct {
	db *sql.DB
}

func NewGuardianRepository(db *sql.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// FirstForStudent returns the first active guardian relation for the
// student, or domain.ErrNoGuardian when there is none.
func (r *GuardianRepository) FirstForStudent(ctx context.Context, studentID int64) (*domain.GuardianRelation, error) {
	query := `
		SELECT
			gs.guardian_id,
			gs.student_id,
			gs.active,
			u.first_name || ' ' || u.last_name AS guardian_name,
			u.email
		FROM guardian_students gs
		JOIN users u ON u.id = gs.guardian_id
		WHERE gs.student_id = $1 AND gs.active
		ORDER BY gs.guardian_id
		LIMIT 1
	`

	var rel domain.GuardianRelation
	err := r.db.QueryRowContext(ctx, query, studentID).Scan(
		&rel.GuardianID,
		&rel.StudentID,
		&rel.Active,
		&rel.GuardianName,
		&rel.GuardianEmail,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoGuardian
		}
		return nil, err
	}
	return &rel, nil
}

func (r *GuardianRepository) IsLinked(ctx context.Context, guardianID, studentID int64) (bool, error) {
	var linked bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM guardian_students
			WHERE guardian_id = $1 AND student_id = $2 AND active
		)`,
		guardianID, studentID,
	).Scan(&linked)
	if err != nil {
		return false, err
	}
	return linked, nil
}

func (r *GuardianRepository) LinkedGuardianIDs(ctx context.Context, studentID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT guardian_id FROM guardian_students WHERE student_id = $1 AND active ORDER BY guardian_id`,
		studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
