package auth

import (
	"context"

	"schoolpay/internal/domain"
)

type GuardianLinkChecker interface {
	IsLinked(ctx context.Context, guardianID, studentID int64) (bool, error)
}

// Authorizer enforces per-student access: staff roles pass, guardians need
// an active relation to the student, everyone else is denied.
type Authorizer struct {
	guardians GuardianLinkChecker
}

func NewAuthorizer(guardians GuardianLinkChecker) *Authorizer {
	return &Authorizer{guardians: guardians}
}

func (a *Authorizer) CanAccessStudent(ctx context.Context, id Identity, studentID int64) error {
	if domain.IsStaffRole(id.Role) {
		return nil
	}
	if id.Role == domain.RoleGuardian {
		linked, err := a.guardians.IsLinked(ctx, id.UserID, studentID)
		if err != nil {
			return err
		}
		if linked {
			return nil
		}
	}
	return domain.ErrUnauthorized
}

// CanAccessGuardian gates the guardian summary endpoint: staff or the
// guardian itself.
func (a *Authorizer) CanAccessGuardian(ctx context.Context, id Identity, guardianID int64) error {
	if domain.IsStaffRole(id.Role) {
		return nil
	}
	if id.Role == domain.RoleGuardian && id.UserID == guardianID {
		return nil
	}
	return domain.ErrUnauthorized
}
