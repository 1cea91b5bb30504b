package domain

import "time"

const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator"
	RoleTeacher     = "teacher"
	RoleGuardian    = "guardian"
	RoleStudent     = "student"
)

// AccessToken is a bearer credential resolved from storage. Token issuance
// lives elsewhere; this service only validates and resolves.
type AccessToken struct {
	ID        int64
	TokenHash string
	UserID    int64
	Role      string
	ExpiresAt *time.Time
}

// IsStaffRole reports whether the role bypasses per-student authorization.
func IsStaffRole(role string) bool {
	return role == RoleAdmin || role == RoleCoordinator
}
