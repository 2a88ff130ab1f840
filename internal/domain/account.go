package domain

import "time"

// AccountRole enumerates access levels.
type AccountRole string

const (
	RoleUser       AccountRole = "USER"
	RoleManager    AccountRole = "MANAGER"
	RoleAdmin      AccountRole = "ADMIN"
	RoleSuperAdmin AccountRole = "SUPER_ADMIN"
)

// AccountStatus represents lifecycle states for an account.
type AccountStatus string

const (
	AccountStatusPending    AccountStatus = "PENDING"
	AccountStatusActive     AccountStatus = "ACTIVE"
	AccountStatusTerminated AccountStatus = "TERMINATED"
)

// Account models a reporter, department staff member or administrator.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	Role         AccountRole
	Department   string
	Phone        string
	Status       AccountStatus
	SolvedCount  int
	AvgRating    float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Protected reports whether the account is immune to mutation and deletion.
// Exactly one SuperAdmin account exists and it is immutable.
func (a *Account) Protected() bool {
	return a.Role == RoleSuperAdmin
}
