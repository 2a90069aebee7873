package domain

import "time"

// Role tags a principal as requester or support staff.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
)

// IsValid reports whether the role tag is known.
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAgent
}

// User is the domain model for authenticated principals.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
