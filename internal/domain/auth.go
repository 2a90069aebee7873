package domain

// Principal is the authenticated caller every core operation receives.
type Principal struct {
	ID    string
	Email string
	Role  Role
}

// IsAgent reports whether the principal carries the agent role.
func (p Principal) IsAgent() bool {
	return p.Role == RoleAgent
}
