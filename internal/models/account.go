package models

import "time"

// Role is the panel-side privilege level of an operator account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleOwner Role = "OWNER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOwner
}

// Account is an operator identity keyed by its Discord snowflake ID.
// PasswordHash is nil until a credential has been issued. LastPassword
// retains the most recently issued plaintext so the owner can recover
// it from the panel; this is a deliberate, documented trade-off.
type Account struct {
	ID           string
	Role         Role
	PasswordHash *string
	LastPassword *string
	AddedBy      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Provisioned reports whether a login credential has been issued for
// the account.
func (a *Account) Provisioned() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}
