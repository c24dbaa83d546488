package models

import "time"

// LoginAttempt tracks consecutive login failures for one account ID.
// A row may exist for an ID that has no account yet; only known
// accounts accumulate lockout state, but the record outlives resets.
type LoginAttempt struct {
	AccountID   string
	FailCount   int
	LockedUntil *time.Time
	UpdatedAt   time.Time
}

// Locked reports whether the record carries an unexpired lockout at
// the given instant. An elapsed lockout is treated as absent.
func (a *LoginAttempt) Locked(now time.Time) bool {
	return a != nil && a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
