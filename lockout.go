package auth

import "time"

// MaxFailedLogins is the number of consecutive password failures allowed
// before the account locks
var MaxFailedLogins = 5

// LockoutWindow is how long a triggered lock stays in force
var LockoutWindow = 30 * time.Minute

// IsLocked reports whether the account is inside an active lockout window.
// An elapsed lock reads as unlocked even before the row is cleaned up.
func (a *Account) IsLocked(now time.Time) bool {
	if a.AccountLockedUntil == nil {
		return false
	}
	return now.Before(*a.AccountLockedUntil)
}

// RecordFailedLogin applies one failed attempt to the in memory row. The
// counter is not reset when a lock expires, so another miss after lazy unlock
// re-locks immediately. Persistence uses a single SQL statement, this helper
// mirrors that transition for callers that already hold the row.
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLoginAttempts++
	a.LastFailedLogin = &now
	if a.FailedLoginAttempts >= MaxFailedLogins {
		until := now.Add(LockoutWindow)
		a.AccountLockedUntil = &until
	}
}

// ResetFailedLogins clears every lockout field after a successful login
func (a *Account) ResetFailedLogins() {
	a.FailedLoginAttempts = 0
	a.LastFailedLogin = nil
	a.AccountLockedUntil = nil
}

// ClearExpiredLock drops only the lock timestamp once the window elapsed,
// leaving the attempt counter in place
func (a *Account) ClearExpiredLock(now time.Time) bool {
	if a.AccountLockedUntil == nil || now.Before(*a.AccountLockedUntil) {
		return false
	}
	a.AccountLockedUntil = nil
	return true
}
