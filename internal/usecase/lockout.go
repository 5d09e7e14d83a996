package usecase

import "time"

// LockoutPolicy decides when repeated login failures escalate to a
// temporary account lock. Locks are time-boxed and expire lazily: no
// background sweep, just a timestamp comparison at the next attempt.
type LockoutPolicy struct {
	MaxRetries   int
	LockDuration time.Duration
}

// DefaultLockoutPolicy locks an account for one hour after three
// consecutive failed logins.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxRetries: 3, LockDuration: time.Hour}
}

// Locked reports whether an active lock denies the attempt outright,
// before any password check.
func (p LockoutPolicy) Locked(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// ShouldLock reports whether the post-increment failure count has
// reached the lockout threshold.
func (p LockoutPolicy) ShouldLock(retries int) bool {
	return retries >= p.MaxRetries
}

// LockUntil returns the expiry timestamp for a lock starting now.
func (p LockoutPolicy) LockUntil(now time.Time) time.Time {
	return now.Add(p.LockDuration)
}
