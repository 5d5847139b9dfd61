package auth

import "time"

// IsLocked reports whether the user's timed lockout is still in effect. Login
// checks this before password comparison: the comparison result on a locked
// account is never observable, so skipping the fixed-cost hash is safe.
func IsLocked(u *User, now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// RegisterFailure increments the failed-attempt counter on u and applies a
// timed lockout once the policy threshold is reached. It returns true when
// this failure locked the account. The caller persists u.
func RegisterFailure(u *User, policy LockoutPolicy, now time.Time) bool {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= policy.MaxAttempts {
		until := now.Add(policy.LockDuration)
		u.LockedUntil = &until
		return true
	}
	return false
}

// ResetLockout clears the counter and lockout on any successful login or
// password change. The caller persists u.
func ResetLockout(u *User) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}
