package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for wrong email, wrong password and
	// unresolvable login scope alike, so callers cannot tell which one failed.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrAccountLocked is returned while a timed lockout is in effect.
	ErrAccountLocked = errors.New("auth: account locked")

	// ErrAccountSuspended is returned for suspended or archived accounts.
	ErrAccountSuspended = errors.New("auth: account suspended")

	// ErrInvalidToken covers malformed, expired and wrongly-signed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenRevoked is returned when a refresh token matches a revoked
	// session, so theft-recovery can be distinguished from plain expiry.
	ErrTokenRevoked = errors.New("auth: token has been revoked")

	// ErrDeviceMismatch is returned after a session was force-revoked because
	// its device fingerprint no longer matches.
	ErrDeviceMismatch = errors.New("auth: session revoked due to device mismatch")

	// ErrRateLimited is returned when refreshes arrive faster than the
	// configured minimum interval.
	ErrRateLimited = errors.New("auth: refresh rate limited")

	ErrAlreadyExists = errors.New("auth: already exists")
	ErrNotFound      = errors.New("auth: not found")
	ErrUnauthorized  = errors.New("auth: unauthorized")
)

// ValidationError carries every violated field, not just the first one.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("auth: validation failed: %s", strings.Join(e.Fields, ", "))
}

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
