package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shoplane.dev/internal/ids"
)

// SessionRegistry persists refresh-token sessions. Raw token material never
// reaches storage; rows carry its one-way hash only.
type SessionRegistry struct {
	sessions SessionRepository
	now      func() time.Time
}

// NewSessionRegistry builds a registry over the given repository.
func NewSessionRegistry(sessions SessionRepository, now func() time.Time) *SessionRegistry {
	if now == nil {
		now = time.Now
	}
	return &SessionRegistry{sessions: sessions, now: now}
}

// Create stores a new session row for a successful login or registration.
// The organization and store ids record the scope the login was bound to;
// rotation reads them back so refreshed access tokens keep that scope.
func (r *SessionRegistry) Create(ctx context.Context, userID, orgID, storeID, rawRefreshToken string, ttl time.Duration, client ClientInfo) (*Session, error) {
	now := r.now().UTC()
	sess := &Session{
		ID:             ids.New(),
		UserID:         userID,
		OrganizationID: orgID,
		StoreID:        storeID,
		TokenHash:      HashToken(rawRefreshToken),
		Fingerprint:    Fingerprint(client.UserAgent, client.IP),
		IP:             client.IP,
		UserAgent:      client.UserAgent,
		ExpiresAt:      now.Add(ttl),
		LastUsedAt:     now,
		CreatedAt:      now,
	}
	if err := r.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Lookup resolves a raw refresh token to its session. A match on a revoked
// row is rejected as ErrTokenRevoked, not ErrInvalidToken, so callers can
// distinguish theft-recovery scenarios. Expired rows never match.
func (r *SessionRegistry) Lookup(ctx context.Context, rawRefreshToken string) (*Session, error) {
	sess, err := r.sessions.FindByTokenHash(ctx, HashToken(rawRefreshToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if sess.Revoked {
		return sess, ErrTokenRevoked
	}
	return sess, nil
}

// Rotate replaces the session's token material in place: same row, new hash,
// new expiry, fresh last-used time. The device binding is updated only when
// the validator accepted the request.
func (r *SessionRegistry) Rotate(ctx context.Context, sess *Session, newRawRefreshToken string, ttl time.Duration, client ClientInfo, updateBinding bool) error {
	now := r.now().UTC()
	if err := r.sessions.Rotate(ctx, sess.ID, HashToken(newRawRefreshToken), now.Add(ttl), now); err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	sess.TokenHash = HashToken(newRawRefreshToken)
	sess.ExpiresAt = now.Add(ttl)
	sess.LastUsedAt = now
	if updateBinding {
		fp := Fingerprint(client.UserAgent, client.IP)
		if err := r.sessions.UpdateClient(ctx, sess.ID, fp, client.IP, client.UserAgent); err != nil {
			return fmt.Errorf("update session binding: %w", err)
		}
		sess.Fingerprint = fp
		sess.IP = client.IP
		sess.UserAgent = client.UserAgent
	}
	return nil
}

// Revoke marks a single session revoked. Revocation is terminal.
func (r *SessionRegistry) Revoke(ctx context.Context, sessionID string) error {
	return r.sessions.Revoke(ctx, sessionID, r.now().UTC())
}

// RevokeAll revokes every live session of the user and returns the count of
// rows affected. Already-revoked and expired rows are excluded.
func (r *SessionRegistry) RevokeAll(ctx context.Context, userID string) (int, error) {
	return r.sessions.RevokeAll(ctx, userID, r.now().UTC())
}

// ListActive returns the user's live sessions.
func (r *SessionRegistry) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	return r.sessions.ListActive(ctx, userID)
}
