package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shoplane.dev/internal/ids"
	"shoplane.dev/internal/obs"
)

// SendEmailVerification issues a fresh verification token for the user and
// mails it. Prior unused verification tokens are invalidated, so at most one
// valid token exists at a time. Already-verified users are a no-op.
func (s *Service) SendEmailVerification(ctx context.Context, userID string) error {
	user, err := s.repo.Users().Find(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}

	raw, err := s.issueOneTimeToken(ctx, user.ID, TokenKindVerification)
	if err != nil {
		return err
	}

	if err := s.notifier.SendVerificationEmail(ctx, user.Email, raw, user.DisplayName); err != nil {
		s.warn("auth.email.verification_send_failed", map[string]any{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}
	return nil
}

// VerifyEmail consumes a verification token. On success the user's email is
// marked verified and a pending account becomes active.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) (*User, error) {
	tok, err := s.repo.Tokens().FindValid(ctx, TokenKindVerification, HashToken(rawToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if err := s.repo.Tokens().MarkUsed(ctx, tok.ID); err != nil {
		return nil, fmt.Errorf("consume verification token: %w", err)
	}

	user, err := s.repo.Users().Find(ctx, tok.UserID)
	if err != nil {
		return nil, err
	}
	user.EmailVerified = true
	if user.Status == UserStatusPendingVerification {
		user.Status = UserStatusActive
	}
	if err := s.repo.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("persist verification: %w", err)
	}

	s.emit(ctx, AuditEvent{
		ActorID:    user.ID,
		Action:     ActionEmailVerified,
		Resource:   ResourceUser,
		ResourceID: user.ID,
	})

	if err := s.notifier.SendWelcomeEmail(ctx, user.Email, user.DisplayName); err != nil {
		s.warn("auth.email.welcome_send_failed", map[string]any{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}
	return user, nil
}

// ResendEmailVerification re-issues a verification token by email address.
// Unknown addresses succeed silently so the endpoint is not an account
// oracle.
func (s *Service) ResendEmailVerification(ctx context.Context, email string) error {
	user, err := s.repo.Users().FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return s.SendEmailVerification(ctx, user.ID)
}

// ForgotPassword issues a password-reset token and mails it. Unknown
// addresses succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.Users().FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	raw, err := s.issueOneTimeToken(ctx, user.ID, TokenKindPasswordReset)
	if err != nil {
		return err
	}

	s.emit(ctx, AuditEvent{
		ActorID:    user.ID,
		Action:     ActionPasswordResetRequested,
		Resource:   ResourceUser,
		ResourceID: user.ID,
	})

	if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, raw, user.DisplayName); err != nil {
		s.warn("auth.email.reset_send_failed", map[string]any{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password. The
// lockout state is cleared and every live session is revoked.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if fields := passwordViolations(newPassword); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	tok, err := s.repo.Tokens().FindValid(ctx, TokenKindPasswordReset, HashToken(rawToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if err := s.repo.Tokens().MarkUsed(ctx, tok.ID); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.Users().UpdatePassword(ctx, tok.UserID, hash); err != nil {
		return fmt.Errorf("persist password: %w", err)
	}

	user, err := s.repo.Users().Find(ctx, tok.UserID)
	if err != nil {
		return err
	}
	ResetLockout(user)
	if err := s.repo.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("persist lockout reset: %w", err)
	}

	registry := NewSessionRegistry(s.repo.Sessions(), s.now)
	revoked, err := registry.RevokeAll(ctx, user.ID)
	if err != nil {
		return err
	}
	obs.CountSessionsRevoked(revoked)

	s.emit(ctx, AuditEvent{
		ActorID:    user.ID,
		Action:     ActionPasswordReset,
		Resource:   ResourceUser,
		ResourceID: user.ID,
		Metadata:   map[string]any{"sessions_revoked": revoked},
	})
	return nil
}

// ChangePassword replaces the password for an authenticated user after
// verifying the current one. A successful change clears the lockout state.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repo.Users().Find(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(user.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}
	if fields := passwordViolations(newPassword); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.Users().UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("persist password: %w", err)
	}
	ResetLockout(user)
	if err := s.repo.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("persist lockout reset: %w", err)
	}

	s.emit(ctx, AuditEvent{
		ActorID:    user.ID,
		Action:     ActionPasswordChanged,
		Resource:   ResourceUser,
		ResourceID: user.ID,
	})
	return nil
}

// SessionInfo is a session row with the caller's current session flagged.
type SessionInfo struct {
	*Session
	Current bool
}

// ListSessions lists the user's live sessions. When currentRawToken is
// supplied, the matching session is marked as current.
func (s *Service) ListSessions(ctx context.Context, userID, currentRawToken string) ([]SessionInfo, error) {
	registry := NewSessionRegistry(s.repo.Sessions(), s.now)
	sessions, err := registry.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	currentHash := ""
	if currentRawToken != "" {
		currentHash = HashToken(currentRawToken)
	}
	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionInfo{Session: sess, Current: currentHash != "" && sess.TokenHash == currentHash})
	}
	return out, nil
}

// RevokeSession revokes one of the user's sessions by id.
func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.repo.Sessions().Find(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return ErrUnauthorized
	}
	if sess.Revoked {
		return nil
	}
	registry := NewSessionRegistry(s.repo.Sessions(), s.now)
	if err := registry.Revoke(ctx, sess.ID); err != nil {
		return err
	}
	obs.CountSessionsRevoked(1)
	s.emit(ctx, AuditEvent{
		ActorID:    userID,
		Action:     ActionSessionRevoked,
		Resource:   ResourceSession,
		ResourceID: sess.ID,
	})
	return nil
}

// issueOneTimeToken invalidates prior unused tokens of the kind and stores a
// fresh one, returning the raw value for delivery.
func (s *Service) issueOneTimeToken(ctx context.Context, userID, kind string) (string, error) {
	if err := s.repo.Tokens().InvalidateUnused(ctx, userID, kind); err != nil {
		return "", fmt.Errorf("invalidate %s tokens: %w", kind, err)
	}
	raw, err := RandomToken(32)
	if err != nil {
		return "", err
	}
	ttl := verificationTokenTTL
	if kind == TokenKindPasswordReset {
		ttl = passwordResetTokenTTL
	}
	now := s.now().UTC()
	tok := &OneTimeToken{
		ID:        ids.New(),
		UserID:    userID,
		Kind:      kind,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.repo.Tokens().Create(ctx, tok); err != nil {
		return "", fmt.Errorf("store %s token: %w", kind, err)
	}
	return raw, nil
}
