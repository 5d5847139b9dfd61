package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shoplane.dev/internal/notify"
	"shoplane.dev/internal/obs"
)

// One-time token lifetimes.
const (
	verificationTokenTTL  = 24 * time.Hour
	passwordResetTokenTTL = time.Hour
)

// Service is the façade coordinating registration, login, refresh, logout,
// password lifecycle and onboarding. It owns the transactional registration
// flow and emits audit events for every security-relevant outcome.
type Service struct {
	repo     Repository
	cfg      *ConfigManager
	notifier notify.Sender
	sink     AuditSink
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithNotifier overrides the outbound email channel.
func WithNotifier(sender notify.Sender) ServiceOption {
	return func(s *Service) error {
		if sender != nil {
			s.notifier = sender
		}
		return nil
	}
}

// WithAuditSink sets the one-way audit emitter.
func WithAuditSink(sink AuditSink) ServiceOption {
	return func(s *Service) error {
		s.sink = sink
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the orchestrator. The access-token secret must be
// configured.
func NewService(repo Repository, cfg *ConfigManager, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("auth: repository is required")
	}
	if cfg == nil {
		return nil, errors.New("auth: config is required")
	}
	if strings.TrimSpace(cfg.Current().AccessTokenSecret) == "" {
		return nil, errors.New("auth: access token secret is not configured")
	}
	svc := &Service{
		repo:     repo,
		cfg:      cfg,
		notifier: notify.NewSender(cfg.Current().EmailProvider),
		now:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// TokenPair is the credential set returned by login, registration and refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthResult is the outcome of a successful registration or login.
type AuthResult struct {
	User         *User
	Organization *Organization
	Store        *Store
	Session      *Session
	Tokens       TokenPair
}

// LoginInput carries credentials plus the tenant scope to bind the login to.
// At least one of OrganizationSlug and StoreSlug is required.
type LoginInput struct {
	Email            string
	Password         string
	OrganizationSlug string
	StoreSlug        string
	Client           ClientInfo
}

// Login authenticates a user within an organization or store scope. Wrong
// email, wrong password and unresolvable scope are externally
// indistinguishable.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		obs.CountLogin("invalid")
		return nil, ErrInvalidCredentials
	}

	org, store, err := s.resolveScope(ctx, in.OrganizationSlug, in.StoreSlug)
	if err != nil {
		obs.CountLogin("invalid")
		s.emit(ctx, AuditEvent{
			Action:   ActionLoginFailed,
			Resource: ResourceUser,
			Metadata: map[string]any{"reason": "scope", "email": email},
			IP:       in.Client.IP, UserAgent: in.Client.UserAgent,
		})
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.Users().FindByEmailInOrg(ctx, email, org.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.CountLogin("invalid")
			s.emit(ctx, AuditEvent{
				Action:   ActionLoginFailed,
				Resource: ResourceUser,
				Metadata: map[string]any{"reason": "unknown_user", "email": email, "org_id": org.ID},
				IP:       in.Client.IP, UserAgent: in.Client.UserAgent,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// A store-scoped login is only valid for users actually attached to the
	// store. The failure is reported exactly like a wrong password.
	if store != nil {
		ok, err := s.canBindStore(ctx, store, user)
		if err != nil {
			return nil, err
		}
		if !ok {
			obs.CountLogin("invalid")
			s.emit(ctx, s.userEvent(user, ActionLoginFailed, in.Client, map[string]any{
				"reason":   "store_membership",
				"store_id": store.ID,
			}))
			return nil, ErrInvalidCredentials
		}
	}

	now := s.now().UTC()

	// Locked accounts are rejected before the password comparison. The
	// comparison result is never observable on a locked account, so skipping
	// the fixed-cost hash changes nothing externally.
	if IsLocked(user, now) {
		obs.CountLogin("locked")
		s.emit(ctx, s.userEvent(user, ActionLoginFailed, in.Client, map[string]any{"reason": "locked"}))
		return nil, ErrAccountLocked
	}

	if user.Status == UserStatusSuspended || user.Status == UserStatusArchived {
		obs.CountLogin("suspended")
		s.emit(ctx, s.userEvent(user, ActionLoginFailed, in.Client, map[string]any{"reason": "status", "status": user.Status}))
		return nil, ErrAccountSuspended
	}

	if !VerifyPassword(user.PasswordHash, in.Password) {
		locked := RegisterFailure(user, s.cfg.Current().Lockout, now)
		if err := s.repo.Users().Update(ctx, user); err != nil {
			return nil, fmt.Errorf("persist failed attempt: %w", err)
		}
		obs.CountLogin("invalid")
		s.emit(ctx, s.userEvent(user, ActionLoginFailed, in.Client, map[string]any{
			"reason":   "password",
			"attempts": user.FailedLoginAttempts,
		}))
		if locked {
			obs.CountLockout()
			s.emit(ctx, s.userEvent(user, ActionAccountLocked, in.Client, map[string]any{
				"locked_until": user.LockedUntil.UTC().Format(time.RFC3339),
			}))
		}
		return nil, ErrInvalidCredentials
	}

	ResetLockout(user)
	user.LastLoginAt = &now
	if err := s.repo.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("persist login: %w", err)
	}

	storeID := ""
	if store != nil {
		storeID = store.ID
	}
	tokens, sess, err := s.mintTokens(ctx, user, org.ID, storeID, in.Client)
	if err != nil {
		return nil, err
	}

	obs.CountLogin("success")
	s.emit(ctx, s.userEvent(user, ActionLoginSucceeded, in.Client, map[string]any{"session_id": sess.ID}))

	return &AuthResult{User: user, Organization: org, Store: store, Session: sess, Tokens: tokens}, nil
}

// Refresh rotates the refresh token bound to a session and mints a new
// access token. The device validator runs before rotation; a fingerprint
// mismatch under strict policy revokes the session before surfacing.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string, client ClientInfo) (TokenPair, error) {
	cfg := s.cfg.Current()

	if _, err := VerifyToken(rawRefreshToken, cfg.RefreshSecret()); err != nil {
		obs.CountRefresh("invalid")
		return TokenPair{}, ErrInvalidToken
	}

	registry := NewSessionRegistry(s.repo.Sessions(), s.now)
	sess, err := registry.Lookup(ctx, rawRefreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			obs.CountRefresh("revoked")
			return TokenPair{}, ErrTokenRevoked
		}
		obs.CountRefresh("invalid")
		return TokenPair{}, err
	}

	validator := NewDeviceValidator(cfg.Device, s.warn)
	decision, verr := validator.Validate(sess, client, s.now().UTC())
	switch decision {
	case DecisionRevoke:
		if err := registry.Revoke(ctx, sess.ID); err != nil {
			return TokenPair{}, fmt.Errorf("revoke hijacked session: %w", err)
		}
		obs.CountRefresh("device_mismatch")
		obs.CountSessionsRevoked(1)
		s.emit(ctx, AuditEvent{
			ActorID:    sess.UserID,
			Action:     ActionDeviceMismatch,
			Resource:   ResourceSession,
			ResourceID: sess.ID,
			Metadata:   map[string]any{"stored_ip": sess.IP},
			IP:         client.IP, UserAgent: client.UserAgent,
		})
		return TokenPair{}, ErrDeviceMismatch
	case DecisionReject:
		if errors.Is(verr, ErrRateLimited) {
			obs.CountRefresh("rate_limited")
		} else {
			obs.CountRefresh("invalid")
		}
		return TokenPair{}, verr
	}

	user, err := s.repo.Users().Find(ctx, sess.UserID)
	if err != nil {
		return TokenPair{}, err
	}
	if user.Status == UserStatusSuspended || user.Status == UserStatusArchived {
		obs.CountRefresh("invalid")
		return TokenPair{}, ErrAccountSuspended
	}

	claims, err := s.claimsFor(ctx, user)
	if err != nil {
		return TokenPair{}, err
	}
	// The refreshed access token keeps the scope the login was bound to.
	if sess.OrganizationID != "" {
		claims.OrganizationID = sess.OrganizationID
	}
	claims.StoreID = sess.StoreID
	access, accessExp, err := IssueToken(claims, cfg.AccessTTL(), cfg.AccessSecret())
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := IssueToken(Claims{TokenType: tokenTypeRefresh, RegisteredClaims: subjectClaims(user.ID)}, cfg.RefreshTTL(), cfg.RefreshSecret())
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := registry.Rotate(ctx, sess, refresh, cfg.RefreshTTL(), client, true); err != nil {
		return TokenPair{}, err
	}

	obs.CountRefresh("success")
	s.emit(ctx, AuditEvent{
		ActorID:    user.ID,
		Action:     ActionTokenRefreshed,
		Resource:   ResourceSession,
		ResourceID: sess.ID,
		IP:         client.IP, UserAgent: client.UserAgent,
	})

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Logout revokes a single session (matched by its raw refresh token) or all
// of the user's live sessions, and returns the number of sessions revoked.
func (s *Service) Logout(ctx context.Context, userID, rawRefreshToken string, allSessions bool) (int, error) {
	registry := NewSessionRegistry(s.repo.Sessions(), s.now)

	count := 0
	if allSessions {
		n, err := registry.RevokeAll(ctx, userID)
		if err != nil {
			return 0, err
		}
		count = n
	} else {
		sess, err := registry.Lookup(ctx, rawRefreshToken)
		switch {
		case errors.Is(err, ErrTokenRevoked):
			// Already logged out elsewhere; nothing left to revoke.
		case err != nil:
			return 0, err
		case sess.UserID != userID:
			return 0, ErrUnauthorized
		default:
			if err := registry.Revoke(ctx, sess.ID); err != nil {
				return 0, err
			}
			count = 1
		}
	}

	obs.CountSessionsRevoked(count)
	s.emit(ctx, AuditEvent{
		ActorID:  userID,
		Action:   ActionLogout,
		Resource: ResourceSession,
		Metadata: map[string]any{"sessions_revoked": count, "all_sessions": allSessions},
	})
	return count, nil
}

// resolveScope maps the supplied organization or store slug to the tenant the
// login binds to. Store scope implies the store's organization.
func (s *Service) resolveScope(ctx context.Context, orgSlug, storeSlug string) (*Organization, *Store, error) {
	orgSlug = strings.TrimSpace(orgSlug)
	storeSlug = strings.TrimSpace(storeSlug)

	if orgSlug != "" {
		org, err := s.repo.Organizations().FindBySlug(ctx, orgSlug)
		if err != nil {
			return nil, nil, err
		}
		return org, nil, nil
	}
	if storeSlug != "" {
		store, err := s.repo.Stores().FindBySlug(ctx, storeSlug)
		if err != nil {
			return nil, nil, err
		}
		org, err := s.repo.Organizations().Find(ctx, store.OrganizationID)
		if err != nil {
			return nil, nil, err
		}
		return org, store, nil
	}
	return nil, nil, ErrNotFound
}

// canBindStore reports whether the user may bind a login to the store: a
// staff membership row, being the store's manager, or holding an
// organization-wide role.
func (s *Service) canBindStore(ctx context.Context, store *Store, user *User) (bool, error) {
	if store.ManagerID == user.ID {
		return true, nil
	}
	member, err := s.repo.Stores().IsMember(ctx, store.ID, user.ID)
	if err != nil || member {
		return member, err
	}
	roles, err := s.repo.Roles().ListByUser(ctx, user.ID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.Name == RoleOwner || r.Name == RoleSuperAdmin {
			return true, nil
		}
	}
	return false, nil
}

// mintTokens issues an access/refresh pair and creates the session row for
// the refresh token.
func (s *Service) mintTokens(ctx context.Context, user *User, orgID, storeID string, client ClientInfo) (TokenPair, *Session, error) {
	cfg := s.cfg.Current()

	claims, err := s.claimsFor(ctx, user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	claims.OrganizationID = orgID
	claims.StoreID = storeID

	access, accessExp, err := IssueToken(claims, cfg.AccessTTL(), cfg.AccessSecret())
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := IssueToken(Claims{TokenType: tokenTypeRefresh, RegisteredClaims: subjectClaims(user.ID)}, cfg.RefreshTTL(), cfg.RefreshSecret())
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("sign refresh token: %w", err)
	}

	registry := NewSessionRegistry(s.repo.Sessions(), s.now)
	sess, err := registry.Create(ctx, user.ID, orgID, storeID, refresh, cfg.RefreshTTL(), client)
	if err != nil {
		return TokenPair{}, nil, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, sess, nil
}

// claimsFor loads the user's role and flattened permission sets into a
// claim-set. Scope ids are filled in by the caller.
func (s *Service) claimsFor(ctx context.Context, user *User) (Claims, error) {
	roles, err := s.repo.Roles().ListByUser(ctx, user.ID)
	if err != nil {
		return Claims{}, err
	}
	perms, err := s.repo.Roles().PermissionsForUser(ctx, user.ID)
	if err != nil {
		return Claims{}, err
	}
	roleNames := make([]string, 0, len(roles))
	for _, r := range roles {
		roleNames = append(roleNames, string(r.Name))
	}
	return Claims{
		Email:            user.Email,
		Roles:            roleNames,
		Permissions:      perms,
		OrganizationID:   user.OrganizationID,
		TokenType:        tokenTypeAccess,
		RegisteredClaims: subjectClaims(user.ID),
	}, nil
}

// assignRole assigns a role idempotently. super_admin is a singleton: the
// assignment is refused while any user already holds it.
func (s *Service) assignRole(ctx context.Context, repo Repository, userID string, name RoleName) error {
	if !name.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrNotFound, name)
	}
	role, err := repo.Roles().FindByName(ctx, name)
	if err != nil {
		return err
	}
	if name == RoleSuperAdmin {
		held, err := repo.Roles().HasSuperAdmin(ctx)
		if err != nil {
			return err
		}
		if held {
			return fmt.Errorf("%w: super_admin is already assigned", ErrAlreadyExists)
		}
	}
	return repo.Roles().Assign(ctx, userID, role.ID)
}

func (s *Service) emit(ctx context.Context, e AuditEvent) {
	if s.sink == nil {
		return
	}
	s.sink.Emit(ctx, e)
}

func (s *Service) userEvent(user *User, action string, client ClientInfo, meta map[string]any) AuditEvent {
	return AuditEvent{
		ActorID:    user.ID,
		Action:     action,
		Resource:   ResourceUser,
		ResourceID: user.ID,
		Metadata:   meta,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
	}
}

func (s *Service) warn(event string, fields map[string]any) {
	entry := map[string]any{
		"ts":    s.now().UTC().Format(time.RFC3339Nano),
		"level": "warn",
		"msg":   event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	obs.LogEvent(entry)
}
