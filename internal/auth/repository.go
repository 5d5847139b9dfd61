package auth

import (
	"context"
	"time"
)

// Repository describes the persistence operations this core requires. The
// InTx variant must observe and produce commit-or-rollback semantics on every
// exit path.
type Repository interface {
	Users() UserRepository
	Organizations() OrganizationRepository
	Stores() StoreRepository
	Roles() RoleRepository
	Sessions() SessionRepository
	Tokens() TokenRepository
	Audit() AuditRepository

	// InTx runs fn against a transaction-scoped Repository. fn returning an
	// error rolls everything back; nil commits.
	InTx(ctx context.Context, fn func(Repository) error) error
}

// UserRepository manages identity records.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailInOrg(ctx context.Context, email, orgID string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// OrganizationRepository manages tenant roots and their settings.
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
	Update(ctx context.Context, org *Organization) error
	Settings(ctx context.Context, orgID string) (*OrganizationSettings, error)
	SaveSettings(ctx context.Context, settings *OrganizationSettings) error
}

// StoreRepository manages sub-tenants.
type StoreRepository interface {
	Create(ctx context.Context, st *Store) error
	Find(ctx context.Context, id string) (*Store, error)
	FindBySlug(ctx context.Context, slug string) (*Store, error)
	ListByOrg(ctx context.Context, orgID string) ([]*Store, error)
	Update(ctx context.Context, st *Store) error
	// AddMember records the store-membership join used for staff login scope.
	AddMember(ctx context.Context, storeID, userID string) error
	IsMember(ctx context.Context, storeID, userID string) (bool, error)
}

// RoleRepository manages roles, permissions and assignments.
type RoleRepository interface {
	FindByName(ctx context.Context, name RoleName) (*Role, error)
	// Assign is idempotent: assigning an already-held role is a no-op.
	Assign(ctx context.Context, userID, roleID string) error
	ListByUser(ctx context.Context, userID string) ([]Role, error)
	PermissionsForUser(ctx context.Context, userID string) ([]string, error)
	// HasSuperAdmin backs the singleton rule: at most one user ever holds
	// the super_admin role.
	HasSuperAdmin(ctx context.Context) (bool, error)
}

// SessionRepository manages refresh-token sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	// FindByTokenHash matches token_hash against unexpired rows, including
	// revoked ones so the caller can reject them explicitly.
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)
	// Rotate overwrites the row's token hash, expiry and last-used time in
	// place. No new row is created.
	Rotate(ctx context.Context, id, newHash string, expiresAt, lastUsed time.Time) error
	// UpdateClient refreshes the device binding after the validator accepted
	// the request.
	UpdateClient(ctx context.Context, id, fingerprint, ip, userAgent string) error
	Revoke(ctx context.Context, id string, at time.Time) error
	// RevokeAll targets rows with revoked=false and expires_at in the future
	// and returns the number affected.
	RevokeAll(ctx context.Context, userID string, at time.Time) (int, error)
	ListActive(ctx context.Context, userID string) ([]*Session, error)
}

// TokenRepository manages single-use verification and reset tokens.
type TokenRepository interface {
	Create(ctx context.Context, t *OneTimeToken) error
	// FindValid matches unused, unexpired tokens of the given kind.
	FindValid(ctx context.Context, kind, hash string) (*OneTimeToken, error)
	MarkUsed(ctx context.Context, id string) error
	// InvalidateUnused marks all unused tokens of the kind as used, so at
	// most one valid token per user and kind exists at a time.
	InvalidateUnused(ctx context.Context, userID, kind string) error
}

// AuditRepository appends immutable events.
type AuditRepository interface {
	Append(ctx context.Context, e *AuditEvent) error
}

// AuditSink is the one-way emitter the orchestrator publishes events to. An
// implementation typically writes both a structured log line and an
// append-only row; failures must never fail the calling flow.
type AuditSink interface {
	Emit(ctx context.Context, e AuditEvent)
}
