package auth

import "time"

// User lifecycle states. Users are never physically deleted; admin actions
// move them between states instead.
const (
	UserStatusPendingVerification = "pending_verification"
	UserStatusActive              = "active"
	UserStatusSuspended           = "suspended"
	UserStatusArchived            = "archived"
)

// Organization lifecycle states.
const (
	OrgStatusDraft  = "draft"
	OrgStatusActive = "active"
)

// RoleName is the closed set of role identities used across the service.
// Flows compare against these constants, never against free-form strings.
type RoleName string

const (
	RoleSuperAdmin RoleName = "super_admin"
	RoleOwner      RoleName = "owner"
	RoleManager    RoleName = "manager"
	RoleStaff      RoleName = "staff"
	RoleCustomer   RoleName = "customer"
)

// Valid reports whether r is a known role.
func (r RoleName) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleOwner, RoleManager, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// User is an identity record scoped to an organization. Email is unique
// within the owning organization.
type User struct {
	ID                  string
	OrganizationID      string // empty until onboarding assigns one
	Email               string
	DisplayName         string
	PasswordHash        string
	EmailVerified       bool
	Status              string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	OnboardingCompleted bool
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Address is a postal address embedded in organizations and stores.
type Address struct {
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// Organization is the tenant root.
type Organization struct {
	ID          string
	Name        string
	Slug        string
	Status      string
	Description string
	Email       string
	Phone       string
	Address     Address
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrganizationSettings holds tenant-level domain and branding configuration.
type OrganizationSettings struct {
	OrganizationID string
	Hostname       string
	BrandingColors []string
	Metadata       map[string]any
	UpdatedAt      time.Time
}

// Store is a sub-tenant under an organization. Slug is unique within the
// organization, not globally.
type Store struct {
	ID             string
	OrganizationID string
	ManagerID      string
	Name           string
	Slug           string
	Address        Address
	Config         map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Role groups permissions. System roles cannot be deleted while users hold
// them, and super_admin may be held by at most one user system-wide.
type Role struct {
	ID          string
	Name        RoleName
	Description string
	System      bool
	CreatedAt   time.Time
}

// Permission is a fine-grained capability key.
type Permission struct {
	ID          string
	Key         string
	Description string
	CreatedAt   time.Time
}

// Session is one refresh-token row per logged-in device. Only a one-way hash
// of the refresh token is stored.
type Session struct {
	ID             string
	UserID         string
	OrganizationID string
	StoreID        string
	TokenHash      string
	Fingerprint    string
	IP             string
	UserAgent      string
	ExpiresAt      time.Time
	LastUsedAt     time.Time
	Revoked        bool
	RevokedAt      *time.Time
	CreatedAt      time.Time
}

// One-time token kinds.
const (
	TokenKindVerification  = "verification"
	TokenKindPasswordReset = "password_reset"
)

// OneTimeToken is a single-use random token for email verification or
// password reset. Issuing a new token invalidates prior unused ones of the
// same kind.
type OneTimeToken struct {
	ID        string
	UserID    string
	Kind      string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// AuditEvent is an append-only fact. ActorID is empty for anonymous failures.
type AuditEvent struct {
	ID         string
	OccurredAt time.Time
	ActorID    string
	Action     string
	Resource   string
	ResourceID string
	Before     map[string]any
	After      map[string]any
	Metadata   map[string]any
	IP         string
	UserAgent  string
}

// Audit actions emitted by this core.
const (
	ActionUserRegistered         = "auth.user.registered"
	ActionLoginSucceeded         = "auth.login.succeeded"
	ActionLoginFailed            = "auth.login.failed"
	ActionAccountLocked          = "auth.account.locked"
	ActionTokenRefreshed         = "auth.token.refreshed"
	ActionDeviceMismatch         = "auth.session.device_mismatch"
	ActionSessionRevoked         = "auth.session.revoked"
	ActionLogout                 = "auth.logout"
	ActionEmailVerified          = "auth.email.verified"
	ActionPasswordResetRequested = "auth.password.reset_requested"
	ActionPasswordReset          = "auth.password.reset"
	ActionPasswordChanged        = "auth.password.changed"
	ActionOnboardingCompleted    = "auth.onboarding.completed"
)

// Audit resources.
const (
	ResourceUser         = "user"
	ResourceOrganization = "organization"
	ResourceStore        = "store"
	ResourceSession      = "session"
)

// ClientInfo describes the request origin used for session binding.
type ClientInfo struct {
	IP        string
	UserAgent string
}
