package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shoplane.dev/internal/ids"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T, repo Repository, clk *testClock) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AccessTokenSecret = "unit-test-secret"
	svc, err := NewService(repo, NewConfigManager(cfg), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func newTestEnv(t *testing.T) (*Service, *MemoryRepository, *testClock) {
	t.Helper()
	clk := &testClock{t: time.Now().UTC()}
	repo := NewMemoryRepository()
	repo.Now = clk.Now
	return newTestService(t, repo, clk), repo, clk
}

// Hashing at cost 12 is deliberately slow; compute the shared fixture once.
var (
	testHashOnce sync.Once
	testHash     string
)

const testPassword = "hunter2hunter2"

func fixtureHash(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		h, err := HashPassword(testPassword)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		testHash = h
	})
	return testHash
}

func seedTenant(t *testing.T, repo *MemoryRepository, clk *testClock) (*Organization, *User) {
	t.Helper()
	ctx := context.Background()
	now := clk.Now().UTC()
	org := &Organization{
		ID:        ids.New(),
		Name:      "Acme Co",
		Slug:      "acme-co",
		Status:    OrgStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Organizations().Create(ctx, org); err != nil {
		t.Fatalf("seed org: %v", err)
	}
	user := &User{
		ID:             ids.New(),
		OrganizationID: org.ID,
		Email:          "owner@example.com",
		DisplayName:    "Owner",
		PasswordHash:   fixtureHash(t),
		EmailVerified:  true,
		Status:         UserStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Users().Create(ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	role, err := repo.Roles().FindByName(ctx, RoleOwner)
	if err != nil {
		t.Fatalf("find role: %v", err)
	}
	if err := repo.Roles().Assign(ctx, user.ID, role.ID); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	return org, user
}

var testClient = ClientInfo{IP: "203.0.113.7", UserAgent: uaChromeWindows}

func TestRegisterOwnerCreatesTenantUnit(t *testing.T) {
	svc, repo, _ := newTestEnv(t)
	ctx := context.Background()

	res, err := svc.RegisterOwner(ctx, RegisterOwnerInput{
		DisplayName:      "Jamie",
		Email:            "Jamie@Example.com",
		Password:         "s3curepass",
		OrganizationName: "Fresh Goods",
		Client:           testClient,
	})
	if err != nil {
		t.Fatalf("RegisterOwner: %v", err)
	}
	if res.User.Email != "jamie@example.com" {
		t.Fatalf("email not normalized: %q", res.User.Email)
	}
	if res.User.Status != UserStatusPendingVerification {
		t.Fatalf("unexpected user status %q", res.User.Status)
	}
	if res.Organization.Slug != "fresh-goods" || res.Organization.Status != OrgStatusDraft {
		t.Fatalf("unexpected organization %+v", res.Organization)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("missing tokens")
	}
	if repo.SessionCount() != 1 {
		t.Fatalf("expected 1 session row, got %d", repo.SessionCount())
	}

	roles, err := repo.Roles().ListByUser(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(roles) != 1 || roles[0].Name != RoleOwner {
		t.Fatalf("owner role not assigned: %v", roles)
	}

	settings, err := repo.Organizations().Settings(ctx, res.Organization.ID)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.Metadata["currency"] != "USD" {
		t.Fatalf("default settings missing: %+v", settings)
	}

	claims, err := VerifyToken(res.Tokens.AccessToken, []byte("unit-test-secret"))
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.OrganizationID != res.Organization.ID || claims.Subject != res.User.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterOwnerValidationCollectsAllFields(t *testing.T) {
	svc, _, _ := newTestEnv(t)
	_, err := svc.RegisterOwner(context.Background(), RegisterOwnerInput{
		Email:            "not-an-email",
		Password:         "short",
		OrganizationName: "  ",
	})
	verr, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{
		"email":               true,
		"password.min_length": true,
		"password.digit":      true,
		"organization.name":   true,
	}
	if len(verr.Fields) != len(want) {
		t.Fatalf("unexpected fields %v", verr.Fields)
	}
	for _, f := range verr.Fields {
		if !want[f] {
			t.Fatalf("unexpected field %q in %v", f, verr.Fields)
		}
	}
}

func TestRegisterOwnerDuplicateSlug(t *testing.T) {
	svc, repo, _ := newTestEnv(t)
	ctx := context.Background()

	if _, err := svc.RegisterOwner(ctx, RegisterOwnerInput{
		Email: "a@example.com", Password: "s3curepass", OrganizationName: "Fresh Goods",
	}); err != nil {
		t.Fatalf("first RegisterOwner: %v", err)
	}
	_, err := svc.RegisterOwner(ctx, RegisterOwnerInput{
		Email: "b@example.com", Password: "s3curepass", OrganizationName: "Fresh! Goods!",
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if repo.UserCount() != 1 {
		t.Fatalf("conflicting registration leaked rows: %d users", repo.UserCount())
	}
}

// failingRoleRepo wraps a Repository so role assignment fails inside the
// registration transaction.
type failingRoleRepo struct{ Repository }

func (f failingRoleRepo) Roles() RoleRepository {
	return failingRoles{f.Repository.Roles()}
}

func (f failingRoleRepo) InTx(ctx context.Context, fn func(Repository) error) error {
	return f.Repository.InTx(ctx, func(tx Repository) error {
		return fn(failingRoleRepo{tx})
	})
}

type failingRoles struct{ RoleRepository }

func (failingRoles) Assign(ctx context.Context, userID, roleID string) error {
	return errors.New("assign blew up")
}

func TestRegisterOwnerRollsBackOnLateFailure(t *testing.T) {
	clk := &testClock{t: time.Now().UTC()}
	repo := NewMemoryRepository()
	repo.Now = clk.Now
	svc := newTestService(t, failingRoleRepo{repo}, clk)

	_, err := svc.RegisterOwner(context.Background(), RegisterOwnerInput{
		Email: "a@example.com", Password: "s3curepass", OrganizationName: "Fresh Goods",
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	if repo.UserCount() != 0 || repo.OrganizationCount() != 0 || repo.SessionCount() != 0 {
		t.Fatalf("partial writes survived rollback: users=%d orgs=%d sessions=%d",
			repo.UserCount(), repo.OrganizationCount(), repo.SessionCount())
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	seedTenant(t, repo, clk)

	res, err := svc.Login(context.Background(), LoginInput{
		Email:            "owner@example.com",
		Password:         testPassword,
		OrganizationSlug: "acme-co",
		Client:           testClient,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.LastLoginAt == nil {
		t.Fatal("last login not stamped")
	}
	if res.Session == nil || res.Session.Fingerprint == "" {
		t.Fatalf("session binding missing: %+v", res.Session)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	seedTenant(t, repo, clk)
	ctx := context.Background()

	cases := []LoginInput{
		{Email: "owner@example.com", Password: "wrong-pass1", OrganizationSlug: "acme-co"},
		{Email: "ghost@example.com", Password: testPassword, OrganizationSlug: "acme-co"},
		{Email: "owner@example.com", Password: testPassword, OrganizationSlug: "no-such-org"},
		{Email: "owner@example.com", Password: testPassword},
	}
	for i, in := range cases {
		if _, err := svc.Login(ctx, in); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("case %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
}

func TestLoginLockout(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	seedTenant(t, repo, clk)
	ctx := context.Background()

	bad := LoginInput{Email: "owner@example.com", Password: "wrong-pass1", OrganizationSlug: "acme-co"}
	for i := 0; i < DefaultLockoutPolicy().MaxAttempts; i++ {
		if _, err := svc.Login(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	// Correct password while locked must not reveal that it is correct.
	good := LoginInput{Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co"}
	if _, err := svc.Login(ctx, good); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	clk.Advance(DefaultLockoutPolicy().LockDuration + time.Minute)
	res, err := svc.Login(ctx, good)
	if err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
	if res.User.FailedLoginAttempts != 0 || res.User.LockedUntil != nil {
		t.Fatalf("lockout not reset: %+v", res.User)
	}
}

func TestLoginSuspended(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	_, user := seedTenant(t, repo, clk)
	ctx := context.Background()

	user.Status = UserStatusSuspended
	if err := repo.Users().Update(ctx, user); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	_, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co",
	})
	if !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected ErrAccountSuspended, got %v", err)
	}
}

func TestRefreshRotatesInPlace(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	seedTenant(t, repo, clk)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co", Client: testClient,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	clk.Advance(time.Minute)
	pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken, testClient)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.RefreshToken == res.Tokens.RefreshToken {
		t.Fatal("refresh token not rotated")
	}
	if repo.SessionCount() != 1 {
		t.Fatalf("rotation grew the session table: %d rows", repo.SessionCount())
	}

	// The replaced token must be dead immediately.
	clk.Advance(time.Minute)
	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken, testClient); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("old token: expected ErrInvalidToken, got %v", err)
	}

	clk.Advance(time.Minute)
	if _, err := svc.Refresh(ctx, pair.RefreshToken, testClient); err != nil {
		t.Fatalf("new token rejected: %v", err)
	}
}

func TestRefreshRateLimited(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	seedTenant(t, repo, clk)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co", Client: testClient,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	clk.Advance(time.Second)
	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken, testClient); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// A rejected refresh leaves the session usable once the interval passes.
	clk.Advance(time.Minute)
	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken, testClient); err != nil {
		t.Fatalf("refresh after interval: %v", err)
	}
}

func TestRefreshDeviceMismatchRevokesSession(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	seedTenant(t, repo, clk)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co", Client: testClient,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	clk.Advance(time.Minute)
	attacker := ClientInfo{IP: "203.0.113.7", UserAgent: uaFirefoxLinux}
	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken, attacker); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch, got %v", err)
	}

	// The legitimate holder is now locked out too; the theft burned the
	// session.
	clk.Advance(time.Minute)
	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken, testClient); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func seedOrgUser(t *testing.T, repo *MemoryRepository, clk *testClock, orgID, email string, role RoleName) *User {
	t.Helper()
	ctx := context.Background()
	now := clk.Now().UTC()
	user := &User{
		ID:             ids.New(),
		OrganizationID: orgID,
		Email:          email,
		DisplayName:    "Member",
		PasswordHash:   fixtureHash(t),
		EmailVerified:  true,
		Status:         UserStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Users().Create(ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	r, err := repo.Roles().FindByName(ctx, role)
	if err != nil {
		t.Fatalf("find role: %v", err)
	}
	if err := repo.Roles().Assign(ctx, user.ID, r.ID); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	return user
}

func TestLoginStoreScopeRequiresAttachment(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	org, owner := seedTenant(t, repo, clk)
	store := seedStore(t, repo, org.ID, owner.ID)
	ctx := context.Background()

	shopper := seedOrgUser(t, repo, clk, org.ID, "shopper@example.com", RoleCustomer)
	_, err := svc.Login(ctx, LoginInput{
		Email: shopper.Email, Password: testPassword, StoreSlug: store.Slug,
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("non-member store login: expected ErrInvalidCredentials, got %v", err)
	}

	// The same credentials remain valid at organization scope.
	if _, err := svc.Login(ctx, LoginInput{
		Email: shopper.Email, Password: testPassword, OrganizationSlug: org.Slug,
	}); err != nil {
		t.Fatalf("org-scoped login: %v", err)
	}

	clerk := seedOrgUser(t, repo, clk, org.ID, "clerk@example.com", RoleStaff)
	if err := repo.Stores().AddMember(ctx, store.ID, clerk.ID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	res, err := svc.Login(ctx, LoginInput{
		Email: clerk.Email, Password: testPassword, StoreSlug: store.Slug,
	})
	if err != nil {
		t.Fatalf("member store login: %v", err)
	}
	claims, err := VerifyToken(res.Tokens.AccessToken, []byte("unit-test-secret"))
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.StoreID != store.ID {
		t.Fatalf("store claim = %q, want %q", claims.StoreID, store.ID)
	}

	// The organization owner may bind to any of its stores.
	if _, err := svc.Login(ctx, LoginInput{
		Email: owner.Email, Password: testPassword, StoreSlug: store.Slug,
	}); err != nil {
		t.Fatalf("owner store login: %v", err)
	}
}

func TestRefreshKeepsStoreScope(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	org, owner := seedTenant(t, repo, clk)
	store := seedStore(t, repo, org.ID, owner.ID)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{
		Email: owner.Email, Password: testPassword, StoreSlug: store.Slug, Client: testClient,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Session.OrganizationID != org.ID || res.Session.StoreID != store.ID {
		t.Fatalf("session scope not persisted: %+v", res.Session)
	}

	clk.Advance(time.Minute)
	pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken, testClient)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := VerifyToken(pair.AccessToken, []byte("unit-test-secret"))
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.StoreID != store.ID {
		t.Fatalf("refreshed store claim = %q, want %q", claims.StoreID, store.ID)
	}
	if claims.OrganizationID != org.ID {
		t.Fatalf("refreshed org claim = %q, want %q", claims.OrganizationID, org.ID)
	}
}

func TestLogoutSingleSession(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	_, user := seedTenant(t, repo, clk)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co", Client: testClient,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	n, err := svc.Logout(ctx, user.ID, res.Tokens.RefreshToken, false)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 revoked, got %d", n)
	}

	// Idempotent: the second logout finds the session already revoked.
	n, err = svc.Logout(ctx, user.ID, res.Tokens.RefreshToken, false)
	if err != nil || n != 0 {
		t.Fatalf("repeat logout: n=%d err=%v", n, err)
	}
}

func TestLogoutOtherUsersToken(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	seedTenant(t, repo, clk)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co", Client: testClient,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Logout(ctx, "someone-else", res.Tokens.RefreshToken, false); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogoutAllExcludesAlreadyRevoked(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	_, user := seedTenant(t, repo, clk)
	ctx := context.Background()

	registry := NewSessionRegistry(repo.Sessions(), clk.Now)
	var sessions []*Session
	for i := 0; i < 3; i++ {
		sess, err := registry.Create(ctx, user.ID, user.OrganizationID, "", mustRandomToken(t), 24*time.Hour, testClient)
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		sessions = append(sessions, sess)
	}
	if err := svc.RevokeSession(ctx, user.ID, sessions[0].ID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}

	n, err := svc.Logout(ctx, user.ID, "", true)
	if err != nil {
		t.Fatalf("Logout all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked, got %d", n)
	}
	active, err := svc.ListSessions(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("sessions survived logout all: %d", len(active))
	}
}

func mustRandomToken(t *testing.T) string {
	t.Helper()
	raw, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	return raw
}

func TestListSessionsMarksCurrent(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	_, user := seedTenant(t, repo, clk)
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co", Client: testClient,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co",
		Client: ClientInfo{IP: "198.51.100.4", UserAgent: uaFirefoxLinux},
	}); err != nil {
		t.Fatalf("second login: %v", err)
	}

	infos, err := svc.ListSessions(ctx, user.ID, first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	currents := 0
	for _, info := range infos {
		if info.Current {
			currents++
			if info.ID != first.Session.ID {
				t.Fatalf("wrong session flagged current: %s", info.ID)
			}
		}
	}
	if currents != 1 {
		t.Fatalf("expected exactly one current session, got %d", currents)
	}
}

func TestVerifyEmailActivatesAccount(t *testing.T) {
	svc, _, _ := newTestEnv(t)
	ctx := context.Background()

	res, err := svc.RegisterOwner(ctx, RegisterOwnerInput{
		Email: "a@example.com", Password: "s3curepass", OrganizationName: "Fresh Goods",
	})
	if err != nil {
		t.Fatalf("RegisterOwner: %v", err)
	}

	raw, err := svc.issueOneTimeToken(ctx, res.User.ID, TokenKindVerification)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	user, err := svc.VerifyEmail(ctx, raw)
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !user.EmailVerified || user.Status != UserStatusActive {
		t.Fatalf("verification did not activate: %+v", user)
	}

	// Single use.
	if _, err := svc.VerifyEmail(ctx, raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reused token: expected ErrInvalidToken, got %v", err)
	}
}

func TestIssueOneTimeTokenInvalidatesPrior(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	_, user := seedTenant(t, repo, clk)
	ctx := context.Background()

	first, err := svc.issueOneTimeToken(ctx, user.ID, TokenKindPasswordReset)
	if err != nil {
		t.Fatalf("first token: %v", err)
	}
	second, err := svc.issueOneTimeToken(ctx, user.ID, TokenKindPasswordReset)
	if err != nil {
		t.Fatalf("second token: %v", err)
	}

	if _, err := repo.Tokens().FindValid(ctx, TokenKindPasswordReset, HashToken(first)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("prior token still valid: %v", err)
	}
	if _, err := repo.Tokens().FindValid(ctx, TokenKindPasswordReset, HashToken(second)); err != nil {
		t.Fatalf("fresh token invalid: %v", err)
	}
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	_, user := seedTenant(t, repo, clk)
	ctx := context.Background()

	if _, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co", Client: testClient,
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	raw, err := svc.issueOneTimeToken(ctx, user.ID, TokenKindPasswordReset)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if err := svc.ResetPassword(ctx, raw, "brandnewpass9"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	active, err := svc.ListSessions(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("sessions survived reset: %d", len(active))
	}

	if _, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still works: %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: "brandnewpass9", OrganizationSlug: "acme-co",
	}); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	_, user := seedTenant(t, repo, clk)
	ctx := context.Background()

	if err := svc.ChangePassword(ctx, user.ID, "wrong-current1", "brandnewpass9"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, testPassword, "weak"); err == nil {
		t.Fatal("weak password accepted")
	}
	if err := svc.ChangePassword(ctx, user.ID, testPassword, "brandnewpass9"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
}

func TestSuperAdminIsSingleton(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	_, user := seedTenant(t, repo, clk)
	ctx := context.Background()

	if err := svc.assignRole(ctx, repo, user.ID, RoleSuperAdmin); err != nil {
		t.Fatalf("first super_admin assignment: %v", err)
	}
	// Re-assignment to the same holder is refused as well once held.
	if err := svc.assignRole(ctx, repo, "another-user", RoleSuperAdmin); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	svc, repo, clk := newTestEnv(t)
	seedTenant(t, repo, clk)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{
		Email: "owner@example.com", Password: testPassword, OrganizationSlug: "acme-co", Client: testClient,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	p, err := svc.Authenticate(res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate access: %v", err)
	}
	if !p.HasRole(RoleOwner) || !p.HasPermission(PermOrgManage) {
		t.Fatalf("principal missing grants: %+v", p)
	}

	if _, err := svc.Authenticate(res.Tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}
}
