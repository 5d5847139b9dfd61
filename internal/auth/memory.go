package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shoplane.dev/internal/ids"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is a process-local Repository used by tests and local
// development. Reads return copies, so callers never alias internal state.
type MemoryRepository struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	Now func() time.Time

	users        map[string]User
	orgs         map[string]Organization
	settings     map[string]OrganizationSettings
	stores       map[string]Store
	storeMembers map[string]map[string]bool
	roles        map[string]Role
	userRoles    map[string]map[string]bool
	rolePerms    map[string][]string
	sessions     map[string]Session
	tokens       map[string]OneTimeToken
	events       []AuditEvent
}

// NewMemoryRepository builds an empty repository pre-seeded with the builtin
// roles and their permission bundles.
func NewMemoryRepository() *MemoryRepository {
	m := &MemoryRepository{
		Now:          time.Now,
		users:        make(map[string]User),
		orgs:         make(map[string]Organization),
		settings:     make(map[string]OrganizationSettings),
		stores:       make(map[string]Store),
		storeMembers: make(map[string]map[string]bool),
		roles:        make(map[string]Role),
		userRoles:    make(map[string]map[string]bool),
		rolePerms:    make(map[string][]string),
		sessions:     make(map[string]Session),
		tokens:       make(map[string]OneTimeToken),
	}
	for _, name := range []RoleName{RoleSuperAdmin, RoleOwner, RoleManager, RoleStaff, RoleCustomer} {
		id := "role_" + string(name)
		m.roles[id] = Role{ID: id, Name: name, System: true, CreatedAt: m.Now().UTC()}
		if perms, ok := BuiltinRolePermissions[name]; ok {
			m.rolePerms[id] = append([]string(nil), perms...)
		}
	}
	return m
}

func (m *MemoryRepository) Users() UserRepository                 { return &memUsers{m} }
func (m *MemoryRepository) Organizations() OrganizationRepository { return &memOrgs{m} }
func (m *MemoryRepository) Stores() StoreRepository               { return &memStores{m} }
func (m *MemoryRepository) Roles() RoleRepository                 { return &memRoles{m} }
func (m *MemoryRepository) Sessions() SessionRepository           { return &memSessions{m} }
func (m *MemoryRepository) Tokens() TokenRepository               { return &memTokens{m} }
func (m *MemoryRepository) Audit() AuditRepository                { return &memAudit{m} }

// InTx serializes transactions and restores a snapshot when fn fails, so a
// mid-flow error leaves no partial writes behind.
func (m *MemoryRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	users        map[string]User
	orgs         map[string]Organization
	settings     map[string]OrganizationSettings
	stores       map[string]Store
	storeMembers map[string]map[string]bool
	roles        map[string]Role
	userRoles    map[string]map[string]bool
	rolePerms    map[string][]string
	sessions     map[string]Session
	tokens       map[string]OneTimeToken
	events       []AuditEvent
}

func (m *MemoryRepository) snapshot() memSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := memSnapshot{
		users:        make(map[string]User, len(m.users)),
		orgs:         make(map[string]Organization, len(m.orgs)),
		settings:     make(map[string]OrganizationSettings, len(m.settings)),
		stores:       make(map[string]Store, len(m.stores)),
		storeMembers: make(map[string]map[string]bool, len(m.storeMembers)),
		roles:        make(map[string]Role, len(m.roles)),
		userRoles:    make(map[string]map[string]bool, len(m.userRoles)),
		rolePerms:    make(map[string][]string, len(m.rolePerms)),
		sessions:     make(map[string]Session, len(m.sessions)),
		tokens:       make(map[string]OneTimeToken, len(m.tokens)),
		events:       append([]AuditEvent(nil), m.events...),
	}
	for k, v := range m.users {
		snap.users[k] = v
	}
	for k, v := range m.orgs {
		snap.orgs[k] = v
	}
	for k, v := range m.settings {
		snap.settings[k] = v
	}
	for k, v := range m.stores {
		snap.stores[k] = v
	}
	for k, v := range m.storeMembers {
		inner := make(map[string]bool, len(v))
		for kk, vv := range v {
			inner[kk] = vv
		}
		snap.storeMembers[k] = inner
	}
	for k, v := range m.roles {
		snap.roles[k] = v
	}
	for k, v := range m.userRoles {
		inner := make(map[string]bool, len(v))
		for kk, vv := range v {
			inner[kk] = vv
		}
		snap.userRoles[k] = inner
	}
	for k, v := range m.rolePerms {
		snap.rolePerms[k] = append([]string(nil), v...)
	}
	for k, v := range m.sessions {
		snap.sessions[k] = v
	}
	for k, v := range m.tokens {
		snap.tokens[k] = v
	}
	return snap
}

func (m *MemoryRepository) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = snap.users
	m.orgs = snap.orgs
	m.settings = snap.settings
	m.stores = snap.stores
	m.storeMembers = snap.storeMembers
	m.roles = snap.roles
	m.userRoles = snap.userRoles
	m.rolePerms = snap.rolePerms
	m.sessions = snap.sessions
	m.tokens = snap.tokens
	m.events = snap.events
}

// Users ---------------------------------------------------------------------

type memUsers struct{ m *MemoryRepository }

func (s *memUsers) Create(ctx context.Context, u *User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.users {
		if existing.Email == u.Email && existing.OrganizationID == u.OrganizationID {
			return fmt.Errorf("%w: user email", ErrAlreadyExists)
		}
	}
	s.m.users[u.ID] = *u
	return nil
}

func (s *memUsers) Find(ctx context.Context, id string) (*User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var (
		found  *User
		oldest time.Time
	)
	for _, u := range s.m.users {
		if u.Email != email {
			continue
		}
		if found == nil || u.CreatedAt.Before(oldest) {
			copied := u
			found = &copied
			oldest = u.CreatedAt
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *memUsers) FindByEmailInOrg(ctx context.Context, email, orgID string) (*User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, u := range s.m.users {
		if u.Email == email && u.OrganizationID == orgID {
			copied := u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUsers) Update(ctx context.Context, u *User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[u.ID]; !ok {
		return ErrNotFound
	}
	updated := *u
	updated.UpdatedAt = s.m.Now().UTC()
	s.m.users[u.ID] = updated
	return nil
}

func (s *memUsers) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.m.Now().UTC()
	s.m.users[userID] = u
	return nil
}

// Organizations -------------------------------------------------------------

type memOrgs struct{ m *MemoryRepository }

func (s *memOrgs) Create(ctx context.Context, org *Organization) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.orgs {
		if existing.Slug == org.Slug {
			return fmt.Errorf("%w: organization slug", ErrAlreadyExists)
		}
	}
	s.m.orgs[org.ID] = *org
	return nil
}

func (s *memOrgs) Find(ctx context.Context, id string) (*Organization, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	org, ok := s.m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

func (s *memOrgs) FindBySlug(ctx context.Context, slug string) (*Organization, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, org := range s.m.orgs {
		if org.Slug == slug {
			copied := org
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memOrgs) Update(ctx context.Context, org *Organization) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.orgs[org.ID]; !ok {
		return ErrNotFound
	}
	updated := *org
	updated.UpdatedAt = s.m.Now().UTC()
	s.m.orgs[org.ID] = updated
	return nil
}

func (s *memOrgs) Settings(ctx context.Context, orgID string) (*OrganizationSettings, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	settings, ok := s.m.settings[orgID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := settings
	copied.BrandingColors = append([]string(nil), settings.BrandingColors...)
	return &copied, nil
}

func (s *memOrgs) SaveSettings(ctx context.Context, settings *OrganizationSettings) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	saved := *settings
	saved.BrandingColors = append([]string(nil), settings.BrandingColors...)
	saved.UpdatedAt = s.m.Now().UTC()
	s.m.settings[settings.OrganizationID] = saved
	return nil
}

// Stores --------------------------------------------------------------------

type memStores struct{ m *MemoryRepository }

func (s *memStores) Create(ctx context.Context, st *Store) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.stores {
		if existing.OrganizationID == st.OrganizationID && existing.Slug == st.Slug {
			return fmt.Errorf("%w: store slug", ErrAlreadyExists)
		}
	}
	s.m.stores[st.ID] = *st
	return nil
}

func (s *memStores) Find(ctx context.Context, id string) (*Store, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	st, ok := s.m.stores[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

func (s *memStores) FindBySlug(ctx context.Context, slug string) (*Store, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var (
		found  *Store
		oldest time.Time
	)
	for _, st := range s.m.stores {
		if st.Slug != slug {
			continue
		}
		if found == nil || st.CreatedAt.Before(oldest) {
			copied := st
			found = &copied
			oldest = st.CreatedAt
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *memStores) ListByOrg(ctx context.Context, orgID string) ([]*Store, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var stores []*Store
	for _, st := range s.m.stores {
		if st.OrganizationID == orgID {
			copied := st
			stores = append(stores, &copied)
		}
	}
	return stores, nil
}

func (s *memStores) Update(ctx context.Context, st *Store) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.stores[st.ID]; !ok {
		return ErrNotFound
	}
	updated := *st
	updated.UpdatedAt = s.m.Now().UTC()
	s.m.stores[st.ID] = updated
	return nil
}

func (s *memStores) AddMember(ctx context.Context, storeID, userID string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	members, ok := s.m.storeMembers[storeID]
	if !ok {
		members = make(map[string]bool)
		s.m.storeMembers[storeID] = members
	}
	members[userID] = true
	return nil
}

func (s *memStores) IsMember(ctx context.Context, storeID, userID string) (bool, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return s.m.storeMembers[storeID][userID], nil
}

// Roles ---------------------------------------------------------------------

type memRoles struct{ m *MemoryRepository }

func (s *memRoles) FindByName(ctx context.Context, name RoleName) (*Role, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, role := range s.m.roles {
		if role.Name == name {
			copied := role
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memRoles) Assign(ctx context.Context, userID, roleID string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	held, ok := s.m.userRoles[userID]
	if !ok {
		held = make(map[string]bool)
		s.m.userRoles[userID] = held
	}
	held[roleID] = true
	return nil
}

func (s *memRoles) ListByUser(ctx context.Context, userID string) ([]Role, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var roles []Role
	for roleID := range s.m.userRoles[userID] {
		if role, ok := s.m.roles[roleID]; ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (s *memRoles) PermissionsForUser(ctx context.Context, userID string) ([]string, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	seen := make(map[string]bool)
	var keys []string
	for roleID := range s.m.userRoles[userID] {
		for _, key := range s.m.rolePerms[roleID] {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (s *memRoles) HasSuperAdmin(ctx context.Context) (bool, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	superAdminRoleID := "role_" + string(RoleSuperAdmin)
	for _, held := range s.m.userRoles {
		if held[superAdminRoleID] {
			return true, nil
		}
	}
	return false, nil
}

// Sessions ------------------------------------------------------------------

type memSessions struct{ m *MemoryRepository }

func (s *memSessions) Create(ctx context.Context, sess *Session) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.sessions[sess.ID] = *sess
	return nil
}

func (s *memSessions) Find(ctx context.Context, id string) (*Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	sess, ok := s.m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *memSessions) FindByTokenHash(ctx context.Context, hash string) (*Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	now := s.m.Now().UTC()
	for _, sess := range s.m.sessions {
		if sess.TokenHash == hash && sess.ExpiresAt.After(now) {
			copied := sess
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memSessions) Rotate(ctx context.Context, id, newHash string, expiresAt, lastUsed time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sess, ok := s.m.sessions[id]
	if !ok || sess.Revoked {
		return ErrTokenRevoked
	}
	sess.TokenHash = newHash
	sess.ExpiresAt = expiresAt
	sess.LastUsedAt = lastUsed
	s.m.sessions[id] = sess
	return nil
}

func (s *memSessions) UpdateClient(ctx context.Context, id, fingerprint, ip, userAgent string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sess, ok := s.m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Fingerprint = fingerprint
	sess.IP = ip
	sess.UserAgent = userAgent
	s.m.sessions[id] = sess
	return nil
}

func (s *memSessions) Revoke(ctx context.Context, id string, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sess, ok := s.m.sessions[id]
	if !ok || sess.Revoked {
		return nil
	}
	sess.Revoked = true
	sess.RevokedAt = &at
	s.m.sessions[id] = sess
	return nil
}

func (s *memSessions) RevokeAll(ctx context.Context, userID string, at time.Time) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n := 0
	for id, sess := range s.m.sessions {
		if sess.UserID != userID || sess.Revoked || !sess.ExpiresAt.After(at) {
			continue
		}
		sess.Revoked = true
		revokedAt := at
		sess.RevokedAt = &revokedAt
		s.m.sessions[id] = sess
		n++
	}
	return n, nil
}

func (s *memSessions) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	now := s.m.Now().UTC()
	var sessions []*Session
	for _, sess := range s.m.sessions {
		if sess.UserID == userID && !sess.Revoked && sess.ExpiresAt.After(now) {
			copied := sess
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}

// One-time tokens -----------------------------------------------------------

type memTokens struct{ m *MemoryRepository }

func (s *memTokens) Create(ctx context.Context, t *OneTimeToken) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New()
	}
	s.m.tokens[t.ID] = *t
	return nil
}

func (s *memTokens) FindValid(ctx context.Context, kind, hash string) (*OneTimeToken, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	now := s.m.Now().UTC()
	for _, t := range s.m.tokens {
		if t.Kind == kind && t.TokenHash == hash && !t.Used && t.ExpiresAt.After(now) {
			copied := t
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memTokens) MarkUsed(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tokens[id]
	if !ok || t.Used {
		return ErrNotFound
	}
	t.Used = true
	s.m.tokens[id] = t
	return nil
}

func (s *memTokens) InvalidateUnused(ctx context.Context, userID, kind string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, t := range s.m.tokens {
		if t.UserID == userID && t.Kind == kind && !t.Used {
			t.Used = true
			s.m.tokens[id] = t
		}
	}
	return nil
}

// Audit ---------------------------------------------------------------------

type memAudit struct{ m *MemoryRepository }

func (s *memAudit) Append(ctx context.Context, e *AuditEvent) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.events = append(s.m.events, *e)
	return nil
}

// Events returns a copy of the recorded audit trail.
func (m *MemoryRepository) Events() []AuditEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]AuditEvent(nil), m.events...)
}

// SessionCount reports the total number of session rows, live or not.
func (m *MemoryRepository) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// UserCount reports the total number of user rows.
func (m *MemoryRepository) UserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// OrganizationCount reports the total number of organization rows.
func (m *MemoryRepository) OrganizationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orgs)
}
