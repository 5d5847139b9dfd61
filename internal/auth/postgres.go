package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Repository = (*PGRepository)(nil)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query runs the same
// way inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PGRepository implements Repository using PostgreSQL via the pgx stdlib
// driver.
type PGRepository struct {
	db *sql.DB
	q  dbtx
}

// NewPGRepository wraps an open database handle.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db, q: db}
}

// Open connects to PostgreSQL with pool defaults tuned for the identity
// workload.
func Open(dsn string) (*PGRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewPGRepository(db), nil
}

// Close releases the underlying pool.
func (r *PGRepository) Close() error { return r.db.Close() }

// DB exposes the handle for readiness probes and migrations.
func (r *PGRepository) DB() *sql.DB { return r.db }

func (r *PGRepository) Users() UserRepository                 { return &pgUsers{q: r.q} }
func (r *PGRepository) Organizations() OrganizationRepository { return &pgOrgs{q: r.q} }
func (r *PGRepository) Stores() StoreRepository               { return &pgStores{q: r.q} }
func (r *PGRepository) Roles() RoleRepository                 { return &pgRoles{q: r.q} }
func (r *PGRepository) Sessions() SessionRepository           { return &pgSessions{q: r.q} }
func (r *PGRepository) Tokens() TokenRepository               { return &pgTokens{q: r.q} }
func (r *PGRepository) Audit() AuditRepository                { return &pgAudit{q: r.q} }

// InTx runs fn against a transaction-scoped repository. A nested call reuses
// the ambient transaction.
func (r *PGRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&PGRepository{db: r.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// isUniqueViolation maps Postgres unique-constraint failures onto the
// conflict error class.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// User store ---------------------------------------------------------------

type pgUsers struct{ q dbtx }

const userColumns = `id, coalesce(organization_id, ''), email, display_name, password_hash,
	email_verified, status, failed_login_attempts, locked_until,
	onboarding_completed, last_login_at, created_at, updated_at`

func (s *pgUsers) Create(ctx context.Context, u *User) error {
	_, err := s.q.ExecContext(ctx,
		`insert into users(id, organization_id, email, display_name, password_hash, email_verified, status,
			failed_login_attempts, locked_until, onboarding_completed, last_login_at, created_at, updated_at)
		 values($1, nullif($2,''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.ID, u.OrganizationID, u.Email, u.DisplayName, u.PasswordHash, u.EmailVerified, u.Status,
		u.FailedLoginAttempts, u.LockedUntil, u.OnboardingCompleted, u.LastLoginAt, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user email", ErrAlreadyExists)
	}
	return err
}

func (s *pgUsers) Find(ctx context.Context, id string) (*User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *pgUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1 order by created_at asc limit 1`, email))
}

func (s *pgUsers) FindByEmailInOrg(ctx context.Context, email, orgID string) (*User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1 and organization_id=$2`, email, orgID))
}

func (s *pgUsers) Update(ctx context.Context, u *User) error {
	_, err := s.q.ExecContext(ctx,
		`update users set organization_id=nullif($2,''), display_name=$3, email_verified=$4, status=$5,
			failed_login_attempts=$6, locked_until=$7, onboarding_completed=$8, last_login_at=$9,
			updated_at=now()
		 where id=$1`,
		u.ID, u.OrganizationID, u.DisplayName, u.EmailVerified, u.Status,
		u.FailedLoginAttempts, u.LockedUntil, u.OnboardingCompleted, u.LastLoginAt,
	)
	return err
}

func (s *pgUsers) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.q.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=now() where id=$1`, userID, passwordHash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u           User
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
	)
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.DisplayName, &u.PasswordHash,
		&u.EmailVerified, &u.Status, &u.FailedLoginAttempts, &lockedUntil,
		&u.OnboardingCompleted, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		u.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

// Organization store -------------------------------------------------------

type pgOrgs struct{ q dbtx }

const orgColumns = `id, name, slug, status, description, email, phone,
	address_line1, address_line2, address_city, address_region, address_postal_code, address_country,
	created_at, updated_at`

func (s *pgOrgs) Create(ctx context.Context, org *Organization) error {
	_, err := s.q.ExecContext(ctx,
		`insert into organizations(id, name, slug, status, description, email, phone,
			address_line1, address_line2, address_city, address_region, address_postal_code, address_country,
			created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		org.ID, org.Name, org.Slug, org.Status, org.Description, org.Email, org.Phone,
		org.Address.Line1, org.Address.Line2, org.Address.City, org.Address.Region,
		org.Address.PostalCode, org.Address.Country, org.CreatedAt, org.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: organization slug", ErrAlreadyExists)
	}
	return err
}

func (s *pgOrgs) Find(ctx context.Context, id string) (*Organization, error) {
	return scanOrg(s.q.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where id=$1`, id))
}

func (s *pgOrgs) FindBySlug(ctx context.Context, slug string) (*Organization, error) {
	return scanOrg(s.q.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where slug=$1`, slug))
}

func (s *pgOrgs) Update(ctx context.Context, org *Organization) error {
	_, err := s.q.ExecContext(ctx,
		`update organizations set name=$2, status=$3, description=$4, email=$5, phone=$6,
			address_line1=$7, address_line2=$8, address_city=$9, address_region=$10,
			address_postal_code=$11, address_country=$12, updated_at=now()
		 where id=$1`,
		org.ID, org.Name, org.Status, org.Description, org.Email, org.Phone,
		org.Address.Line1, org.Address.Line2, org.Address.City, org.Address.Region,
		org.Address.PostalCode, org.Address.Country,
	)
	return err
}

func (s *pgOrgs) Settings(ctx context.Context, orgID string) (*OrganizationSettings, error) {
	row := s.q.QueryRowContext(ctx,
		`select organization_id, hostname, branding_colors, metadata, updated_at
		 from organization_settings where organization_id=$1`, orgID)
	var (
		settings OrganizationSettings
		colors   []byte
		metadata []byte
	)
	if err := row.Scan(&settings.OrganizationID, &settings.Hostname, &colors, &metadata, &settings.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(colors, &settings.BrandingColors)
	_ = json.Unmarshal(metadata, &settings.Metadata)
	return &settings, nil
}

func (s *pgOrgs) SaveSettings(ctx context.Context, settings *OrganizationSettings) error {
	colors, _ := json.Marshal(settings.BrandingColors)
	metadata, _ := json.Marshal(settings.Metadata)
	_, err := s.q.ExecContext(ctx,
		`insert into organization_settings(organization_id, hostname, branding_colors, metadata, updated_at)
		 values($1,$2,$3,$4,now())
		 on conflict (organization_id) do update
		 set hostname=excluded.hostname, branding_colors=excluded.branding_colors,
		     metadata=excluded.metadata, updated_at=now()`,
		settings.OrganizationID, settings.Hostname, colors, metadata,
	)
	return err
}

func scanOrg(row *sql.Row) (*Organization, error) {
	var org Organization
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.Status, &org.Description, &org.Email, &org.Phone,
		&org.Address.Line1, &org.Address.Line2, &org.Address.City, &org.Address.Region,
		&org.Address.PostalCode, &org.Address.Country, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// Store store --------------------------------------------------------------

type pgStores struct{ q dbtx }

const storeColumns = `id, organization_id, coalesce(manager_id, ''), name, slug,
	address_line1, address_line2, address_city, address_region, address_postal_code, address_country,
	config, created_at, updated_at`

func (s *pgStores) Create(ctx context.Context, st *Store) error {
	config, _ := json.Marshal(st.Config)
	_, err := s.q.ExecContext(ctx,
		`insert into stores(id, organization_id, manager_id, name, slug,
			address_line1, address_line2, address_city, address_region, address_postal_code, address_country,
			config, created_at, updated_at)
		 values($1,$2,nullif($3,''),$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		st.ID, st.OrganizationID, st.ManagerID, st.Name, st.Slug,
		st.Address.Line1, st.Address.Line2, st.Address.City, st.Address.Region,
		st.Address.PostalCode, st.Address.Country, config, st.CreatedAt, st.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: store slug", ErrAlreadyExists)
	}
	return err
}

func (s *pgStores) Find(ctx context.Context, id string) (*Store, error) {
	return scanStore(s.q.QueryRowContext(ctx,
		`select `+storeColumns+` from stores where id=$1`, id))
}

func (s *pgStores) FindBySlug(ctx context.Context, slug string) (*Store, error) {
	// Slug is unique within an organization; across organizations the oldest
	// match wins.
	return scanStore(s.q.QueryRowContext(ctx,
		`select `+storeColumns+` from stores where slug=$1 order by created_at asc limit 1`, slug))
}

func (s *pgStores) ListByOrg(ctx context.Context, orgID string) ([]*Store, error) {
	rows, err := s.q.QueryContext(ctx,
		`select `+storeColumns+` from stores where organization_id=$1 order by created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []*Store
	for rows.Next() {
		st, err := scanStoreRow(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

func (s *pgStores) Update(ctx context.Context, st *Store) error {
	config, _ := json.Marshal(st.Config)
	_, err := s.q.ExecContext(ctx,
		`update stores set manager_id=nullif($2,''), name=$3,
			address_line1=$4, address_line2=$5, address_city=$6, address_region=$7,
			address_postal_code=$8, address_country=$9, config=$10, updated_at=now()
		 where id=$1`,
		st.ID, st.ManagerID, st.Name,
		st.Address.Line1, st.Address.Line2, st.Address.City, st.Address.Region,
		st.Address.PostalCode, st.Address.Country, config,
	)
	return err
}

func (s *pgStores) AddMember(ctx context.Context, storeID, userID string) error {
	_, err := s.q.ExecContext(ctx,
		`insert into store_members(store_id, user_id) values($1,$2) on conflict do nothing`,
		storeID, userID)
	return err
}

func (s *pgStores) IsMember(ctx context.Context, storeID, userID string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`select exists(select 1 from store_members where store_id=$1 and user_id=$2)`,
		storeID, userID).Scan(&exists)
	return exists, err
}

func scanStore(row *sql.Row) (*Store, error) {
	var (
		st     Store
		config []byte
	)
	err := row.Scan(&st.ID, &st.OrganizationID, &st.ManagerID, &st.Name, &st.Slug,
		&st.Address.Line1, &st.Address.Line2, &st.Address.City, &st.Address.Region,
		&st.Address.PostalCode, &st.Address.Country, &config, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(config, &st.Config)
	return &st, nil
}

func scanStoreRow(rows *sql.Rows) (*Store, error) {
	var (
		st     Store
		config []byte
	)
	err := rows.Scan(&st.ID, &st.OrganizationID, &st.ManagerID, &st.Name, &st.Slug,
		&st.Address.Line1, &st.Address.Line2, &st.Address.City, &st.Address.Region,
		&st.Address.PostalCode, &st.Address.Country, &config, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(config, &st.Config)
	return &st, nil
}

// Role store ---------------------------------------------------------------

type pgRoles struct{ q dbtx }

func (s *pgRoles) FindByName(ctx context.Context, name RoleName) (*Role, error) {
	row := s.q.QueryRowContext(ctx,
		`select id, name, description, is_system, created_at from roles where name=$1`, string(name))
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.System, &role.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (s *pgRoles) Assign(ctx context.Context, userID, roleID string) error {
	_, err := s.q.ExecContext(ctx,
		`insert into user_roles(user_id, role_id) values($1,$2) on conflict do nothing`,
		userID, roleID)
	return err
}

func (s *pgRoles) ListByUser(ctx context.Context, userID string) ([]Role, error) {
	rows, err := s.q.QueryContext(ctx,
		`select r.id, r.name, r.description, r.is_system, r.created_at
		 from roles r join user_roles ur on ur.role_id=r.id
		 where ur.user_id=$1 order by r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.System, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *pgRoles) PermissionsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`select distinct p.key
		 from permissions p
		 join role_permissions rp on rp.permission_id=p.id
		 join user_roles ur on ur.role_id=rp.role_id
		 where ur.user_id=$1 order by p.key`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *pgRoles) HasSuperAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`select exists(
			select 1 from user_roles ur join roles r on r.id=ur.role_id where r.name=$1
		)`, string(RoleSuperAdmin)).Scan(&exists)
	return exists, err
}

// Session store ------------------------------------------------------------

type pgSessions struct{ q dbtx }

const sessionColumns = `id, user_id, coalesce(organization_id, ''), coalesce(store_id, ''),
	token_hash, fingerprint, ip, user_agent,
	expires_at, last_used_at, revoked, revoked_at, created_at`

func (s *pgSessions) Create(ctx context.Context, sess *Session) error {
	_, err := s.q.ExecContext(ctx,
		`insert into sessions(id, user_id, organization_id, store_id, token_hash, fingerprint, ip, user_agent,
			expires_at, last_used_at, revoked, revoked_at, created_at)
		 values($1,$2,nullif($3,''),nullif($4,''),$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		sess.ID, sess.UserID, sess.OrganizationID, sess.StoreID, sess.TokenHash, sess.Fingerprint, sess.IP, sess.UserAgent,
		sess.ExpiresAt, sess.LastUsedAt, sess.Revoked, sess.RevokedAt, sess.CreatedAt,
	)
	return err
}

func (s *pgSessions) Find(ctx context.Context, id string) (*Session, error) {
	return scanSession(s.q.QueryRowContext(ctx,
		`select `+sessionColumns+` from sessions where id=$1`, id))
}

func (s *pgSessions) FindByTokenHash(ctx context.Context, hash string) (*Session, error) {
	// Revoked rows are returned so the caller can reject them explicitly;
	// expired rows never match.
	return scanSession(s.q.QueryRowContext(ctx,
		`select `+sessionColumns+` from sessions where token_hash=$1 and expires_at > now()`, hash))
}

func (s *pgSessions) Rotate(ctx context.Context, id, newHash string, expiresAt, lastUsed time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`update sessions set token_hash=$2, expires_at=$3, last_used_at=$4
		 where id=$1 and revoked=false`,
		id, newHash, expiresAt, lastUsed)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTokenRevoked
	}
	return nil
}

func (s *pgSessions) UpdateClient(ctx context.Context, id, fingerprint, ip, userAgent string) error {
	_, err := s.q.ExecContext(ctx,
		`update sessions set fingerprint=$2, ip=$3, user_agent=$4 where id=$1`,
		id, fingerprint, ip, userAgent)
	return err
}

func (s *pgSessions) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`update sessions set revoked=true, revoked_at=$2 where id=$1 and revoked=false`, id, at)
	return err
}

func (s *pgSessions) RevokeAll(ctx context.Context, userID string, at time.Time) (int, error) {
	res, err := s.q.ExecContext(ctx,
		`update sessions set revoked=true, revoked_at=$2
		 where user_id=$1 and revoked=false and expires_at > now()`, userID, at)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *pgSessions) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.q.QueryContext(ctx,
		`select `+sessionColumns+` from sessions
		 where user_id=$1 and revoked=false and expires_at > now()
		 order by last_used_at desc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var (
			sess      Session
			revokedAt sql.NullTime
		)
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.OrganizationID, &sess.StoreID,
			&sess.TokenHash, &sess.Fingerprint, &sess.IP,
			&sess.UserAgent, &sess.ExpiresAt, &sess.LastUsedAt, &sess.Revoked, &revokedAt, &sess.CreatedAt); err != nil {
			return nil, err
		}
		if revokedAt.Valid {
			t := revokedAt.Time
			sess.RevokedAt = &t
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

func scanSession(row *sql.Row) (*Session, error) {
	var (
		sess      Session
		revokedAt sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.OrganizationID, &sess.StoreID,
		&sess.TokenHash, &sess.Fingerprint, &sess.IP,
		&sess.UserAgent, &sess.ExpiresAt, &sess.LastUsedAt, &sess.Revoked, &revokedAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		sess.RevokedAt = &t
	}
	return &sess, nil
}

// One-time token store -------------------------------------------------------

type pgTokens struct{ q dbtx }

func (s *pgTokens) Create(ctx context.Context, t *OneTimeToken) error {
	_, err := s.q.ExecContext(ctx,
		`insert into one_time_tokens(id, user_id, kind, token_hash, expires_at, used, created_at)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.UserID, t.Kind, t.TokenHash, t.ExpiresAt, t.Used, t.CreatedAt,
	)
	return err
}

func (s *pgTokens) FindValid(ctx context.Context, kind, hash string) (*OneTimeToken, error) {
	row := s.q.QueryRowContext(ctx,
		`select id, user_id, kind, token_hash, expires_at, used, created_at
		 from one_time_tokens
		 where kind=$1 and token_hash=$2 and used=false and expires_at > now()`, kind, hash)
	var t OneTimeToken
	if err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.TokenHash, &t.ExpiresAt, &t.Used, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *pgTokens) MarkUsed(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx,
		`update one_time_tokens set used=true where id=$1 and used=false`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgTokens) InvalidateUnused(ctx context.Context, userID, kind string) error {
	_, err := s.q.ExecContext(ctx,
		`update one_time_tokens set used=true where user_id=$1 and kind=$2 and used=false`, userID, kind)
	return err
}

// Audit store --------------------------------------------------------------

type pgAudit struct{ q dbtx }

func (s *pgAudit) Append(ctx context.Context, e *AuditEvent) error {
	before, _ := json.Marshal(e.Before)
	after, _ := json.Marshal(e.After)
	metadata, _ := json.Marshal(e.Metadata)
	_, err := s.q.ExecContext(ctx,
		`insert into audit_events(id, occurred_at, actor_id, action, resource, resource_id,
			before, after, metadata, ip, user_agent)
		 values($1,$2,nullif($3,''),$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.OccurredAt, e.ActorID, e.Action, e.Resource, e.ResourceID,
		before, after, metadata, e.IP, e.UserAgent,
	)
	return err
}
