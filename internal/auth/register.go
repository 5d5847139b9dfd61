package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shoplane.dev/internal/ids"
)

// RegisterOwnerInput creates a tenant and its owning user in one unit.
type RegisterOwnerInput struct {
	DisplayName      string
	Email            string
	Password         string
	OrganizationName string
	Client           ClientInfo
}

// RegisterCustomerInput creates a customer account under an existing tenant.
type RegisterCustomerInput struct {
	DisplayName      string
	Email            string
	Password         string
	OrganizationSlug string
	Client           ClientInfo
}

// RegisterStaffInput creates a staff account bound to an existing store.
type RegisterStaffInput struct {
	DisplayName string
	Email       string
	Password    string
	StoreSlug   string
	Role        RoleName // staff or manager; defaults to staff
	Client      ClientInfo
}

// RegisterOwner registers a new organization owner. Organization, user,
// default settings and the owner role assignment commit or roll back as one
// unit. Token issuance, session creation, audit and the verification email
// run post-commit and are best-effort.
func (s *Service) RegisterOwner(ctx context.Context, in RegisterOwnerInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if err := validateRegistration(email, in.Password, in.OrganizationName); err != nil {
		return nil, err
	}

	slug := Slugify(in.OrganizationName)
	if slug == "" {
		return nil, &ValidationError{Fields: []string{"organization.name"}}
	}

	passwordHash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var (
		user *User
		org  *Organization
	)
	err = s.repo.InTx(ctx, func(tx Repository) error {
		if _, err := tx.Organizations().FindBySlug(ctx, slug); err == nil {
			return fmt.Errorf("%w: organization slug %q", ErrAlreadyExists, slug)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		org = &Organization{
			ID:        ids.New(),
			Name:      strings.TrimSpace(in.OrganizationName),
			Slug:      slug,
			Status:    OrgStatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Organizations().Create(ctx, org); err != nil {
			return fmt.Errorf("create organization: %w", err)
		}

		user = &User{
			ID:             ids.New(),
			OrganizationID: org.ID,
			Email:          email,
			DisplayName:    strings.TrimSpace(in.DisplayName),
			PasswordHash:   passwordHash,
			Status:         UserStatusPendingVerification,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create owner: %w", err)
		}

		if err := tx.Organizations().SaveSettings(ctx, defaultSettings(org.ID)); err != nil {
			return fmt.Errorf("create settings: %w", err)
		}

		return s.assignRole(ctx, tx, user.ID, RoleOwner)
	})
	if err != nil {
		return nil, err
	}

	return s.finishRegistration(ctx, user, org, nil, in.Client)
}

// RegisterCustomer registers a customer under an existing organization.
func (s *Service) RegisterCustomer(ctx context.Context, in RegisterCustomerInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if err := validateRegistration(email, in.Password, "-"); err != nil {
		return nil, err
	}

	org, err := s.repo.Organizations().FindBySlug(ctx, strings.TrimSpace(in.OrganizationSlug))
	if err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var user *User
	err = s.repo.InTx(ctx, func(tx Repository) error {
		if _, err := tx.Users().FindByEmailInOrg(ctx, email, org.ID); err == nil {
			return fmt.Errorf("%w: email %q", ErrAlreadyExists, email)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		user = &User{
			ID:             ids.New(),
			OrganizationID: org.ID,
			Email:          email,
			DisplayName:    strings.TrimSpace(in.DisplayName),
			PasswordHash:   passwordHash,
			Status:         UserStatusPendingVerification,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		return s.assignRole(ctx, tx, user.ID, RoleCustomer)
	})
	if err != nil {
		return nil, err
	}

	return s.finishRegistration(ctx, user, org, nil, in.Client)
}

// RegisterStaff registers a staff or manager account scoped to a store.
func (s *Service) RegisterStaff(ctx context.Context, in RegisterStaffInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if err := validateRegistration(email, in.Password, "-"); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = RoleStaff
	}
	if role != RoleStaff && role != RoleManager {
		return nil, &ValidationError{Fields: []string{"role"}}
	}

	store, err := s.repo.Stores().FindBySlug(ctx, strings.TrimSpace(in.StoreSlug))
	if err != nil {
		return nil, err
	}
	org, err := s.repo.Organizations().Find(ctx, store.OrganizationID)
	if err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var user *User
	err = s.repo.InTx(ctx, func(tx Repository) error {
		if _, err := tx.Users().FindByEmailInOrg(ctx, email, org.ID); err == nil {
			return fmt.Errorf("%w: email %q", ErrAlreadyExists, email)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		user = &User{
			ID:             ids.New(),
			OrganizationID: org.ID,
			Email:          email,
			DisplayName:    strings.TrimSpace(in.DisplayName),
			PasswordHash:   passwordHash,
			Status:         UserStatusPendingVerification,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create staff: %w", err)
		}
		if err := tx.Stores().AddMember(ctx, store.ID, user.ID); err != nil {
			return fmt.Errorf("add store member: %w", err)
		}
		return s.assignRole(ctx, tx, user.ID, role)
	})
	if err != nil {
		return nil, err
	}

	return s.finishRegistration(ctx, user, org, store, in.Client)
}

// finishRegistration runs the non-transactional tail of every registration:
// credentials, session, audit, verification email. An email failure is
// logged, never surfaced.
func (s *Service) finishRegistration(ctx context.Context, user *User, org *Organization, store *Store, client ClientInfo) (*AuthResult, error) {
	storeID := ""
	if store != nil {
		storeID = store.ID
	}
	tokens, sess, err := s.mintTokens(ctx, user, org.ID, storeID, client)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, AuditEvent{
		ActorID:    user.ID,
		Action:     ActionUserRegistered,
		Resource:   ResourceUser,
		ResourceID: user.ID,
		After:      map[string]any{"email": user.Email, "status": user.Status, "org_id": org.ID},
		IP:         client.IP,
		UserAgent:  client.UserAgent,
	})

	if err := s.SendEmailVerification(ctx, user.ID); err != nil {
		s.warn("auth.register.verification_email_failed", map[string]any{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	return &AuthResult{User: user, Organization: org, Store: store, Session: sess, Tokens: tokens}, nil
}

func defaultSettings(orgID string) *OrganizationSettings {
	return &OrganizationSettings{
		OrganizationID: orgID,
		Metadata: map[string]any{
			"currency": "USD",
			"timezone": "UTC",
			"locale":   "en-US",
		},
	}
}

// validateRegistration collects every violation instead of stopping at the
// first one.
func validateRegistration(email, password, orgName string) error {
	var fields []string
	if email == "" || !strings.Contains(email, "@") {
		fields = append(fields, "email")
	}
	fields = append(fields, passwordViolations(password)...)
	if strings.TrimSpace(orgName) == "" {
		fields = append(fields, "organization.name")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// passwordViolations applies the password strength policy: at least 8
// characters with at least one letter and one digit.
func passwordViolations(password string) []string {
	var fields []string
	if len(password) < 8 {
		fields = append(fields, "password.min_length")
	}
	hasLetter, hasDigit := false, false
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	if !hasLetter {
		fields = append(fields, "password.letter")
	}
	if !hasDigit {
		fields = append(fields, "password.digit")
	}
	return fields
}
