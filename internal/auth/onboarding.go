package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shoplane.dev/internal/ids"
)

// OnboardingStep is the derived position in the tenant-onboarding flow. It is
// computed from persisted completeness, never stored as a column.
type OnboardingStep string

const (
	StepVerifyEmail        OnboardingStep = "verify_email"
	StepCreateOrganization OnboardingStep = "create_organization"
	StepCompleteSetup      OnboardingStep = "complete_setup"
	StepComplete           OnboardingStep = "complete"
)

// NextStep is the pure transition function of the onboarding state machine.
func NextStep(emailVerified, hasOrganization, completed bool) OnboardingStep {
	switch {
	case !emailVerified:
		return StepVerifyEmail
	case !hasOrganization:
		return StepCreateOrganization
	case !completed:
		return StepCompleteSetup
	default:
		return StepComplete
	}
}

// OnboardingStatus reports where a user stands in the flow.
type OnboardingStatus struct {
	NextStep        OnboardingStep
	EmailVerified   bool
	HasOrganization bool
	Completed       bool
}

// GetOnboardingStatus computes the user's current onboarding position.
func (s *Service) GetOnboardingStatus(ctx context.Context, userID string) (OnboardingStatus, error) {
	user, err := s.repo.Users().Find(ctx, userID)
	if err != nil {
		return OnboardingStatus{}, err
	}
	hasOrg := user.OrganizationID != ""
	return OnboardingStatus{
		NextStep:        NextStep(user.EmailVerified, hasOrg, user.OnboardingCompleted),
		EmailVerified:   user.EmailVerified,
		HasOrganization: hasOrg,
		Completed:       user.OnboardingCompleted,
	}, nil
}

// OrganizationInput names a new tenant created mid-onboarding.
type OrganizationInput struct {
	Name        string
	Description string
}

// CreateOrganizationDuringOnboarding creates a draft organization for a
// verified user who has none yet, assigning them the owner role. The unit is
// transactional, mirroring owner registration.
func (s *Service) CreateOrganizationDuringOnboarding(ctx context.Context, userID string, in OrganizationInput) (*Organization, error) {
	user, err := s.repo.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrUnauthorized)
	}
	if user.OrganizationID != "" {
		return nil, fmt.Errorf("%w: user already belongs to an organization", ErrAlreadyExists)
	}

	slug := Slugify(in.Name)
	if slug == "" {
		return nil, &ValidationError{Fields: []string{"organization.name"}}
	}

	now := s.now().UTC()
	org := &Organization{
		ID:          ids.New(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Status:      OrgStatusDraft,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.repo.InTx(ctx, func(tx Repository) error {
		if _, err := tx.Organizations().FindBySlug(ctx, slug); err == nil {
			return fmt.Errorf("%w: organization slug %q", ErrAlreadyExists, slug)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := tx.Organizations().Create(ctx, org); err != nil {
			return fmt.Errorf("create organization: %w", err)
		}
		if err := tx.Organizations().SaveSettings(ctx, defaultSettings(org.ID)); err != nil {
			return fmt.Errorf("create settings: %w", err)
		}
		user.OrganizationID = org.ID
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("link user: %w", err)
		}
		return s.assignRole(ctx, tx, user.ID, RoleOwner)
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// SetupOrganizationInput carries the profile fields collected during setup.
type SetupOrganizationInput struct {
	Description    string
	Email          string
	Phone          string
	Address        Address
	Hostname       string
	BrandingColors []string
}

// SetupOrganization fills in the organization profile and domain settings.
func (s *Service) SetupOrganization(ctx context.Context, userID string, in SetupOrganizationInput) (*Organization, error) {
	_, org, err := s.ownedOrganization(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Description != "" {
		org.Description = strings.TrimSpace(in.Description)
	}
	if in.Email != "" {
		org.Email = strings.TrimSpace(strings.ToLower(in.Email))
	}
	if in.Phone != "" {
		org.Phone = strings.TrimSpace(in.Phone)
	}
	if in.Address != (Address{}) {
		org.Address = in.Address
	}
	org.UpdatedAt = s.now().UTC()
	if err := s.repo.Organizations().Update(ctx, org); err != nil {
		return nil, fmt.Errorf("persist organization: %w", err)
	}

	if in.Hostname != "" || len(in.BrandingColors) > 0 {
		settings, err := s.repo.Organizations().Settings(ctx, org.ID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			settings = defaultSettings(org.ID)
		}
		if in.Hostname != "" {
			settings.Hostname = strings.TrimSpace(strings.ToLower(in.Hostname))
		}
		if len(in.BrandingColors) > 0 {
			settings.BrandingColors = in.BrandingColors
		}
		if err := s.repo.Organizations().SaveSettings(ctx, settings); err != nil {
			return nil, fmt.Errorf("persist settings: %w", err)
		}
	}
	return org, nil
}

// StoreInput names a new store created mid-onboarding.
type StoreInput struct {
	Name    string
	Address Address
	Config  map[string]any
}

// CreateStoreDuringOnboarding creates a store under the user's organization
// with the user as manager. The slug is unique within the organization.
func (s *Service) CreateStoreDuringOnboarding(ctx context.Context, userID string, in StoreInput) (*Store, error) {
	user, org, err := s.ownedOrganization(ctx, userID)
	if err != nil {
		return nil, err
	}

	slug := Slugify(in.Name)
	if slug == "" {
		return nil, &ValidationError{Fields: []string{"store.name"}}
	}

	now := s.now().UTC()
	store := &Store{
		ID:             ids.New(),
		OrganizationID: org.ID,
		ManagerID:      user.ID,
		Name:           strings.TrimSpace(in.Name),
		Slug:           slug,
		Address:        in.Address,
		Config:         in.Config,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Stores().Create(ctx, store); err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	return store, nil
}

// SetupStore updates a store's profile during onboarding.
func (s *Service) SetupStore(ctx context.Context, userID, storeID string, in StoreInput) (*Store, error) {
	_, org, err := s.ownedOrganization(ctx, userID)
	if err != nil {
		return nil, err
	}
	store, err := s.repo.Stores().Find(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.OrganizationID != org.ID {
		return nil, ErrUnauthorized
	}

	if in.Name != "" {
		store.Name = strings.TrimSpace(in.Name)
	}
	if in.Address != (Address{}) {
		store.Address = in.Address
	}
	if in.Config != nil {
		store.Config = in.Config
	}
	store.UpdatedAt = s.now().UTC()
	if err := s.repo.Stores().Update(ctx, store); err != nil {
		return nil, fmt.Errorf("persist store: %w", err)
	}
	return store, nil
}

// CompleteOnboarding re-validates the full completion checklist and, only
// when every item passes, marks the user onboarded and activates the
// organization. Any missing item aborts with the complete list of missing
// fields.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string) error {
	user, org, err := s.ownedOrganization(ctx, userID)
	if err != nil {
		return err
	}

	settings, err := s.repo.Organizations().Settings(ctx, org.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	stores, err := s.repo.Stores().ListByOrg(ctx, org.ID)
	if err != nil {
		return err
	}

	if fields := completionChecklist(org, settings, stores); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	err = s.repo.InTx(ctx, func(tx Repository) error {
		user.OnboardingCompleted = true
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("persist user: %w", err)
		}
		org.Status = OrgStatusActive
		org.UpdatedAt = s.now().UTC()
		if err := tx.Organizations().Update(ctx, org); err != nil {
			return fmt.Errorf("activate organization: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, AuditEvent{
		ActorID:    user.ID,
		Action:     ActionOnboardingCompleted,
		Resource:   ResourceOrganization,
		ResourceID: org.ID,
		After:      map[string]any{"status": OrgStatusActive},
	})
	return nil
}

// completionChecklist returns every missing completion requirement.
func completionChecklist(org *Organization, settings *OrganizationSettings, stores []*Store) []string {
	var fields []string
	if strings.TrimSpace(org.Name) == "" {
		fields = append(fields, "organization.name")
	}
	if strings.TrimSpace(org.Description) == "" {
		fields = append(fields, "organization.description")
	}
	if strings.TrimSpace(org.Email) == "" {
		fields = append(fields, "organization.email")
	}
	if strings.TrimSpace(org.Phone) == "" {
		fields = append(fields, "organization.phone")
	}
	if strings.TrimSpace(org.Address.Line1) == "" {
		fields = append(fields, "organization.address.line1")
	}
	if strings.TrimSpace(org.Address.City) == "" {
		fields = append(fields, "organization.address.city")
	}
	if strings.TrimSpace(org.Address.Country) == "" {
		fields = append(fields, "organization.address.country")
	}
	if len(stores) == 0 {
		fields = append(fields, "stores")
	}
	for _, st := range stores {
		if strings.TrimSpace(st.Name) == "" || strings.TrimSpace(st.Address.Line1) == "" {
			fields = append(fields, "store."+st.ID)
		}
	}
	if settings == nil || strings.TrimSpace(settings.Hostname) == "" {
		fields = append(fields, "settings.hostname")
	}
	if settings == nil || len(settings.BrandingColors) < 2 {
		fields = append(fields, "settings.branding_colors")
	}
	return fields
}

// ownedOrganization loads the user and the organization they belong to.
func (s *Service) ownedOrganization(ctx context.Context, userID string) (*User, *Organization, error) {
	user, err := s.repo.Users().Find(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user.OrganizationID == "" {
		return nil, nil, fmt.Errorf("%w: user has no organization", ErrNotFound)
	}
	org, err := s.repo.Organizations().Find(ctx, user.OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	return user, org, nil
}
