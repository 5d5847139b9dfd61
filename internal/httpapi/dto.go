package httpapi

import (
	"time"

	"shoplane.dev/internal/auth"
)

// Response payloads. Sensitive columns (password and token hashes) never
// leave the service.

type userDTO struct {
	ID                  string     `json:"id"`
	OrganizationID      string     `json:"organization_id,omitempty"`
	Email               string     `json:"email"`
	DisplayName         string     `json:"display_name"`
	EmailVerified       bool       `json:"email_verified"`
	Status              string     `json:"status"`
	OnboardingCompleted bool       `json:"onboarding_completed"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type addressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

type organizationDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Status      string     `json:"status"`
	Description string     `json:"description,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Address     addressDTO `json:"address"`
	CreatedAt   time.Time  `json:"created_at"`
}

type storeDTO struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Name           string         `json:"name"`
	Slug           string         `json:"slug"`
	Address        addressDTO     `json:"address"`
	Config         map[string]any `json:"config,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

type sessionDTO struct {
	ID         string    `json:"id"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

type tokenPairDTO struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type authResponse struct {
	User         userDTO          `json:"user"`
	Organization *organizationDTO `json:"organization,omitempty"`
	Store        *storeDTO        `json:"store,omitempty"`
	Tokens       tokenPairDTO     `json:"tokens"`
}

type addressInput struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (in addressInput) toAddress() auth.Address {
	return auth.Address{
		Line1:      in.Line1,
		Line2:      in.Line2,
		City:       in.City,
		Region:     in.Region,
		PostalCode: in.PostalCode,
		Country:    in.Country,
	}
}

func toUserDTO(u *auth.User) userDTO {
	return userDTO{
		ID:                  u.ID,
		OrganizationID:      u.OrganizationID,
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		EmailVerified:       u.EmailVerified,
		Status:              u.Status,
		OnboardingCompleted: u.OnboardingCompleted,
		LastLoginAt:         u.LastLoginAt,
		CreatedAt:           u.CreatedAt,
	}
}

func toAddressDTO(a auth.Address) addressDTO {
	return addressDTO{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func toOrganizationDTO(org *auth.Organization) *organizationDTO {
	if org == nil {
		return nil
	}
	return &organizationDTO{
		ID:          org.ID,
		Name:        org.Name,
		Slug:        org.Slug,
		Status:      org.Status,
		Description: org.Description,
		Email:       org.Email,
		Phone:       org.Phone,
		Address:     toAddressDTO(org.Address),
		CreatedAt:   org.CreatedAt,
	}
}

func toStoreDTO(st *auth.Store) *storeDTO {
	if st == nil {
		return nil
	}
	return &storeDTO{
		ID:             st.ID,
		OrganizationID: st.OrganizationID,
		Name:           st.Name,
		Slug:           st.Slug,
		Address:        toAddressDTO(st.Address),
		Config:         st.Config,
		CreatedAt:      st.CreatedAt,
	}
}

func toTokenPairDTO(t auth.TokenPair) tokenPairDTO {
	return tokenPairDTO{
		AccessToken:      t.AccessToken,
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshToken:     t.RefreshToken,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

func toAuthResponse(res *auth.AuthResult) authResponse {
	return authResponse{
		User:         toUserDTO(res.User),
		Organization: toOrganizationDTO(res.Organization),
		Store:        toStoreDTO(res.Store),
		Tokens:       toTokenPairDTO(res.Tokens),
	}
}
