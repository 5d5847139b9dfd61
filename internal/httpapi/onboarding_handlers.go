package httpapi

import (
	"net/http"
	"strings"

	"shoplane.dev/internal/auth"
)

type createOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type setupOrganizationRequest struct {
	Description    string       `json:"description"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	Address        addressInput `json:"address"`
	Hostname       string       `json:"hostname"`
	BrandingColors []string     `json:"branding_colors"`
}

type storeRequest struct {
	Name    string         `json:"name"`
	Address addressInput   `json:"address"`
	Config  map[string]any `json:"config"`
}

func (a *API) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	status, err := a.svc.GetOnboardingStatus(r.Context(), p.UserID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"next_step":        string(status.NextStep),
		"email_verified":   status.EmailVerified,
		"has_organization": status.HasOrganization,
		"completed":        status.Completed,
	})
}

func (a *API) handleOnboardingOrganization(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createOrganization(w, r)
	case http.MethodPut:
		a.setupOrganization(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodPut)
	}
}

func (a *API) createOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.svc.CreateOrganizationDuringOnboarding(r.Context(), p.UserID, auth.OrganizationInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"organization": toOrganizationDTO(org),
	})
}

func (a *API) setupOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req setupOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.svc.SetupOrganization(r.Context(), p.UserID, auth.SetupOrganizationInput{
		Description:    req.Description,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address.toAddress(),
		Hostname:       req.Hostname,
		BrandingColors: req.BrandingColors,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"organization": toOrganizationDTO(org),
	})
}

func (a *API) handleOnboardingStores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	st, err := a.svc.CreateStoreDuringOnboarding(r.Context(), p.UserID, auth.StoreInput{
		Name:    req.Name,
		Address: req.Address.toAddress(),
		Config:  req.Config,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"store": toStoreDTO(st),
	})
}

func (a *API) handleOnboardingStoreResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/onboarding/stores/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	st, err := a.svc.SetupStore(r.Context(), p.UserID, id, auth.StoreInput{
		Name:    req.Name,
		Address: req.Address.toAddress(),
		Config:  req.Config,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"store": toStoreDTO(st),
	})
}

func (a *API) handleOnboardingComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := a.svc.CompleteOnboarding(r.Context(), p.UserID); err != nil {
		handleAuthError(w, r, err)
		return
	}
	status, err := a.svc.GetOnboardingStatus(r.Context(), p.UserID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"next_step": string(status.NextStep),
		"completed": status.Completed,
	})
}
