package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shoplane.dev/internal/auth"
)

func newTestHandler(t *testing.T) (http.Handler, *auth.MemoryRepository) {
	t.Helper()
	repo := auth.NewMemoryRepository()
	cfg := auth.DefaultConfig()
	cfg.AccessTokenSecret = "httpapi-test-secret"
	svc, err := auth.NewService(repo, auth.NewConfigManager(cfg))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, ReadyProbe{}, "test").Handler(), repo
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if got := decodeBody(t, rec)["service"]; got != "shoplane-identity" {
		t.Fatalf("unexpected service %v", got)
	}

	rec = doJSON(t, h, http.MethodGet, "/readyz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}
}

func TestRegisterOwnerFlow(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register", map[string]any{
		"display_name":      "Jamie",
		"email":             "jamie@example.com",
		"password":          "s3curepass",
		"organization_name": "Fresh Goods",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("credential material leaked: %s", rec.Body.String())
	}

	got := decodeBody(t, rec)
	user := got["user"].(map[string]any)
	if user["status"] != string(auth.UserStatusPendingVerification) {
		t.Fatalf("unexpected status %v", user["status"])
	}
	tokens := got["tokens"].(map[string]any)
	access, _ := tokens["access_token"].(string)
	if access == "" {
		t.Fatal("missing access token")
	}

	// The fresh access token opens protected routes.
	rec = doJSON(t, h, http.MethodGet, "/v1/onboarding/status", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}
	if step := decodeBody(t, rec)["next_step"]; step != "verify_email" {
		t.Fatalf("next_step = %v", step)
	}
}

func TestRegisterValidationFailure(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register", map[string]any{
		"email":             "broken",
		"password":          "short",
		"organization_name": "",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	got := decodeBody(t, rec)
	fields, ok := got["fields"].([]any)
	if !ok || len(fields) == 0 {
		t.Fatalf("fields missing: %s", rec.Body.String())
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/v1/onboarding/status", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/onboarding/status", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", rec.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register", map[string]any{
		"email":             "owner@example.com",
		"password":          "s3curepass",
		"organization_name": "Fresh Goods",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/auth/login", map[string]any{
		"email":             "owner@example.com",
		"password":          "wrong-pass1",
		"organization_slug": "fresh-goods",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/v1/auth/login", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("Allow = %q", rec.Header().Get("Allow"))
	}
}

func TestRefreshRequiresToken(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/refresh", map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("missing CORS origin header: %v", rec.Header())
	}
}

func TestUnknownBodyFieldRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/login", map[string]any{
		"email":    "a@example.com",
		"password": "whatever1",
		"extra":    true,
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}
