package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerifyToken(t *testing.T) {
	secret := []byte("test-secret")
	claims := Claims{
		Email:            "owner@example.com",
		Roles:            []string{"owner"},
		Permissions:      []string{"org.manage"},
		OrganizationID:   "org-1",
		TokenType:        "access",
		RegisteredClaims: subjectClaims("user-1"),
	}
	signed, exp, err := IssueToken(claims, time.Hour, secret)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	parsed, err := VerifyToken(signed, secret)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if parsed.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", parsed.Subject)
	}
	if parsed.Email != "owner@example.com" || parsed.OrganizationID != "org-1" {
		t.Fatalf("claims lost in round trip: %+v", parsed)
	}
	if parsed.TokenType != "access" {
		t.Fatalf("unexpected token type %q", parsed.TokenType)
	}
}

func TestVerifyTokenRejections(t *testing.T) {
	secret := []byte("test-secret")
	signed, _, err := IssueToken(Claims{RegisteredClaims: subjectClaims("user-1")}, time.Hour, secret)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := VerifyToken(signed, []byte("other-secret")); err != ErrInvalidToken {
		t.Fatalf("wrong secret: expected ErrInvalidToken, got %v", err)
	}
	if _, err := VerifyToken(signed+"x", secret); err != ErrInvalidToken {
		t.Fatalf("tampered token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := VerifyToken("", secret); err != ErrInvalidToken {
		t.Fatalf("empty token: expected ErrInvalidToken, got %v", err)
	}

	expired, _, err := IssueToken(Claims{RegisteredClaims: subjectClaims("user-1")}, -time.Minute, secret)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := VerifyToken(expired, secret); err != ErrInvalidToken {
		t.Fatalf("expired token: expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTTL(t *testing.T) {
	fallback := 42 * time.Second
	cases := map[string]time.Duration{
		"30s":  30 * time.Second,
		"15m":  15 * time.Minute,
		"1h":   time.Hour,
		"7d":   7 * 24 * time.Hour,
		"":     fallback,
		"h":    fallback,
		"10":   fallback,
		"-5m":  fallback,
		"5w":   fallback,
		" 2h ": 2 * time.Hour,
	}
	for in, want := range cases {
		if got := ParseTTL(in, fallback); got != want {
			t.Fatalf("ParseTTL(%q) = %v, want %v", in, got, want)
		}
	}
}
