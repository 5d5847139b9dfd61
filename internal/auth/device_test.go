package auth

import (
	"errors"
	"testing"
	"time"
)

const (
	uaChromeWindows  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"
	uaChromeWindows2 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/121.0 Safari/537.36"
	uaFirefoxLinux   = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
)

func TestFingerprintStableAcrossMinorVersions(t *testing.T) {
	a := Fingerprint(uaChromeWindows, "203.0.113.7")
	b := Fingerprint(uaChromeWindows2, "203.0.113.250")
	if a != b {
		t.Fatal("same browser, OS and network should share a fingerprint")
	}
	if a == Fingerprint(uaFirefoxLinux, "203.0.113.7") {
		t.Fatal("different browser and OS should not share a fingerprint")
	}
	if a == Fingerprint(uaChromeWindows, "10.0.113.7") {
		t.Fatal("different first octet should not share a fingerprint")
	}
}

func testSession(now time.Time) *Session {
	return &Session{
		ID:          "sess-1",
		UserID:      "user-1",
		Fingerprint: Fingerprint(uaChromeWindows, "203.0.113.7"),
		IP:          "203.0.113.7",
		UserAgent:   uaChromeWindows,
		ExpiresAt:   now.Add(time.Hour),
		LastUsedAt:  now.Add(-time.Minute),
	}
}

func TestValidateAccepts(t *testing.T) {
	now := time.Now().UTC()
	v := NewDeviceValidator(DefaultDevicePolicy(), nil)
	decision, err := v.Validate(testSession(now), ClientInfo{IP: "203.0.113.7", UserAgent: uaChromeWindows2}, now)
	if err != nil || decision != DecisionAccept {
		t.Fatalf("expected accept, got %v / %v", decision, err)
	}
}

func TestValidateDeviceMismatchRevokes(t *testing.T) {
	now := time.Now().UTC()
	v := NewDeviceValidator(DefaultDevicePolicy(), nil)
	// A hijack attempt that is also rapid must be flagged as a hijack, not a
	// rate-limit violation.
	sess := testSession(now)
	sess.LastUsedAt = now
	decision, err := v.Validate(sess, ClientInfo{IP: "203.0.113.7", UserAgent: uaFirefoxLinux}, now)
	if decision != DecisionRevoke {
		t.Fatalf("expected DecisionRevoke, got %v", decision)
	}
	if !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch, got %v", err)
	}
}

func TestValidateCrossDeviceAllowed(t *testing.T) {
	now := time.Now().UTC()
	policy := DefaultDevicePolicy()
	policy.AllowCrossDevice = true
	v := NewDeviceValidator(policy, nil)
	decision, err := v.Validate(testSession(now), ClientInfo{IP: "203.0.113.7", UserAgent: uaFirefoxLinux}, now)
	if err != nil || decision != DecisionAccept {
		t.Fatalf("expected accept with cross-device allowed, got %v / %v", decision, err)
	}
}

func TestValidateRateLimited(t *testing.T) {
	now := time.Now().UTC()
	v := NewDeviceValidator(DefaultDevicePolicy(), nil)
	sess := testSession(now)
	sess.LastUsedAt = now.Add(-time.Second)
	decision, err := v.Validate(sess, ClientInfo{IP: "203.0.113.7", UserAgent: uaChromeWindows}, now)
	if decision != DecisionReject || !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate-limit rejection, got %v / %v", decision, err)
	}
}

func TestValidateStrictIP(t *testing.T) {
	now := time.Now().UTC()
	policy := DefaultDevicePolicy()
	policy.StrictIPCheck = true
	v := NewDeviceValidator(policy, nil)
	// Same device family, different address. Strict policy rejects without
	// disclosing the reason.
	decision, err := v.Validate(testSession(now), ClientInfo{IP: "203.0.114.9", UserAgent: uaChromeWindows}, now)
	if decision != DecisionReject || !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected opaque rejection, got %v / %v", decision, err)
	}
}

func TestValidateRevokedSession(t *testing.T) {
	now := time.Now().UTC()
	v := NewDeviceValidator(DefaultDevicePolicy(), nil)
	sess := testSession(now)
	sess.Revoked = true
	decision, err := v.Validate(sess, ClientInfo{IP: "203.0.113.7", UserAgent: uaChromeWindows}, now)
	if decision != DecisionReject || !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked rejection, got %v / %v", decision, err)
	}
}
