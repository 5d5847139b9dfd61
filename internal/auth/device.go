package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Fingerprint derives the device binding hash from the normalized browser
// family, OS family and the first IPv4 octet. This is a tunable heuristic,
// not a cryptographic identity: the enforcement knobs in DevicePolicy decide
// how much weight it carries.
func Fingerprint(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(browserFamily(userAgent) + osFamily(userAgent) + firstOctet(ip)))
	return hex.EncodeToString(sum[:])
}

func browserFamily(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "edg"):
		return "edge"
	case strings.Contains(ua, "opr"), strings.Contains(ua, "opera"):
		return "opera"
	case strings.Contains(ua, "chrome"):
		return "chrome"
	case strings.Contains(ua, "safari"):
		return "safari"
	case strings.Contains(ua, "firefox"):
		return "firefox"
	default:
		return "other"
	}
}

func osFamily(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		return "ios"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		return "macos"
	case strings.Contains(ua, "linux"):
		return "linux"
	default:
		return "other"
	}
}

func firstOctet(ip string) string {
	if i := strings.IndexByte(ip, '.'); i > 0 {
		return ip[:i]
	}
	return ip
}

// DeviceDecision is the validator outcome for a refresh attempt.
type DeviceDecision int

const (
	// DecisionAccept lets the refresh proceed; the stored binding may be
	// updated to the current client.
	DecisionAccept DeviceDecision = iota
	// DecisionReject blocks the refresh without touching the session.
	DecisionReject
	// DecisionRevoke blocks the refresh and requires the caller to revoke
	// the session before surfacing the error.
	DecisionRevoke
)

// DeviceValidator applies the refresh-time security policy to a matched
// session row.
type DeviceValidator struct {
	policy DevicePolicy
	warn   func(event string, fields map[string]any)
}

// NewDeviceValidator builds a validator. warn may be nil.
func NewDeviceValidator(policy DevicePolicy, warn func(string, map[string]any)) *DeviceValidator {
	if warn == nil {
		warn = func(string, map[string]any) {}
	}
	return &DeviceValidator{policy: policy, warn: warn}
}

// Validate checks the session against the current client. The fingerprint
// check runs before the rate-limit check so a hijack attempt is always
// flagged even when it is also rapid.
func (v *DeviceValidator) Validate(sess *Session, client ClientInfo, now time.Time) (DeviceDecision, error) {
	if sess.IP != "" && client.IP != "" && sess.IP != client.IP {
		v.warn("auth.refresh.ip_changed", map[string]any{
			"session_id": sess.ID,
			"stored_ip":  sess.IP,
			"current_ip": client.IP,
		})
		if v.policy.StrictIPCheck {
			return DecisionReject, ErrInvalidToken
		}
	}

	if fp := Fingerprint(client.UserAgent, client.IP); sess.Fingerprint != "" && fp != sess.Fingerprint {
		if v.policy.StrictDeviceCheck && !v.policy.AllowCrossDevice {
			return DecisionRevoke, ErrDeviceMismatch
		}
		v.warn("auth.refresh.device_changed", map[string]any{"session_id": sess.ID})
	}

	if now.Sub(sess.LastUsedAt) < v.policy.MinRefreshInterval {
		return DecisionReject, ErrRateLimited
	}

	if sess.Revoked {
		return DecisionReject, ErrTokenRevoked
	}

	return DecisionAccept, nil
}
