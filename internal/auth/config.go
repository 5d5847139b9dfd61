package auth

import (
	"os"
	"sync"
	"time"
)

// TTL fallbacks used when the configured compact duration string is absent
// or unparsable.
const (
	fallbackAccessTTL  = 900 * time.Second
	fallbackRefreshTTL = 7 * 24 * time.Hour
)

// DevicePolicy holds the refresh-time security knobs.
type DevicePolicy struct {
	StrictIPCheck      bool
	StrictDeviceCheck  bool
	AllowCrossDevice   bool
	MinRefreshInterval time.Duration
}

// DefaultDevicePolicy mirrors production defaults: device binding enforced,
// IP binding advisory only.
func DefaultDevicePolicy() DevicePolicy {
	return DevicePolicy{
		StrictIPCheck:      false,
		StrictDeviceCheck:  true,
		AllowCrossDevice:   false,
		MinRefreshInterval: 30 * time.Second,
	}
}

// LockoutPolicy holds the failed-login thresholds.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockoutPolicy locks an account for 30 minutes after 5 failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: 5, LockDuration: 30 * time.Minute}
}

// Config is passed explicitly into constructors; there is no package-level
// singleton. RefreshTokenSecret falls back to AccessTokenSecret when empty.
type Config struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     string // compact grammar, e.g. "1h"
	RefreshTokenTTL    string // compact grammar, e.g. "7d"
	EmailProvider      string
	Device             DevicePolicy
	Lockout            LockoutPolicy
}

// DefaultConfig returns a Config with production defaults and empty secrets.
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL:  "1h",
		RefreshTokenTTL: "7d",
		EmailProvider:   "log",
		Device:          DefaultDevicePolicy(),
		Lockout:         DefaultLockoutPolicy(),
	}
}

// LoadConfigFromEnv builds a Config from SHOPLANE_* environment variables on
// top of the defaults.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("SHOPLANE_AUTH_SECRET"); v != "" {
		cfg.AccessTokenSecret = v
	}
	if v := os.Getenv("SHOPLANE_REFRESH_SECRET"); v != "" {
		cfg.RefreshTokenSecret = v
	}
	if v := os.Getenv("SHOPLANE_ACCESS_TTL"); v != "" {
		cfg.AccessTokenTTL = v
	}
	if v := os.Getenv("SHOPLANE_REFRESH_TTL"); v != "" {
		cfg.RefreshTokenTTL = v
	}
	if v := os.Getenv("SHOPLANE_EMAIL_PROVIDER"); v != "" {
		cfg.EmailProvider = v
	}
	return cfg
}

// AccessSecret returns the access-token signing key.
func (c Config) AccessSecret() []byte {
	return []byte(c.AccessTokenSecret)
}

// RefreshSecret returns the refresh-token signing key, falling back to the
// access secret when no distinct one is configured.
func (c Config) RefreshSecret() []byte {
	if c.RefreshTokenSecret != "" {
		return []byte(c.RefreshTokenSecret)
	}
	return []byte(c.AccessTokenSecret)
}

// AccessTTL resolves the configured access-token lifetime.
func (c Config) AccessTTL() time.Duration {
	return ParseTTL(c.AccessTokenTTL, fallbackAccessTTL)
}

// RefreshTTL resolves the configured refresh-token lifetime.
func (c Config) RefreshTTL() time.Duration {
	return ParseTTL(c.RefreshTokenTTL, fallbackRefreshTTL)
}

// ConfigManager guards the active Config and supports runtime swaps.
type ConfigManager struct {
	mu  sync.RWMutex
	cfg Config
}

// NewConfigManager wraps cfg for shared use.
func NewConfigManager(cfg Config) *ConfigManager {
	return &ConfigManager{cfg: cfg}
}

// Current returns the active configuration.
func (m *ConfigManager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Reconfigure swaps the active configuration and returns the previous one so
// callers can roll back.
func (m *ConfigManager) Reconfigure(next Config) Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.cfg
	m.cfg = next
	return prev
}
