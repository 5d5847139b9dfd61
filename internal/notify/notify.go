// Package notify is the outbound email channel consumed by the identity
// core. Sends are fire-and-forget: failures are logged by the caller and
// never fail the parent operation.
package notify

import (
	"context"
	"time"

	"shoplane.dev/internal/obs"
)

// Sender delivers transactional mail.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to, token, displayName string) error
	SendPasswordResetEmail(ctx context.Context, to, token, displayName string) error
	SendWelcomeEmail(ctx context.Context, to, displayName string) error
}

// NewSender returns the sender for the configured provider. Unknown providers
// fall back to the logging sender.
func NewSender(provider string) Sender {
	switch provider {
	case "log", "":
		return LogSender{}
	default:
		obs.LogEvent(map[string]any{
			"ts":       time.Now().UTC().Format(time.RFC3339Nano),
			"level":    "warn",
			"msg":      "unknown email provider, falling back to log sender",
			"provider": provider,
		})
		return LogSender{}
	}
}

// LogSender writes each mail as a structured log line. Used in development
// and as the fallback provider.
type LogSender struct{}

func (LogSender) SendVerificationEmail(ctx context.Context, to, token, displayName string) error {
	logMail("verification", to, displayName, map[string]any{"token": token})
	return nil
}

func (LogSender) SendPasswordResetEmail(ctx context.Context, to, token, displayName string) error {
	logMail("password_reset", to, displayName, map[string]any{"token": token})
	return nil
}

func (LogSender) SendWelcomeEmail(ctx context.Context, to, displayName string) error {
	logMail("welcome", to, displayName, nil)
	return nil
}

func logMail(kind, to, displayName string, extra map[string]any) {
	entry := map[string]any{
		"ts":   time.Now().UTC().Format(time.RFC3339Nano),
		"type": "mail",
		"kind": kind,
		"to":   to,
		"name": displayName,
	}
	for k, v := range extra {
		entry[k] = v
	}
	obs.LogEvent(entry)
}
