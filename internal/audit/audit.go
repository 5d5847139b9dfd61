// Package audit publishes append-only security events. Every event is written
// twice: as a structured JSON log line for operational visibility and as an
// immutable row in the audit store. The sink is one-way; emit failures are
// logged and swallowed so they never fail the flow that produced the event.
package audit

import (
	"context"
	"strings"
	"time"

	"shoplane.dev/internal/auth"
	"shoplane.dev/internal/ids"
	"shoplane.dev/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Recorder implements auth.AuditSink.
type Recorder struct {
	store auth.AuditRepository
	now   func() time.Time
}

// NewRecorder builds a Recorder over the append-only store. store may be nil,
// in which case events surface as log lines only.
func NewRecorder(store auth.AuditRepository) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Emit records the event. It never returns an error to the caller.
func (r *Recorder) Emit(ctx context.Context, e auth.AuditEvent) {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now().UTC()
	}

	entry := map[string]any{
		"ts":       e.OccurredAt.Format(time.RFC3339Nano),
		"type":     "audit",
		"event":    e.Action,
		"resource": e.Resource,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if e.ActorID != "" {
		entry["actor_id"] = e.ActorID
	}
	if e.ResourceID != "" {
		entry["resource_id"] = e.ResourceID
	}
	if e.IP != "" {
		entry["ip"] = e.IP
	}
	if len(e.Metadata) > 0 {
		entry["fields"] = e.Metadata
	}
	obs.LogEvent(entry)

	if r.store == nil {
		return
	}
	if err := r.store.Append(ctx, &e); err != nil {
		obs.LogEvent(map[string]any{
			"ts":    r.now().UTC().Format(time.RFC3339Nano),
			"level": "error",
			"msg":   "audit append failed",
			"event": e.Action,
			"error": err.Error(),
		})
	}
}
