package audit

import (
	"context"
	"strings"
	"time"
)

// Request types for unified events.
const (
	RequestTypeAuth     = "auth"
	RequestTypeAdmin    = "admin"
	RequestTypeSQLProxy = "sql_proxy"
)

// Outcomes for unified events.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusDenied  = "denied"
)

// Event is one immutable row in the unified audit log.
type Event struct {
	ID           int64          `json:"id"`
	UserID       *int64         `json:"user_id,omitempty"`
	UserRole     string         `json:"user_role,omitempty"`
	Action       string         `json:"action"`
	RequestType  string         `json:"request_type"`
	Status       string         `json:"status"`
	TenantID     string         `json:"tenant_id,omitempty"`
	DatabaseName string         `json:"database_name,omitempty"`
	TargetType   string         `json:"target_type,omitempty"`
	TargetID     *int64         `json:"target_id,omitempty"`
	DurationMS   *int64         `json:"duration_ms,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AccessEvent is one row in the deduplicated access-audit log. Identity is
// the actor user id when present, otherwise the admin token value.
type AccessEvent struct {
	ID          int64     `json:"id"`
	ActorUserID *int64    `json:"actor_user_id,omitempty"`
	ActorRole   string    `json:"actor_role,omitempty"`
	AdminToken  string    `json:"admin_token,omitempty"`
	Action      string    `json:"action"`
	TargetType  string    `json:"target_type,omitempty"`
	TargetID    *int64    `json:"target_id,omitempty"`
	Details     string    `json:"details,omitempty"`
	Success     bool      `json:"success"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventFilter narrows unified event listings for operators.
type EventFilter struct {
	RequestType string
	Status      string
	TenantID    string
	UserID      *int64
	Limit       int
}

// Store persists audit rows. Rows are append-only; nothing updates or
// deletes them.
type Store interface {
	InsertEvent(ctx context.Context, e *Event) error
	InsertAccessEvent(ctx context.Context, e *AccessEvent) error
	// FindRecentAccessEvent returns the newest row matching the actor
	// identity, action and target of e at or after cutoff, or nil.
	FindRecentAccessEvent(ctx context.Context, e AccessEvent, cutoff time.Time) (*AccessEvent, error)
	ListEvents(ctx context.Context, f EventFilter) ([]Event, error)
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context so recorded
// events can be correlated with access logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
