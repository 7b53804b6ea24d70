package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IvanYanishevskyi/pandora-backend/internal/obs"
)

// Recorder is the audit sink handed to every component. Writes are
// fire-and-forget: a failed write is reported on the process log and never
// surfaces to the triggering operation.
type Recorder struct {
	store Store
	now   func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Event appends a unified audit event. The write runs best-effort: on
// failure a warning is logged and the caller proceeds unaffected.
func (r *Recorder) Event(ctx context.Context, e Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		if e.Details == nil {
			e.Details = map[string]any{}
		}
		e.Details["request_id"] = rid
	}
	if err := r.store.InsertEvent(ctx, &e); err != nil {
		obs.Warnf("audit event write failed", map[string]any{
			"action": e.Action,
			"status": e.Status,
			"error":  err.Error(),
		})
	}
}

// Access appends a deduplicated access event. When dedupeSeconds > 0 an
// identical event (same actor identity, action and target) recorded within
// the window is returned instead of inserting a duplicate. A failing dedup
// lookup degrades to an unconditional insert; a failing insert is logged
// and swallowed.
func (r *Recorder) Access(ctx context.Context, e AccessEvent, dedupeSeconds int) AccessEvent {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}

	if dedupeSeconds > 0 && (e.ActorUserID != nil || e.AdminToken != "") {
		cutoff := r.now().UTC().Add(-time.Duration(dedupeSeconds) * time.Second)
		existing, err := r.store.FindRecentAccessEvent(ctx, e, cutoff)
		if err != nil {
			obs.Warnf("access audit dedup lookup failed", map[string]any{
				"action": e.Action,
				"error":  err.Error(),
			})
		} else if existing != nil {
			return *existing
		}
	}

	if err := r.store.InsertAccessEvent(ctx, &e); err != nil {
		obs.Warnf("access audit write failed", map[string]any{
			"action": e.Action,
			"error":  err.Error(),
		})
	}
	return e
}

// DetailsJSON renders structured access details the way they are stored.
func DetailsJSON(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	data, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	return string(data)
}
