// Package proxy forwards authorized generation requests to tenant Core
// services, capturing timing and an audit record for every outcome.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IvanYanishevskyi/pandora-backend/internal/audit"
	"github.com/IvanYanishevskyi/pandora-backend/internal/obs"
	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

const (
	dispatchTimeout = 30 * time.Second

	promptPreviewLen = 100
	sqlPreviewLen    = 200
)

// AccessStore is the slice of the tenancy store the dispatcher reads to
// verify per-database access.
type AccessStore interface {
	GetDatabaseByName(ctx context.Context, name string) (tenancy.Database, error)
	GetGrantForUserDatabase(ctx context.Context, userID, databaseID int64) (tenancy.Grant, error)
}

// TenantResolver maps a tenant identifier to its backend URL.
type TenantResolver interface {
	Resolve(ctx context.Context, tenantID string) (string, error)
}

// Request is one generation call to forward.
type Request struct {
	TenantID     string `json:"tenant_id"`
	DatabaseName string `json:"database_name"`
	Prompt       string `json:"prompt"`
	ChatID       string `json:"chat_id,omitempty"`
	CoreToken    string `json:"core_token"`
}

// RequestMeta carries network metadata recorded on audit events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Result is the backend's JSON response annotated with the computed link.
type Result map[string]any

// Dispatcher implements the forwarding pipeline: access check, tenant
// resolution, bounded forward, link annotation. Exactly one unified audit
// event is emitted per call regardless of outcome.
type Dispatcher struct {
	store    AccessStore
	resolver TenantResolver
	audit    *audit.Recorder
	client   *http.Client
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the forwarding client (useful for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.now = fn
		}
	}
}

// New constructs a Dispatcher.
func New(store AccessStore, resolver TenantResolver, rec *audit.Recorder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		resolver: resolver,
		audit:    rec,
		client:   &http.Client{Timeout: dispatchTimeout},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch verifies read access to the named database, resolves the tenant's
// Core service and forwards the prompt. Duration is measured around the
// forward leg only; no store transaction is held while waiting on the
// network.
func (d *Dispatcher) Dispatch(ctx context.Context, p tenancy.Principal, req Request, meta RequestMeta) (Result, error) {
	event := audit.Event{
		UserID:       &p.UserID,
		UserRole:     string(p.Role),
		Action:       "sql_generate",
		RequestType:  audit.RequestTypeSQLProxy,
		TenantID:     req.TenantID,
		DatabaseName: req.DatabaseName,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	start := d.now()

	fail := func(err error) (Result, error) {
		status := audit.StatusError
		if errors.Is(err, tenancy.ErrForbidden) {
			status = audit.StatusDenied
		}
		elapsed := d.now().Sub(start)
		ms := elapsed.Milliseconds()
		event.Status = status
		event.DurationMS = &ms
		event.ErrorMessage = err.Error()
		d.audit.Event(ctx, event)
		obs.ObserveDispatch(req.TenantID, status, elapsed)
		return nil, err
	}

	if err := d.checkAccess(ctx, p, req.DatabaseName); err != nil {
		return fail(err)
	}

	coreURL, err := d.resolver.Resolve(ctx, req.TenantID)
	if err != nil {
		return fail(err)
	}

	// The measured leg starts here: path construction through response
	// receipt.
	start = d.now()
	link := "/" + strings.ToLower(req.TenantID) + "/chat/" + req.DatabaseName + "/"
	targetURL := coreURL + link

	chatID := req.ChatID
	if chatID == "" {
		chatID = "default_chat"
	}
	body, err := json.Marshal(map[string]any{
		"chat_id":   chatID,
		"messaggio": req.Prompt,
		"user_id":   p.UserID,
		"timezone":  "UTC",
	})
	if err != nil {
		return fail(fmt.Errorf("encode core request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("build core request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.CoreToken)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("%w: core request failed: %v", tenancy.ErrUpstreamUnavailable, err))
	}
	defer resp.Body.Close()

	elapsed := d.now().Sub(start)
	ms := elapsed.Milliseconds()

	if resp.StatusCode != http.StatusOK {
		event.Status = audit.StatusError
		event.DurationMS = &ms
		event.ErrorMessage = fmt.Sprintf("core returned %d", resp.StatusCode)
		d.audit.Event(ctx, event)
		obs.ObserveDispatch(req.TenantID, audit.StatusError, elapsed)
		return nil, fmt.Errorf("%w: core service error: %d", tenancy.ErrUpstreamUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("%w: read core response: %v", tenancy.ErrUpstreamUnavailable, err))
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return fail(fmt.Errorf("%w: decode core response: %v", tenancy.ErrUpstreamUnavailable, err))
	}
	result["link"] = link

	details := map[string]any{"prompt": truncate(req.Prompt, promptPreviewLen)}
	if sql, ok := result["sql"].(string); ok && sql != "" {
		details["sql_generated"] = truncate(sql, sqlPreviewLen)
	}
	event.Status = audit.StatusSuccess
	event.DurationMS = &ms
	event.Details = details
	d.audit.Event(ctx, event)
	obs.ObserveDispatch(req.TenantID, audit.StatusSuccess, elapsed)

	return result, nil
}

// checkAccess verifies the principal holds a readable grant on the named
// database. super_admin bypasses the grant lookup entirely.
func (d *Dispatcher) checkAccess(ctx context.Context, p tenancy.Principal, databaseName string) error {
	if p.Role == tenancy.RoleSuperAdmin {
		return nil
	}
	db, err := d.store.GetDatabaseByName(ctx, databaseName)
	if err != nil {
		if errors.Is(err, tenancy.ErrNotFound) {
			return fmt.Errorf("%w: database %q not found", tenancy.ErrNotFound, databaseName)
		}
		return err
	}
	grant, err := d.store.GetGrantForUserDatabase(ctx, p.UserID, db.ID)
	if err != nil {
		if errors.Is(err, tenancy.ErrNotFound) {
			return fmt.Errorf("%w: no access to database %q", tenancy.ErrForbidden, databaseName)
		}
		return err
	}
	if !grant.CanRead {
		return fmt.Errorf("%w: no read access to database %q", tenancy.ErrForbidden, databaseName)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
