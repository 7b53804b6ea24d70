// Package httpapi is the inbound HTTP surface over the control plane.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/IvanYanishevskyi/pandora-backend/internal/audit"
	"github.com/IvanYanishevskyi/pandora-backend/internal/auth"
	"github.com/IvanYanishevskyi/pandora-backend/internal/obs"
	"github.com/IvanYanishevskyi/pandora-backend/internal/proxy"
	"github.com/IvanYanishevskyi/pandora-backend/internal/resolver"
	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

// ReadyProbe reports readiness (DB ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API wires every handler onto one mux.
type API struct {
	mux        *http.ServeMux
	tenants    *tenancy.Service
	auth       *auth.Service
	dispatcher *proxy.Dispatcher
	resolver   *resolver.Resolver
	events     audit.Store
	readyProbe ReadyProbe
	version    string
}

// New constructs the API and registers all routes.
func New(tenants *tenancy.Service, authSvc *auth.Service, dispatcher *proxy.Dispatcher, res *resolver.Resolver, events audit.Store, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		tenants:    tenants,
		auth:       authSvc,
		dispatcher: dispatcher,
		resolver:   res,
		events:     events,
		readyProbe: rp,
		version:    version,
	}

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("POST /v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("GET /v1/auth/me", a.handleMe)
	a.mux.HandleFunc("POST /v1/auth/change-password", a.handleChangePassword)
	a.mux.HandleFunc("GET /v1/auth/database-access/me", a.handleMyDatabaseAccess)

	a.mux.HandleFunc("GET /v1/admin/organizations", a.handleListOrganizations)
	a.mux.HandleFunc("POST /v1/admin/organizations", a.handleCreateOrganization)
	a.mux.HandleFunc("DELETE /v1/admin/organizations/{id}", a.handleDeleteOrganization)

	a.mux.HandleFunc("GET /v1/admin/clients", a.handleListClients)
	a.mux.HandleFunc("POST /v1/admin/clients", a.handleCreateClient)
	a.mux.HandleFunc("DELETE /v1/admin/clients/{id}", a.handleDeleteClient)

	a.mux.HandleFunc("GET /v1/admin/users", a.handleListUsers)
	a.mux.HandleFunc("POST /v1/admin/users", a.handleCreateUser)
	a.mux.HandleFunc("GET /v1/admin/users/{id}", a.handleGetUser)
	a.mux.HandleFunc("PUT /v1/admin/users/{id}", a.handleUpdateUser)
	a.mux.HandleFunc("DELETE /v1/admin/users/{id}", a.handleDeleteUser)
	a.mux.HandleFunc("POST /v1/admin/users/{id}/promote", a.handlePromoteUser)
	a.mux.HandleFunc("POST /v1/admin/users/{id}/demote", a.handleDemoteUser)
	a.mux.HandleFunc("GET /v1/admin/users/{id}/database-access", a.handleListUserGrants)
	a.mux.HandleFunc("DELETE /v1/admin/users/{id}/database-access", a.handleRevokeUserGrants)

	a.mux.HandleFunc("GET /v1/admin/databases", a.handleListDatabases)
	a.mux.HandleFunc("POST /v1/admin/databases", a.handleCreateDatabase)
	a.mux.HandleFunc("DELETE /v1/admin/databases/{id}", a.handleDeleteDatabase)

	a.mux.HandleFunc("POST /v1/admin/database-access", a.handleCreateGrant)
	a.mux.HandleFunc("PUT /v1/admin/database-access/{id}", a.handleUpdateGrant)
	a.mux.HandleFunc("DELETE /v1/admin/database-access/{id}", a.handleDeleteGrant)

	a.mux.HandleFunc("GET /v1/admin/tenant-registry", a.handleListRegistry)
	a.mux.HandleFunc("POST /v1/admin/tenant-registry", a.handleCreateRegistry)
	a.mux.HandleFunc("PUT /v1/admin/tenant-registry/{id}", a.handleUpdateRegistry)
	a.mux.HandleFunc("DELETE /v1/admin/tenant-registry/{id}", a.handleDeleteRegistry)
	a.mux.HandleFunc("GET /v1/admin/tenant-registry/{id}/health", a.handleRegistryHealth)

	a.mux.HandleFunc("GET /v1/admin/stats/overview", a.handleOverviewStats)
	a.mux.HandleFunc("GET /v1/admin/stats/users-by-role", a.handleUsersByRoleStats)
	a.mux.HandleFunc("GET /v1/admin/audit-logs", a.handleListAuditLogs)

	a.mux.HandleFunc("POST /v1/sql/generate", a.handleGenerate)
	a.mux.HandleFunc("GET /v1/sql/health", a.handleSQLHealth)

	return a
}

// Handler returns the fully wrapped handler chain.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 50, 25)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- infra handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "pandora-backend",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "pandora-backend",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError maps the error taxonomy onto HTTP status codes.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenancy.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, tenancy.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, tenancy.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, tenancy.ErrInvalidState):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, tenancy.ErrUpstreamUnavailable):
		writeError(w, r, http.StatusBadGateway, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func requestMeta(r *http.Request) proxy.RequestMeta {
	return proxy.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}
