package httpapi

import (
	"net/http"
	"strconv"

	"github.com/IvanYanishevskyi/pandora-backend/internal/audit"
	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

type createOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRoot      bool   `json:"is_root"`
}

type createClientRequest struct {
	Name           string `json:"name"`
	ContactEmail   string `json:"contact_email"`
	OrganizationID int64  `json:"organization_id"`
}

type createUserRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	Role           string `json:"role"`
	IsActive       *bool  `json:"is_active"`
	ClientID       *int64 `json:"client_id"`
	OrganizationID int64  `json:"organization_id"`
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	ClientID *int64  `json:"client_id"`
}

type createDatabaseRequest struct {
	ClientID    int64  `json:"client_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Host        string `json:"db_host"`
	Port        int    `json:"db_port"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBName      string `json:"db_name"`
}

type createGrantRequest struct {
	UserID     int64 `json:"user_id"`
	DatabaseID int64 `json:"database_id"`
	CanRead    bool  `json:"can_read"`
	CanWrite   bool  `json:"can_write"`
}

type updateGrantRequest struct {
	CanRead  *bool `json:"can_read"`
	CanWrite *bool `json:"can_write"`
}

type createRegistryRequest struct {
	ClientID       int64  `json:"client_id"`
	CoreURL        string `json:"core_url"`
	HealthCheckURL string `json:"health_check_url"`
	IsActive       *bool  `json:"is_active"`
}

type updateRegistryRequest struct {
	CoreURL        *string `json:"core_url"`
	HealthCheckURL *string `json:"health_check_url"`
	IsActive       *bool   `json:"is_active"`
}

// --- organizations ---

func (a *API) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	orgs, err := a.tenants.ListOrganizations(r.Context(), p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (a *API) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	org, err := a.tenants.CreateOrganization(r.Context(), p, req.Name, req.Description, req.IsRoot)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.tenants.DeleteOrganization(r.Context(), p, id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "organization deleted"})
}

// --- clients ---

func (a *API) handleListClients(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	clients, err := a.tenants.ListClients(r.Context(), p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (a *API) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.ContactEmail == "" {
		writeError(w, r, http.StatusBadRequest, "name and contact_email are required")
		return
	}
	c, err := a.tenants.CreateClient(r.Context(), p, req.Name, req.ContactEmail, req.OrganizationID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.tenants.DeleteClient(r.Context(), p, id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "client deleted"})
}

// --- users ---

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	users, err := a.tenants.ListUsers(r.Context(), p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Role == "" {
		req.Role = string(tenancy.RoleUser)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	u, err := a.tenants.CreateUser(r.Context(), p, tenancy.CreateUserInput{
		Username:       req.Username,
		Password:       req.Password,
		Email:          req.Email,
		FullName:       req.FullName,
		Role:           req.Role,
		IsActive:       active,
		ClientID:       req.ClientID,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	u, err := a.tenants.GetUser(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.tenants.UpdateUser(r.Context(), p, id, tenancy.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Role:     req.Role,
		IsActive: req.IsActive,
		ClientID: req.ClientID,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.tenants.DeleteUser(r.Context(), p, id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "user deleted"})
}

func (a *API) handlePromoteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	u, err := a.tenants.PromoteToSuperAdmin(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleDemoteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	u, err := a.tenants.DemoteFromSuperAdmin(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleListUserGrants(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	grants, err := a.tenants.ListGrantsByUser(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

func (a *API) handleRevokeUserGrants(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	n, err := a.tenants.DeleteGrantsByUser(r.Context(), p, id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revoked": n})
}

// --- databases ---

func (a *API) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	dbs, err := a.tenants.ListDatabases(r.Context(), p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dbs)
}

func (a *API) handleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createDatabaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.ClientID == 0 {
		writeError(w, r, http.StatusBadRequest, "name and client_id are required")
		return
	}
	d, err := a.tenants.CreateDatabase(r.Context(), p, tenancy.CreateDatabaseInput{
		ClientID:    req.ClientID,
		Name:        req.Name,
		Description: req.Description,
		Host:        req.Host,
		Port:        req.Port,
		DBUser:      req.DBUser,
		DBPassword:  req.DBPassword,
		DBName:      req.DBName,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (a *API) handleDeleteDatabase(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.tenants.DeleteDatabase(r.Context(), p, id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "database deleted"})
}

// --- grants ---

func (a *API) handleCreateGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createGrantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == 0 || req.DatabaseID == 0 {
		writeError(w, r, http.StatusBadRequest, "user_id and database_id are required")
		return
	}
	g, err := a.tenants.CreateGrant(r.Context(), p, tenancy.CreateGrantInput{
		UserID:     req.UserID,
		DatabaseID: req.DatabaseID,
		CanRead:    req.CanRead,
		CanWrite:   req.CanWrite,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (a *API) handleUpdateGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req updateGrantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	g, err := a.tenants.UpdateGrant(r.Context(), p, id, tenancy.GrantUpdate{
		CanRead:  req.CanRead,
		CanWrite: req.CanWrite,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (a *API) handleDeleteGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.tenants.DeleteGrant(r.Context(), p, id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "grant deleted"})
}

// --- tenant registry ---

func (a *API) handleListRegistry(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	entries, err := a.tenants.ListRegistryEntries(r.Context(), p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleCreateRegistry(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createRegistryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ClientID == 0 || req.CoreURL == "" {
		writeError(w, r, http.StatusBadRequest, "client_id and core_url are required")
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	e, err := a.tenants.CreateRegistryEntry(r.Context(), p, tenancy.CreateRegistryInput{
		ClientID:       req.ClientID,
		CoreURL:        req.CoreURL,
		HealthCheckURL: req.HealthCheckURL,
		IsActive:       active,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (a *API) handleUpdateRegistry(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req updateRegistryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e, err := a.tenants.UpdateRegistryEntry(r.Context(), p, id, tenancy.RegistryUpdate{
		CoreURL:        req.CoreURL,
		HealthCheckURL: req.HealthCheckURL,
		IsActive:       req.IsActive,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) handleDeleteRegistry(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.tenants.DeleteRegistryEntry(r.Context(), p, id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "registry entry deleted"})
}

// handleRegistryHealth probes the backend of one registry entry. Advisory
// only: the probe never blocks request handling beyond its own timeout.
func (a *API) handleRegistryHealth(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	entries, err := a.tenants.ListRegistryEntries(r.Context(), p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	for _, e := range entries {
		if e.ID == id {
			healthy := a.resolver.ProbeHealth(r.Context(), e.CoreURL)
			writeJSON(w, http.StatusOK, map[string]any{
				"client_id": e.ClientID,
				"core_url":  e.CoreURL,
				"healthy":   healthy,
			})
			return
		}
	}
	writeError(w, r, http.StatusNotFound, "registry entry not found")
}

// --- stats & audit ---

func (a *API) handleOverviewStats(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	stats, err := a.tenants.OverviewStats(r.Context(), p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleUsersByRoleStats(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	stats, err := a.tenants.UsersByRoleStats(r.Context(), p)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if p.Role != tenancy.RoleSuperAdmin {
		writeError(w, r, http.StatusForbidden, "super_admin role required")
		return
	}
	q := r.URL.Query()
	filter := audit.EventFilter{
		RequestType: q.Get("request_type"),
		Status:      q.Get("status"),
		TenantID:    q.Get("tenant_id"),
	}
	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid user_id")
			return
		}
		filter.UserID = &id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	events, err := a.events.ListEvents(r.Context(), filter)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
