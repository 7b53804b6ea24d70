package tenancy

import (
	"context"
	"fmt"
	"time"

	"github.com/IvanYanishevskyi/pandora-backend/internal/audit"
	"github.com/IvanYanishevskyi/pandora-backend/internal/obs"
)

// PasswordHasher turns a plaintext password into its stored hash. It is
// injected so this package stays free of credential concerns.
type PasswordHasher func(plain string) (string, error)

// Service implements every administrative operation of the control plane.
// Each call authorizes through the Authorizer, touches the store inside the
// store's own transactional boundary, and records the mutation on the
// access-audit trail.
type Service struct {
	store Store
	authz Authorizer
	audit *audit.Recorder
	hash  PasswordHasher
	now   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the tenancy service over its store, audit sink and
// password hasher.
func NewService(store Store, rec *audit.Recorder, hash PasswordHasher, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		audit: rec,
		hash:  hash,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func int64Ptr(v int64) *int64 { return &v }

// access records one deduplicated access-audit row for an administrative
// mutation. Mutations always insert (no dedup window); the recorder swallows
// write failures.
func (s *Service) access(ctx context.Context, p Principal, action, targetType string, targetID *int64, details map[string]any) {
	s.audit.Access(ctx, audit.AccessEvent{
		ActorUserID: int64Ptr(p.UserID),
		ActorRole:   string(p.Role),
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Details:     audit.DetailsJSON(details),
		Success:     true,
	}, 0)
}

// ---------------------------------------------------------------------------
// Organizations
// ---------------------------------------------------------------------------

// ListOrganizations returns every organization with its client count.
func (s *Service) ListOrganizations(ctx context.Context, p Principal) ([]Organization, error) {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return nil, err
	}
	return s.store.ListOrganizations(ctx)
}

// CreateOrganization creates a new top-level organization. At most one
// organization may carry the root flag.
func (s *Service) CreateOrganization(ctx context.Context, p Principal, name, description string, isRoot bool) (Organization, error) {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return Organization{}, err
	}
	if isRoot {
		exists, err := s.store.HasRootOrganization(ctx)
		if err != nil {
			return Organization{}, err
		}
		if exists {
			return Organization{}, fmt.Errorf("%w: a root organization already exists", ErrConflict)
		}
	}
	org, err := s.store.CreateOrganization(ctx, name, description, isRoot)
	if err != nil {
		return Organization{}, err
	}
	s.access(ctx, p, "create_organization", "organization", int64Ptr(org.ID), map[string]any{"name": org.Name, "is_root": org.IsRoot})
	return org, nil
}

// DeleteOrganization removes an organization. The root organization and any
// organization that still owns clients are refused.
func (s *Service) DeleteOrganization(ctx context.Context, p Principal, id int64) error {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return err
	}
	org, err := s.store.GetOrganization(ctx, id)
	if err != nil {
		return err
	}
	if org.IsRoot {
		return fmt.Errorf("%w: the root organization cannot be deleted", ErrForbidden)
	}
	n, err := s.store.CountClientsByOrganization(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: organization still owns %d clients", ErrConflict, n)
	}
	if err := s.store.DeleteOrganization(ctx, id); err != nil {
		return err
	}
	s.access(ctx, p, "delete_organization", "organization", int64Ptr(id), map[string]any{"name": org.Name})
	return nil
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

// ListClients returns the clients visible to the principal.
func (s *Service) ListClients(ctx context.Context, p Principal) ([]Client, error) {
	scope, err := s.authz.ReadScope(p)
	if err != nil {
		return nil, err
	}
	return s.store.ListClients(ctx, scope)
}

// CreateClient registers a new client under an existing organization.
func (s *Service) CreateClient(ctx context.Context, p Principal, name, contactEmail string, organizationID int64) (Client, error) {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return Client{}, err
	}
	if _, err := s.store.GetOrganization(ctx, organizationID); err != nil {
		return Client{}, err
	}
	c, err := s.store.CreateClient(ctx, name, contactEmail, organizationID)
	if err != nil {
		return Client{}, err
	}
	s.access(ctx, p, "create_client", "client", int64Ptr(c.ID), map[string]any{"name": c.Name, "organization_id": organizationID})
	return c, nil
}

// DeleteClient removes a client. A client that still owns users is refused.
func (s *Service) DeleteClient(ctx context.Context, p Principal, id int64) error {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return err
	}
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.store.CountUsersByClient(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: client still owns %d users", ErrConflict, n)
	}
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return err
	}
	s.access(ctx, p, "delete_client", "client", int64Ptr(id), map[string]any{"name": c.Name})
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// CreateUserInput carries the fields of a new user. Password arrives in
// plaintext and is hashed before it touches the store.
type CreateUserInput struct {
	Username       string
	Password       string
	Email          string
	FullName       string
	Role           string
	IsActive       bool
	ClientID       *int64
	OrganizationID int64
}

// UpdateUserInput carries optional replacements; nil fields stay untouched.
type UpdateUserInput struct {
	Username *string
	Email    *string
	FullName *string
	Password *string
	Role     *string
	IsActive *bool
	ClientID *int64
}

// ListUsers returns the users visible to the principal. Before listing it
// sweeps stale sessions: any active user whose last login is older than the
// inactivity threshold is deactivated. The sweep is idempotent and its
// failure does not fail the listing.
func (s *Service) ListUsers(ctx context.Context, p Principal) ([]User, error) {
	scope, err := s.authz.ReadScope(p)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().UTC().Add(-InactivityThreshold)
	if n, err := s.store.DeactivateStaleUsers(ctx, cutoff); err != nil {
		obs.Warnf("stale session sweep failed", map[string]any{"error": err.Error()})
	} else if n > 0 {
		obs.Warnf("stale sessions deactivated", map[string]any{"count": n})
	}
	return s.store.ListUsers(ctx, scope)
}

// GetUser returns one user. Plain users may only read themselves.
func (s *Service) GetUser(ctx context.Context, p Principal, id int64) (User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if p.UserID == u.ID {
		return u, nil
	}
	if err := s.authz.CanManageUser(p, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// CreateUser creates a user inside the caller's scope. Admins always create
// into their own client regardless of the requested placement.
func (s *Service) CreateUser(ctx context.Context, p Principal, in CreateUserInput) (User, error) {
	scope, err := s.authz.ReadScope(p)
	if err != nil {
		return User{}, err
	}
	role, err := ParseRole(in.Role)
	if err != nil {
		return User{}, err
	}
	if err := s.authz.CanAssignRole(p, role); err != nil {
		return User{}, err
	}

	clientID := in.ClientID
	organizationID := in.OrganizationID
	if !scope.All {
		clientID = int64Ptr(scope.ClientID)
		organizationID = p.OrganizationID
	}
	if clientID != nil {
		c, err := s.store.GetClient(ctx, *clientID)
		if err != nil {
			return User{}, err
		}
		organizationID = c.OrganizationID
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.store.CreateUser(ctx, User{
		Username:       in.Username,
		Email:          in.Email,
		FullName:       in.FullName,
		PasswordHash:   hash,
		Role:           role,
		IsActive:       in.IsActive,
		ClientID:       clientID,
		OrganizationID: organizationID,
	})
	if err != nil {
		return User{}, err
	}
	s.access(ctx, p, "create_user", "user", int64Ptr(u.ID), map[string]any{"username": u.Username, "role": string(u.Role)})
	return u, nil
}

// UpdateUser applies partial changes to a user. Moving a user to another
// client is reserved for super admins.
func (s *Service) UpdateUser(ctx context.Context, p Principal, id int64, in UpdateUserInput) (User, error) {
	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := s.authz.CanManageUser(p, target); err != nil {
		return User{}, err
	}

	upd := UserUpdate{
		Username: in.Username,
		Email:    in.Email,
		FullName: in.FullName,
		IsActive: in.IsActive,
	}
	if in.Role != nil {
		role, err := ParseRole(*in.Role)
		if err != nil {
			return User{}, err
		}
		if err := s.authz.CanAssignRole(p, role); err != nil {
			return User{}, err
		}
		upd.Role = &role
	}
	if in.ClientID != nil {
		if err := s.authz.RequireSuperAdmin(p); err != nil {
			return User{}, err
		}
		c, err := s.store.GetClient(ctx, *in.ClientID)
		if err != nil {
			return User{}, err
		}
		upd.ClientID = in.ClientID
		upd.OrganizationID = int64Ptr(c.OrganizationID)
	}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		upd.PasswordHash = &hash
	}

	u, err := s.store.UpdateUser(ctx, id, upd)
	if err != nil {
		return User{}, err
	}
	s.access(ctx, p, "update_user", "user", int64Ptr(id), map[string]any{"username": u.Username})
	return u, nil
}

// DeleteUser removes a user together with its chats, messages and grants.
// super_admin accounts are never deletable; admins are additionally blocked
// from deleting users of the root organization.
func (s *Service) DeleteUser(ctx context.Context, p Principal, id int64) error {
	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == RoleSuperAdmin {
		return fmt.Errorf("%w: super_admin users cannot be deleted", ErrForbidden)
	}
	if err := s.authz.CanManageUser(p, target); err != nil {
		return err
	}
	if p.Role == RoleAdmin {
		org, err := s.store.GetOrganization(ctx, target.OrganizationID)
		if err != nil {
			return err
		}
		if org.IsRoot {
			return fmt.Errorf("%w: root organization users cannot be deleted by admins", ErrForbidden)
		}
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.access(ctx, p, "delete_user", "user", int64Ptr(id), map[string]any{"username": target.Username})
	return nil
}

// PromoteToSuperAdmin raises a user to the top role.
func (s *Service) PromoteToSuperAdmin(ctx context.Context, p Principal, id int64) (User, error) {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return User{}, err
	}
	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if target.Role == RoleSuperAdmin {
		return User{}, fmt.Errorf("%w: user is already a super_admin", ErrInvalidState)
	}
	role := RoleSuperAdmin
	u, err := s.store.UpdateUser(ctx, id, UserUpdate{Role: &role})
	if err != nil {
		return User{}, err
	}
	s.access(ctx, p, "promote_to_super_admin", "user", int64Ptr(id), map[string]any{"username": u.Username})
	return u, nil
}

// DemoteFromSuperAdmin lowers a super_admin back to admin. Demoting any
// other role is refused so the pair promote/demote always round-trips
// through admin.
func (s *Service) DemoteFromSuperAdmin(ctx context.Context, p Principal, id int64) (User, error) {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return User{}, err
	}
	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if target.Role != RoleSuperAdmin {
		return User{}, fmt.Errorf("%w: user is not a super_admin", ErrInvalidState)
	}
	role := RoleAdmin
	u, err := s.store.UpdateUser(ctx, id, UserUpdate{Role: &role})
	if err != nil {
		return User{}, err
	}
	s.access(ctx, p, "demote_from_super_admin", "user", int64Ptr(id), map[string]any{"username": u.Username})
	return u, nil
}

// ---------------------------------------------------------------------------
// Databases
// ---------------------------------------------------------------------------

// CreateDatabaseInput carries the fields of a new tenant database.
type CreateDatabaseInput struct {
	ClientID    int64
	Name        string
	Description string
	Host        string
	Port        int
	DBUser      string
	DBPassword  string
	DBName      string
}

// ListDatabases returns the databases visible to the principal.
func (s *Service) ListDatabases(ctx context.Context, p Principal) ([]Database, error) {
	scope, err := s.authz.ReadScope(p)
	if err != nil {
		return nil, err
	}
	return s.store.ListDatabases(ctx, scope)
}

// CreateDatabase registers a tenant database. Admins may only create under
// their own client.
func (s *Service) CreateDatabase(ctx context.Context, p Principal, in CreateDatabaseInput) (Database, error) {
	if err := s.authz.CanTouchClient(p, in.ClientID); err != nil {
		return Database{}, err
	}
	if _, err := s.store.GetClient(ctx, in.ClientID); err != nil {
		return Database{}, err
	}
	d, err := s.store.CreateDatabase(ctx, Database{
		ClientID:    in.ClientID,
		Name:        in.Name,
		Description: in.Description,
		Host:        in.Host,
		Port:        in.Port,
		DBUser:      in.DBUser,
		DBPassword:  in.DBPassword,
		DBName:      in.DBName,
	})
	if err != nil {
		return Database{}, err
	}
	s.access(ctx, p, "create_database", "database", int64Ptr(d.ID), map[string]any{"name": d.Name, "client_id": d.ClientID})
	return d, nil
}

// DeleteDatabase removes a tenant database together with every grant
// referencing it.
func (s *Service) DeleteDatabase(ctx context.Context, p Principal, id int64) error {
	d, err := s.store.GetDatabase(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.CanTouchClient(p, d.ClientID); err != nil {
		return err
	}
	if p.Role == RoleAdmin {
		c, err := s.store.GetClient(ctx, d.ClientID)
		if err != nil {
			return err
		}
		org, err := s.store.GetOrganization(ctx, c.OrganizationID)
		if err != nil {
			return err
		}
		if org.IsRoot {
			return fmt.Errorf("%w: root organization databases cannot be deleted by admins", ErrForbidden)
		}
	}
	if err := s.store.DeleteDatabase(ctx, id); err != nil {
		return err
	}
	s.access(ctx, p, "delete_database", "database", int64Ptr(id), map[string]any{"name": d.Name})
	return nil
}

// ---------------------------------------------------------------------------
// Grants
// ---------------------------------------------------------------------------

// CreateGrantInput names the (user, database) pair and its capability flags.
type CreateGrantInput struct {
	UserID     int64
	DatabaseID int64
	CanRead    bool
	CanWrite   bool
}

// ListGrantsByUser returns one user's grants. Plain users may only read
// their own.
func (s *Service) ListGrantsByUser(ctx context.Context, p Principal, userID int64) ([]Grant, error) {
	target, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.UserID != target.ID {
		if err := s.authz.CanManageUser(p, target); err != nil {
			return nil, err
		}
	}
	return s.store.ListGrantsByUser(ctx, userID)
}

// MyGrants returns the caller's own effective grants. A super_admin sees a
// synthetic full-access grant for every database.
func (s *Service) MyGrants(ctx context.Context, p Principal) ([]Grant, error) {
	if p.Role == RoleSuperAdmin {
		dbs, err := s.store.ListDatabases(ctx, Scope{All: true})
		if err != nil {
			return nil, err
		}
		grants := make([]Grant, 0, len(dbs))
		for _, d := range dbs {
			grants = append(grants, Grant{
				UserID:       p.UserID,
				DatabaseID:   d.ID,
				DatabaseName: d.Name,
				CanRead:      true,
				CanWrite:     true,
			})
		}
		return grants, nil
	}
	return s.store.ListGrantsByUser(ctx, p.UserID)
}

// CreateGrant records a (user, database) capability. The user and the
// database must belong to the same client; the pair is unique.
func (s *Service) CreateGrant(ctx context.Context, p Principal, in CreateGrantInput) (Grant, error) {
	if _, err := s.authz.ReadScope(p); err != nil {
		return Grant{}, err
	}
	u, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return Grant{}, err
	}
	d, err := s.store.GetDatabase(ctx, in.DatabaseID)
	if err != nil {
		return Grant{}, err
	}
	if u.ClientID == nil {
		return Grant{}, fmt.Errorf("%w: user is not assigned to a client", ErrInvalidState)
	}
	if *u.ClientID != d.ClientID {
		return Grant{}, fmt.Errorf("%w: user and database belong to different clients", ErrInvalidState)
	}
	if err := s.authz.CanTouchClient(p, d.ClientID); err != nil {
		return Grant{}, err
	}
	g, err := s.store.CreateGrant(ctx, Grant{
		UserID:     in.UserID,
		DatabaseID: in.DatabaseID,
		CanRead:    in.CanRead,
		CanWrite:   in.CanWrite,
		CreatedBy:  int64Ptr(p.UserID),
	})
	if err != nil {
		return Grant{}, err
	}
	s.access(ctx, p, "create_grant", "grant", int64Ptr(g.ID), map[string]any{
		"user_id": in.UserID, "database_id": in.DatabaseID, "can_read": in.CanRead, "can_write": in.CanWrite,
	})
	return g, nil
}

// UpdateGrant replaces a grant's capability flags. Flags are never widened
// implicitly; only the supplied fields change.
func (s *Service) UpdateGrant(ctx context.Context, p Principal, id int64, upd GrantUpdate) (Grant, error) {
	g, err := s.store.GetGrant(ctx, id)
	if err != nil {
		return Grant{}, err
	}
	d, err := s.store.GetDatabase(ctx, g.DatabaseID)
	if err != nil {
		return Grant{}, err
	}
	if err := s.authz.CanTouchClient(p, d.ClientID); err != nil {
		return Grant{}, err
	}
	out, err := s.store.UpdateGrant(ctx, id, upd)
	if err != nil {
		return Grant{}, err
	}
	s.access(ctx, p, "update_grant", "grant", int64Ptr(id), map[string]any{
		"can_read": out.CanRead, "can_write": out.CanWrite,
	})
	return out, nil
}

// DeleteGrant removes one grant.
func (s *Service) DeleteGrant(ctx context.Context, p Principal, id int64) error {
	g, err := s.store.GetGrant(ctx, id)
	if err != nil {
		return err
	}
	d, err := s.store.GetDatabase(ctx, g.DatabaseID)
	if err != nil {
		return err
	}
	if err := s.authz.CanTouchClient(p, d.ClientID); err != nil {
		return err
	}
	if err := s.store.DeleteGrant(ctx, id); err != nil {
		return err
	}
	s.access(ctx, p, "delete_grant", "grant", int64Ptr(id), map[string]any{"user_id": g.UserID, "database_id": g.DatabaseID})
	return nil
}

// DeleteGrantsByUser revokes every grant a user holds.
func (s *Service) DeleteGrantsByUser(ctx context.Context, p Principal, userID int64) (int64, error) {
	target, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.authz.CanManageUser(p, target); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteGrantsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.access(ctx, p, "revoke_all_grants", "user", int64Ptr(userID), map[string]any{"revoked": n})
	return n, nil
}

// ---------------------------------------------------------------------------
// Tenant registry
// ---------------------------------------------------------------------------

// CreateRegistryInput maps a client to its backend Core endpoints.
type CreateRegistryInput struct {
	ClientID       int64
	CoreURL        string
	HealthCheckURL string
	IsActive       bool
}

// registryEvent records registry mutations on the unified audit trail.
func (s *Service) registryEvent(ctx context.Context, p Principal, action string, targetID int64, details map[string]any) {
	s.audit.Event(ctx, audit.Event{
		UserID:      int64Ptr(p.UserID),
		UserRole:    string(p.Role),
		Action:      action,
		RequestType: audit.RequestTypeAdmin,
		Status:      audit.StatusSuccess,
		TargetType:  "tenant_registry",
		TargetID:    int64Ptr(targetID),
		Details:     details,
	})
}

// ListRegistryEntries returns the registry rows visible to the principal.
func (s *Service) ListRegistryEntries(ctx context.Context, p Principal) ([]RegistryEntry, error) {
	scope, err := s.authz.ReadScope(p)
	if err != nil {
		return nil, err
	}
	return s.store.ListRegistryEntries(ctx, scope)
}

// CreateRegistryEntry maps a client to a backend Core. One row per client.
func (s *Service) CreateRegistryEntry(ctx context.Context, p Principal, in CreateRegistryInput) (RegistryEntry, error) {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return RegistryEntry{}, err
	}
	if _, err := s.store.GetClient(ctx, in.ClientID); err != nil {
		return RegistryEntry{}, err
	}
	e, err := s.store.CreateRegistryEntry(ctx, RegistryEntry{
		ClientID:       in.ClientID,
		CoreURL:        in.CoreURL,
		HealthCheckURL: in.HealthCheckURL,
		IsActive:       in.IsActive,
	})
	if err != nil {
		return RegistryEntry{}, err
	}
	s.registryEvent(ctx, p, "create_registry_entry", e.ID, map[string]any{"client_id": in.ClientID, "core_url": in.CoreURL})
	return e, nil
}

// UpdateRegistryEntry applies partial changes to a registry row.
func (s *Service) UpdateRegistryEntry(ctx context.Context, p Principal, id int64, upd RegistryUpdate) (RegistryEntry, error) {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return RegistryEntry{}, err
	}
	if _, err := s.store.GetRegistryEntry(ctx, id); err != nil {
		return RegistryEntry{}, err
	}
	e, err := s.store.UpdateRegistryEntry(ctx, id, upd)
	if err != nil {
		return RegistryEntry{}, err
	}
	s.registryEvent(ctx, p, "update_registry_entry", id, map[string]any{"core_url": e.CoreURL, "is_active": e.IsActive})
	return e, nil
}

// DeleteRegistryEntry removes a registry row.
func (s *Service) DeleteRegistryEntry(ctx context.Context, p Principal, id int64) error {
	if err := s.authz.RequireSuperAdmin(p); err != nil {
		return err
	}
	e, err := s.store.GetRegistryEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRegistryEntry(ctx, id); err != nil {
		return err
	}
	s.registryEvent(ctx, p, "delete_registry_entry", id, map[string]any{"client_id": e.ClientID})
	return nil
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// OverviewStats returns the dashboard snapshot for the principal's scope.
func (s *Service) OverviewStats(ctx context.Context, p Principal) (Overview, error) {
	scope, err := s.authz.ReadScope(p)
	if err != nil {
		return Overview{}, err
	}

	var out Overview
	if out.Users, err = s.store.CountUsers(ctx, scope, nil, false); err != nil {
		return Overview{}, err
	}
	if out.ActiveUsers, err = s.store.CountUsers(ctx, scope, nil, true); err != nil {
		return Overview{}, err
	}
	if out.Databases, err = s.store.CountDatabases(ctx, scope); err != nil {
		return Overview{}, err
	}
	if !scope.All {
		out.ClientID = int64Ptr(scope.ClientID)
		return out, nil
	}

	if out.Organizations, err = s.store.CountOrganizations(ctx); err != nil {
		return Overview{}, err
	}
	if out.Clients, err = s.store.CountClients(ctx); err != nil {
		return Overview{}, err
	}
	for role, dst := range map[Role]*int{
		RoleSuperAdmin: &out.SuperAdmins,
		RoleAdmin:      &out.Admins,
		RoleUser:       &out.RegularUsers,
	} {
		r := role
		if *dst, err = s.store.CountUsers(ctx, scope, &r, false); err != nil {
			return Overview{}, err
		}
	}
	return out, nil
}

// UsersByRoleStats breaks user counts down per role within the principal's
// scope.
func (s *Service) UsersByRoleStats(ctx context.Context, p Principal) (RoleStats, error) {
	scope, err := s.authz.ReadScope(p)
	if err != nil {
		return RoleStats{}, err
	}
	out := RoleStats{
		TotalByRole:  make(map[Role]int, 3),
		ActiveByRole: make(map[Role]int, 3),
	}
	for _, role := range []Role{RoleSuperAdmin, RoleAdmin, RoleUser} {
		r := role
		total, err := s.store.CountUsers(ctx, scope, &r, false)
		if err != nil {
			return RoleStats{}, err
		}
		active, err := s.store.CountUsers(ctx, scope, &r, true)
		if err != nil {
			return RoleStats{}, err
		}
		out.TotalByRole[role] = total
		out.ActiveByRole[role] = active
		out.TotalUsers += total
		out.TotalActiveUsers += active
	}
	return out, nil
}
