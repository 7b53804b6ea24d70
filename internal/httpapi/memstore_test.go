package httpapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/IvanYanishevskyi/pandora-backend/internal/audit"
	"github.com/IvanYanishevskyi/pandora-backend/internal/auth"
	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

// memStore is an in-memory stand-in for the whole persistence layer, good
// enough to run the full handler chain against a live test server.
type memStore struct {
	mu        sync.Mutex
	seq       int64
	orgs      map[int64]tenancy.Organization
	clients   map[int64]tenancy.Client
	users     map[int64]tenancy.User
	databases map[int64]tenancy.Database
	grants    map[int64]tenancy.Grant
	registry  map[int64]tenancy.RegistryEntry
	tokens    map[int64]auth.AdminToken
	events    []audit.Event
	access    []audit.AccessEvent
}

func newMemStore() *memStore {
	return &memStore{
		orgs:      map[int64]tenancy.Organization{},
		clients:   map[int64]tenancy.Client{},
		users:     map[int64]tenancy.User{},
		databases: map[int64]tenancy.Database{},
		grants:    map[int64]tenancy.Grant{},
		registry:  map[int64]tenancy.RegistryEntry{},
		tokens:    map[int64]auth.AdminToken{},
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

// --- organizations ---

func (s *memStore) CreateOrganization(_ context.Context, name, description string, isRoot bool) (tenancy.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orgs {
		if o.Name == name {
			return tenancy.Organization{}, tenancy.ErrConflict
		}
	}
	o := tenancy.Organization{
		ID:          s.nextID(),
		Name:        name,
		Description: description,
		IsRoot:      isRoot,
		CreatedAt:   time.Now(),
	}
	s.orgs[o.ID] = o
	return o, nil
}

func (s *memStore) GetOrganization(_ context.Context, id int64) (tenancy.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[id]
	if !ok {
		return tenancy.Organization{}, tenancy.ErrNotFound
	}
	o.ClientsCount = s.countClientsLocked(id)
	return o, nil
}

func (s *memStore) ListOrganizations(context.Context) ([]tenancy.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenancy.Organization
	for _, o := range s.orgs {
		o.ClientsCount = s.countClientsLocked(o.ID)
		out = append(out, o)
	}
	return out, nil
}

func (s *memStore) DeleteOrganization(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[id]; !ok {
		return tenancy.ErrNotFound
	}
	delete(s.orgs, id)
	return nil
}

func (s *memStore) HasRootOrganization(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orgs {
		if o.IsRoot {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CountClientsByOrganization(_ context.Context, organizationID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countClientsLocked(organizationID), nil
}

func (s *memStore) countClientsLocked(organizationID int64) int {
	n := 0
	for _, c := range s.clients {
		if c.OrganizationID == organizationID {
			n++
		}
	}
	return n
}

// --- clients ---

func (s *memStore) CreateClient(_ context.Context, name, contactEmail string, organizationID int64) (tenancy.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.Name == name {
			return tenancy.Client{}, tenancy.ErrConflict
		}
	}
	c := tenancy.Client{
		ID:             s.nextID(),
		Name:           name,
		ContactEmail:   contactEmail,
		OrganizationID: organizationID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.clients[c.ID] = c
	return c, nil
}

func (s *memStore) GetClient(_ context.Context, id int64) (tenancy.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return tenancy.Client{}, tenancy.ErrNotFound
	}
	return c, nil
}

func (s *memStore) GetClientByName(_ context.Context, name string) (tenancy.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return tenancy.Client{}, tenancy.ErrNotFound
}

func (s *memStore) ListClients(_ context.Context, scope tenancy.Scope) ([]tenancy.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenancy.Client
	for _, c := range s.clients {
		if scope.All || c.ID == scope.ClientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) DeleteClient(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return tenancy.ErrNotFound
	}
	delete(s.clients, id)
	return nil
}

func (s *memStore) CountUsersByClient(_ context.Context, clientID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if u.ClientID != nil && *u.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

// --- users ---

func (s *memStore) CreateUser(_ context.Context, u tenancy.User) (tenancy.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return tenancy.User{}, tenancy.ErrConflict
		}
	}
	u.ID = s.nextID()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	s.users[u.ID] = u
	return u, nil
}

func (s *memStore) GetUser(_ context.Context, id int64) (tenancy.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return tenancy.User{}, tenancy.ErrNotFound
	}
	return u, nil
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (tenancy.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return tenancy.User{}, tenancy.ErrNotFound
}

func (s *memStore) ListUsers(_ context.Context, scope tenancy.Scope) ([]tenancy.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenancy.User
	for _, u := range s.users {
		if scope.All || (u.ClientID != nil && *u.ClientID == scope.ClientID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) UpdateUser(_ context.Context, id int64, upd tenancy.UserUpdate) (tenancy.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return tenancy.User{}, tenancy.ErrNotFound
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.LastLogin != nil {
		u.LastLogin = upd.LastLogin
	}
	if upd.ClientID != nil {
		u.ClientID = upd.ClientID
	}
	if upd.OrganizationID != nil {
		u.OrganizationID = *upd.OrganizationID
	}
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return u, nil
}

func (s *memStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return tenancy.ErrNotFound
	}
	delete(s.users, id)
	for gid, g := range s.grants {
		if g.UserID == id {
			delete(s.grants, gid)
		}
	}
	return nil
}

func (s *memStore) DeactivateStaleUsers(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, u := range s.users {
		if u.IsActive && u.LastLogin != nil && u.LastLogin.Before(cutoff) {
			u.IsActive = false
			s.users[id] = u
			n++
		}
	}
	return n, nil
}

// --- databases ---

func (s *memStore) CreateDatabase(_ context.Context, d tenancy.Database) (tenancy.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.databases {
		if existing.Name == d.Name {
			return tenancy.Database{}, tenancy.ErrConflict
		}
	}
	d.ID = s.nextID()
	d.CreatedAt = time.Now()
	s.databases[d.ID] = d
	return d, nil
}

func (s *memStore) GetDatabase(_ context.Context, id int64) (tenancy.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.databases[id]
	if !ok {
		return tenancy.Database{}, tenancy.ErrNotFound
	}
	return d, nil
}

func (s *memStore) GetDatabaseByName(_ context.Context, name string) (tenancy.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.databases {
		if d.Name == name {
			return d, nil
		}
	}
	return tenancy.Database{}, tenancy.ErrNotFound
}

func (s *memStore) ListDatabases(_ context.Context, scope tenancy.Scope) ([]tenancy.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenancy.Database
	for _, d := range s.databases {
		if scope.All || d.ClientID == scope.ClientID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) DeleteDatabase(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[id]; !ok {
		return tenancy.ErrNotFound
	}
	delete(s.databases, id)
	for gid, g := range s.grants {
		if g.DatabaseID == id {
			delete(s.grants, gid)
		}
	}
	return nil
}

// --- grants ---

func (s *memStore) CreateGrant(_ context.Context, g tenancy.Grant) (tenancy.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.grants {
		if existing.UserID == g.UserID && existing.DatabaseID == g.DatabaseID {
			return tenancy.Grant{}, tenancy.ErrConflict
		}
	}
	g.ID = s.nextID()
	if d, ok := s.databases[g.DatabaseID]; ok {
		g.DatabaseName = d.Name
	}
	g.CreatedAt = time.Now()
	g.UpdatedAt = time.Now()
	s.grants[g.ID] = g
	return g, nil
}

func (s *memStore) GetGrant(_ context.Context, id int64) (tenancy.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[id]
	if !ok {
		return tenancy.Grant{}, tenancy.ErrNotFound
	}
	return g, nil
}

func (s *memStore) GetGrantForUserDatabase(_ context.Context, userID, databaseID int64) (tenancy.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grants {
		if g.UserID == userID && g.DatabaseID == databaseID {
			return g, nil
		}
	}
	return tenancy.Grant{}, tenancy.ErrNotFound
}

func (s *memStore) ListGrantsByUser(_ context.Context, userID int64) ([]tenancy.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenancy.Grant
	for _, g := range s.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *memStore) UpdateGrant(_ context.Context, id int64, upd tenancy.GrantUpdate) (tenancy.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[id]
	if !ok {
		return tenancy.Grant{}, tenancy.ErrNotFound
	}
	if upd.CanRead != nil {
		g.CanRead = *upd.CanRead
	}
	if upd.CanWrite != nil {
		g.CanWrite = *upd.CanWrite
	}
	g.UpdatedAt = time.Now()
	s.grants[id] = g
	return g, nil
}

func (s *memStore) DeleteGrant(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[id]; !ok {
		return tenancy.ErrNotFound
	}
	delete(s.grants, id)
	return nil
}

func (s *memStore) DeleteGrantsByUser(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, g := range s.grants {
		if g.UserID == userID {
			delete(s.grants, id)
			n++
		}
	}
	return n, nil
}

// --- tenant registry ---

func (s *memStore) CreateRegistryEntry(_ context.Context, e tenancy.RegistryEntry) (tenancy.RegistryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.registry {
		if existing.ClientID == e.ClientID {
			return tenancy.RegistryEntry{}, tenancy.ErrConflict
		}
	}
	e.ID = s.nextID()
	if c, ok := s.clients[e.ClientID]; ok {
		e.ClientName = c.Name
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = time.Now()
	s.registry[e.ID] = e
	return e, nil
}

func (s *memStore) GetRegistryEntry(_ context.Context, id int64) (tenancy.RegistryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.registry[id]
	if !ok {
		return tenancy.RegistryEntry{}, tenancy.ErrNotFound
	}
	return e, nil
}

func (s *memStore) GetActiveRegistryByClient(_ context.Context, clientID int64) (tenancy.RegistryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.registry {
		if e.ClientID == clientID && e.IsActive {
			return e, nil
		}
	}
	return tenancy.RegistryEntry{}, tenancy.ErrNotFound
}

func (s *memStore) ListRegistryEntries(_ context.Context, scope tenancy.Scope) ([]tenancy.RegistryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tenancy.RegistryEntry
	for _, e := range s.registry {
		if scope.All || e.ClientID == scope.ClientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) UpdateRegistryEntry(_ context.Context, id int64, upd tenancy.RegistryUpdate) (tenancy.RegistryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.registry[id]
	if !ok {
		return tenancy.RegistryEntry{}, tenancy.ErrNotFound
	}
	if upd.CoreURL != nil {
		e.CoreURL = *upd.CoreURL
	}
	if upd.HealthCheckURL != nil {
		e.HealthCheckURL = *upd.HealthCheckURL
	}
	if upd.IsActive != nil {
		e.IsActive = *upd.IsActive
	}
	e.UpdatedAt = time.Now()
	s.registry[id] = e
	return e, nil
}

func (s *memStore) DeleteRegistryEntry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registry[id]; !ok {
		return tenancy.ErrNotFound
	}
	delete(s.registry, id)
	return nil
}

// --- stats ---

func (s *memStore) CountOrganizations(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orgs), nil
}

func (s *memStore) CountClients(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients), nil
}

func (s *memStore) CountDatabases(_ context.Context, scope tenancy.Scope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.databases {
		if scope.All || d.ClientID == scope.ClientID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountUsers(_ context.Context, scope tenancy.Scope, role *tenancy.Role, activeOnly bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if !scope.All && (u.ClientID == nil || *u.ClientID != scope.ClientID) {
			continue
		}
		if role != nil && u.Role != *role {
			continue
		}
		if activeOnly && !u.IsActive {
			continue
		}
		n++
	}
	return n, nil
}

// --- audit ---

func (s *memStore) InsertEvent(_ context.Context, e *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.events) + 1)
	s.events = append(s.events, *e)
	return nil
}

func (s *memStore) InsertAccessEvent(_ context.Context, e *audit.AccessEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.access) + 1)
	s.access = append(s.access, *e)
	return nil
}

func (s *memStore) FindRecentAccessEvent(context.Context, audit.AccessEvent, time.Time) (*audit.AccessEvent, error) {
	return nil, nil
}

func (s *memStore) ListEvents(_ context.Context, f audit.EventFilter) ([]audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, e := range s.events {
		if f.RequestType != "" && e.RequestType != f.RequestType {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.TenantID != "" && e.TenantID != f.TenantID {
			continue
		}
		if f.UserID != nil && (e.UserID == nil || *e.UserID != *f.UserID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// --- admin tokens ---

func (s *memStore) GetActiveAdminTokenByUser(_ context.Context, userID int64) (auth.AdminToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[userID]
	if !ok || !t.Active {
		return auth.AdminToken{}, tenancy.ErrNotFound
	}
	return t, nil
}

func (s *memStore) CreateAdminToken(_ context.Context, t auth.AdminToken) (auth.AdminToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID()
	t.CreatedAt = time.Now()
	s.tokens[t.CreatedBy] = t
	return t, nil
}

var (
	_ tenancy.Store   = (*memStore)(nil)
	_ audit.Store     = (*memStore)(nil)
	_ auth.UserStore  = (*memStore)(nil)
	_ auth.TokenStore = (*memStore)(nil)
)
