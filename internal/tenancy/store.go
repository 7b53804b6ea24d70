package tenancy

import (
	"context"
	"time"
)

// Store describes the persistence operations required by the tenancy
// subsystem. Scoped list and count methods receive the visibility filter
// computed by the Authorizer so that every read applies the same rule.
type Store interface {
	// Organizations.
	CreateOrganization(ctx context.Context, name, description string, isRoot bool) (Organization, error)
	GetOrganization(ctx context.Context, id int64) (Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	DeleteOrganization(ctx context.Context, id int64) error
	HasRootOrganization(ctx context.Context) (bool, error)
	CountClientsByOrganization(ctx context.Context, organizationID int64) (int, error)

	// Clients.
	CreateClient(ctx context.Context, name, contactEmail string, organizationID int64) (Client, error)
	GetClient(ctx context.Context, id int64) (Client, error)
	GetClientByName(ctx context.Context, name string) (Client, error)
	ListClients(ctx context.Context, scope Scope) ([]Client, error)
	DeleteClient(ctx context.Context, id int64) error
	CountUsersByClient(ctx context.Context, clientID int64) (int, error)

	// Users.
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context, scope Scope) ([]User, error)
	UpdateUser(ctx context.Context, id int64, upd UserUpdate) (User, error)
	DeleteUser(ctx context.Context, id int64) error
	DeactivateStaleUsers(ctx context.Context, cutoff time.Time) (int64, error)

	// Databases.
	CreateDatabase(ctx context.Context, d Database) (Database, error)
	GetDatabase(ctx context.Context, id int64) (Database, error)
	GetDatabaseByName(ctx context.Context, name string) (Database, error)
	ListDatabases(ctx context.Context, scope Scope) ([]Database, error)
	DeleteDatabase(ctx context.Context, id int64) error

	// Grants.
	CreateGrant(ctx context.Context, g Grant) (Grant, error)
	GetGrant(ctx context.Context, id int64) (Grant, error)
	GetGrantForUserDatabase(ctx context.Context, userID, databaseID int64) (Grant, error)
	ListGrantsByUser(ctx context.Context, userID int64) ([]Grant, error)
	UpdateGrant(ctx context.Context, id int64, upd GrantUpdate) (Grant, error)
	DeleteGrant(ctx context.Context, id int64) error
	DeleteGrantsByUser(ctx context.Context, userID int64) (int64, error)

	// Tenant registry.
	CreateRegistryEntry(ctx context.Context, e RegistryEntry) (RegistryEntry, error)
	GetRegistryEntry(ctx context.Context, id int64) (RegistryEntry, error)
	GetActiveRegistryByClient(ctx context.Context, clientID int64) (RegistryEntry, error)
	ListRegistryEntries(ctx context.Context, scope Scope) ([]RegistryEntry, error)
	UpdateRegistryEntry(ctx context.Context, id int64, upd RegistryUpdate) (RegistryEntry, error)
	DeleteRegistryEntry(ctx context.Context, id int64) error

	// Stats.
	CountOrganizations(ctx context.Context) (int, error)
	CountClients(ctx context.Context) (int, error)
	CountDatabases(ctx context.Context, scope Scope) (int, error)
	CountUsers(ctx context.Context, scope Scope, role *Role, activeOnly bool) (int, error)
}
