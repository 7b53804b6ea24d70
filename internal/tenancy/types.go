package tenancy

import (
	"fmt"
	"time"
)

// Role is the fixed three-level role model.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// ParseRole validates a role supplied by a caller.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: invalid role %q", ErrInvalidState, s)
	}
}

const (
	// OnlineWindow is how recently a user must have logged in to be
	// reported as online.
	OnlineWindow = 5 * time.Minute

	// InactivityThreshold is how stale a login may be before the listing
	// sweep deactivates the user.
	InactivityThreshold = 30 * time.Minute
)

// Organization is the top level of the tenancy hierarchy. Exactly one
// organization may carry the root flag; it can never be deleted.
type Organization struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IsRoot       bool      `json:"is_root"`
	ClientsCount int       `json:"clients_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Client is a tenant: one organization's customer owning users, databases
// and at most one active Core registry entry.
type Client struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ContactEmail   string    `json:"contact_email"`
	OrganizationID int64     `json:"organization_id"`
	UsersCount     int       `json:"users_count"`
	DatabasesCount int       `json:"databases_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// User is a principal. ClientID is nil for super admins.
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email,omitempty"`
	FullName       string     `json:"full_name,omitempty"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role"`
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	ClientID       *int64     `json:"client_id,omitempty"`
	OrganizationID int64      `json:"organization_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Online reports whether the user logged in within the online window.
func (u User) Online(now time.Time) bool {
	return u.LastLogin != nil && now.Sub(*u.LastLogin) <= OnlineWindow
}

// Database is a tenant resource. Connection attributes are opaque to the
// control plane and only handed to operators.
type Database struct {
	ID          int64     `json:"id"`
	ClientID    int64     `json:"client_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Host        string    `json:"db_host,omitempty"`
	Port        int       `json:"db_port,omitempty"`
	DBUser      string    `json:"db_user,omitempty"`
	DBPassword  string    `json:"-"`
	DBName      string    `json:"db_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Grant is an explicit per-(user, database) capability record. The pair is
// unique; updates replace the flags, they are never widened implicitly.
type Grant struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	DatabaseID   int64     `json:"database_id"`
	DatabaseName string    `json:"database_name,omitempty"`
	CanRead      bool      `json:"can_read"`
	CanWrite     bool      `json:"can_write"`
	CreatedBy    *int64    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegistryEntry maps a client to its backend Core service. At most one row
// exists per client and rows are only ever created by explicit admin action.
type RegistryEntry struct {
	ID             int64     `json:"id"`
	ClientID       int64     `json:"client_id"`
	ClientName     string    `json:"client_name,omitempty"`
	CoreURL        string    `json:"core_url"`
	HealthCheckURL string    `json:"health_check_url"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserUpdate carries optional field replacements for a user. PasswordHash
// must already be hashed by the caller.
type UserUpdate struct {
	Username     *string
	Email        *string
	FullName     *string
	PasswordHash *string
	Role         *Role
	IsActive     *bool
	LastLogin    *time.Time
	ClientID     *int64
	// OrganizationID follows the client when ClientID is set.
	OrganizationID *int64
}

// GrantUpdate replaces the explicit capability flags.
type GrantUpdate struct {
	CanRead  *bool
	CanWrite *bool
}

// RegistryUpdate carries optional field replacements for a registry entry.
type RegistryUpdate struct {
	CoreURL        *string
	HealthCheckURL *string
	IsActive       *bool
}

// Overview is the super-admin stats snapshot; client-scoped admins receive
// the subset with ClientID set.
type Overview struct {
	ClientID      *int64 `json:"client_id,omitempty"`
	Organizations int    `json:"organizations,omitempty"`
	Clients       int    `json:"clients,omitempty"`
	Users         int    `json:"users"`
	Databases     int    `json:"databases"`
	ActiveUsers   int    `json:"active_users"`
	SuperAdmins   int    `json:"super_admins,omitempty"`
	Admins        int    `json:"admins,omitempty"`
	RegularUsers  int    `json:"regular_users,omitempty"`
}

// RoleStats breaks user counts down per role.
type RoleStats struct {
	TotalByRole      map[Role]int `json:"total_by_role"`
	ActiveByRole     map[Role]int `json:"active_by_role"`
	TotalUsers       int          `json:"total_users"`
	TotalActiveUsers int          `json:"total_active_users"`
}
