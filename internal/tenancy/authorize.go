package tenancy

import "fmt"

// Principal is the authenticated actor together with its role and
// client/organization scope. It is resolved by the authentication layer and
// passed explicitly into every operation.
type Principal struct {
	UserID         int64  `json:"id"`
	Role           Role   `json:"role"`
	ClientID       *int64 `json:"client_id,omitempty"`
	OrganizationID int64  `json:"organization_id"`
}

// Scope is the explicit visibility filter returned by authorization
// decisions and consumed uniformly by every scoped read and count.
type Scope struct {
	// All grants unrestricted visibility (super_admin).
	All bool
	// ClientID restricts rows to one client when All is false.
	ClientID int64
}

// Authorizer evaluates the fixed hierarchical role model. Every
// administrative operation resolves its decision here instead of branching
// on roles inline, so list and mutation paths cannot drift apart.
type Authorizer struct{}

// ReadScope returns the visibility filter for administrative reads.
// super_admin sees everything; admin sees its own client; plain users have
// no administrative visibility at all.
func (Authorizer) ReadScope(p Principal) (Scope, error) {
	switch p.Role {
	case RoleSuperAdmin:
		return Scope{All: true}, nil
	case RoleAdmin:
		if p.ClientID == nil {
			return Scope{}, fmt.Errorf("%w: admin is not assigned to a client", ErrInvalidState)
		}
		return Scope{ClientID: *p.ClientID}, nil
	default:
		return Scope{}, fmt.Errorf("%w: administrative access required", ErrForbidden)
	}
}

// RequireSuperAdmin gates operations reserved for the top role.
func (Authorizer) RequireSuperAdmin(p Principal) error {
	if p.Role != RoleSuperAdmin {
		return fmt.Errorf("%w: super_admin role required", ErrForbidden)
	}
	return nil
}

// CanTouchClient reports whether the principal may mutate an entity owned
// by the given client.
func (a Authorizer) CanTouchClient(p Principal, clientID int64) error {
	scope, err := a.ReadScope(p)
	if err != nil {
		return err
	}
	if scope.All || scope.ClientID == clientID {
		return nil
	}
	return fmt.Errorf("%w: entity belongs to another client", ErrForbidden)
}

// CanManageUser reports whether the principal may modify or delete the
// target user. Admins never touch super_admin accounts and never reach
// outside their own client.
func (a Authorizer) CanManageUser(p Principal, target User) error {
	if p.Role == RoleSuperAdmin {
		return nil
	}
	if p.Role != RoleAdmin {
		return fmt.Errorf("%w: administrative access required", ErrForbidden)
	}
	if p.ClientID == nil {
		return fmt.Errorf("%w: admin is not assigned to a client", ErrInvalidState)
	}
	if target.Role == RoleSuperAdmin {
		return fmt.Errorf("%w: super_admin users cannot be managed by admins", ErrForbidden)
	}
	if target.ClientID == nil || *target.ClientID != *p.ClientID {
		return fmt.Errorf("%w: user belongs to another client", ErrForbidden)
	}
	return nil
}

// CanAssignRole reports whether the principal may hand out the given role.
func (Authorizer) CanAssignRole(p Principal, role Role) error {
	if role == RoleSuperAdmin && p.Role != RoleSuperAdmin {
		return fmt.Errorf("%w: only super_admin may assign the super_admin role", ErrForbidden)
	}
	return nil
}

// SelfScope gates read-only self access for plain users: a user may only
// look at its own records.
func (Authorizer) SelfScope(p Principal, targetUserID int64) error {
	if p.Role == RoleSuperAdmin {
		return nil
	}
	if p.UserID != targetUserID {
		return fmt.Errorf("%w: not your resource", ErrForbidden)
	}
	return nil
}
