package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IvanYanishevskyi/pandora-backend/internal/audit"
	"github.com/IvanYanishevskyi/pandora-backend/internal/obs"
	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

// ErrInvalidCredentials covers both unknown usernames and wrong passwords so
// the two cases are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// AdminToken is an opaque token auto-issued to admins on login. It serves as
// the alternate actor identity on deduplicated access-audit rows.
type AdminToken struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserStore is the slice of the tenancy store the auth service needs.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (tenancy.User, error)
	GetUserByUsername(ctx context.Context, username string) (tenancy.User, error)
	UpdateUser(ctx context.Context, id int64, upd tenancy.UserUpdate) (tenancy.User, error)
}

// TokenStore persists admin tokens.
type TokenStore interface {
	GetActiveAdminTokenByUser(ctx context.Context, userID int64) (AdminToken, error)
	CreateAdminToken(ctx context.Context, t AdminToken) (AdminToken, error)
}

// LoginResult is the login response payload.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	AdminToken  string `json:"admin_token,omitempty"`
}

// Meta carries network metadata recorded on auth audit events.
type Meta struct {
	IPAddress string
	UserAgent string
}

// Service implements login, logout, password changes and per-request
// principal resolution.
type Service struct {
	users  UserStore
	tokens TokenStore
	signer *TokenSigner
	audit  *audit.Recorder
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the auth service.
func NewService(users UserStore, tokens TokenStore, signer *TokenSigner, rec *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		signer: signer,
		audit:  rec,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) event(ctx context.Context, userID *int64, role, action, status, errMsg string, meta Meta) {
	s.audit.Event(ctx, audit.Event{
		UserID:       userID,
		UserRole:     role,
		Action:       action,
		RequestType:  audit.RequestTypeAuth,
		Status:       status,
		ErrorMessage: errMsg,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
}

// Login verifies credentials and issues an access token. A successful login
// refreshes last_login and reactivates the account; admins additionally
// receive their active admin token, minting one when none exists. The
// last_login refresh and the admin-token issuance are both best-effort.
func (s *Service) Login(ctx context.Context, username, password string, meta Meta) (LoginResult, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, tenancy.ErrNotFound) {
			s.event(ctx, nil, "", "login", audit.StatusDenied, "unknown username", meta)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok {
		s.event(ctx, &u.ID, string(u.Role), "login", audit.StatusDenied, "wrong password", meta)
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	active := true
	if _, err := s.users.UpdateUser(ctx, u.ID, tenancy.UserUpdate{IsActive: &active}); err != nil {
		obs.Warnf("login state refresh failed", map[string]any{"user_id": u.ID, "error": err.Error()})
	}
	s.touchLastLogin(ctx, u.ID, now)

	token, err := s.signer.Sign(u)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}

	out := LoginResult{AccessToken: token, TokenType: "bearer"}
	if u.Role == tenancy.RoleAdmin || u.Role == tenancy.RoleSuperAdmin {
		out.AdminToken = s.ensureAdminToken(ctx, u)
	}
	s.event(ctx, &u.ID, string(u.Role), "login", audit.StatusSuccess, "", meta)
	return out, nil
}

// ensureAdminToken returns the user's active admin token, minting a fresh
// UUID token when none exists. Failures never block the login.
func (s *Service) ensureAdminToken(ctx context.Context, u tenancy.User) string {
	existing, err := s.tokens.GetActiveAdminTokenByUser(ctx, u.ID)
	if err == nil {
		return existing.Token
	}
	if !errors.Is(err, tenancy.ErrNotFound) {
		obs.Warnf("admin token lookup failed", map[string]any{"user_id": u.ID, "error": err.Error()})
		return ""
	}
	created, err := s.tokens.CreateAdminToken(ctx, AdminToken{
		Token:       uuid.NewString(),
		Name:        "auto-" + u.Username,
		Description: "auto-created admin token on login",
		Active:      true,
		CreatedBy:   u.ID,
	})
	if err != nil {
		obs.Warnf("admin token creation failed", map[string]any{"user_id": u.ID, "error": err.Error()})
		return ""
	}
	return created.Token
}

// Logout deactivates the caller's account until the next login.
func (s *Service) Logout(ctx context.Context, p tenancy.Principal, meta Meta) error {
	if _, err := s.users.GetUser(ctx, p.UserID); err != nil {
		return err
	}
	inactive := false
	if _, err := s.users.UpdateUser(ctx, p.UserID, tenancy.UserUpdate{IsActive: &inactive}); err != nil {
		return err
	}
	s.event(ctx, &p.UserID, string(p.Role), "logout", audit.StatusSuccess, "", meta)
	return nil
}

// ChangePassword replaces the caller's password after verifying the current
// one.
func (s *Service) ChangePassword(ctx context.Context, p tenancy.Principal, oldPassword, newPassword string, meta Meta) error {
	u, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	ok, err := VerifyPassword(oldPassword, u.PasswordHash)
	if err != nil || !ok {
		s.event(ctx, &p.UserID, string(p.Role), "change_password", audit.StatusDenied, "wrong current password", meta)
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.users.UpdateUser(ctx, p.UserID, tenancy.UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}
	s.event(ctx, &p.UserID, string(p.Role), "change_password", audit.StatusSuccess, "", meta)
	return nil
}

// Me returns the caller's fresh profile and refreshes last_login so the
// session stays within the online window.
func (s *Service) Me(ctx context.Context, p tenancy.Principal) (tenancy.User, error) {
	u, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		return tenancy.User{}, err
	}
	now := s.now().UTC()
	s.touchLastLogin(ctx, u.ID, now)
	u.LastLogin = &now
	return u, nil
}

// Authenticate resolves a bearer token into a principal. The user row is
// re-read on every call so role and client reassignments take effect
// immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (tenancy.Principal, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return tenancy.Principal{}, err
	}
	u, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, tenancy.ErrNotFound) {
			return tenancy.Principal{}, ErrInvalidToken
		}
		return tenancy.Principal{}, err
	}
	return tenancy.Principal{
		UserID:         u.ID,
		Role:           u.Role,
		ClientID:       u.ClientID,
		OrganizationID: u.OrganizationID,
	}, nil
}

func (s *Service) touchLastLogin(ctx context.Context, userID int64, now time.Time) {
	if _, err := s.users.UpdateUser(ctx, userID, tenancy.UserUpdate{LastLogin: &now}); err != nil {
		obs.Warnf("last_login refresh failed", map[string]any{"user_id": userID, "error": err.Error()})
	}
}
