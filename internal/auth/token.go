package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

const (
	issuer          = "pandora"
	defaultTokenTTL = 24 * time.Hour
)

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims carries the identity fields embedded in access tokens. The subject
// is the username; id holds the numeric user id used to refresh the
// principal on every request.
type Claims struct {
	UserID   int64  `json:"id"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 access tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner constructs a signer over the shared secret.
func NewTokenSigner(secret []byte, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenSigner{secret: secret, ttl: ttl}
}

// Sign issues an access token for the user.
func (s *TokenSigner) Sign(u tenancy.User) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("auth secret is not configured")
	}
	now := time.Now().UTC()
	claims := Claims{
		UserID:   u.ID,
		Role:     string(u.Role),
		FullName: u.FullName,
		Email:    u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies the token signature and required claims.
func (s *TokenSigner) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
