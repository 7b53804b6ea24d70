package auth

import (
	"context"

	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, p tenancy.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &p)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (tenancy.Principal, bool) {
	if ctx == nil {
		return tenancy.Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*tenancy.Principal)
	if !ok || v == nil {
		return tenancy.Principal{}, false
	}
	return *v, true
}
