package auth

import (
	"context"

	"github.com/YannKr/photoalbum/internal/model"
)

// Principal is the authenticated caller of one request. Session logins carry
// every permission; API tokens carry only what they were granted.
type Principal struct {
	UserID      string
	Username    string
	Permissions model.Permissions
	ViaToken    bool
}

func (p Principal) Can(perm model.Permission) bool {
	return p.Permissions.Has(perm)
}

type contextKey string

const principalKey contextKey = "principal"

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// UserFromContext returns the caller's user id, or "" for anonymous requests.
func UserFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}
