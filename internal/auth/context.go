package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

const (
	sessionUsernameKey = "username"
	sessionRoleKey     = "role"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal attached by LoadPrincipal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// StorePrincipal records the principal on the session.
func StorePrincipal(sess *shared.Session, p *Principal) {
	if sess == nil || p == nil {
		return
	}
	sess.SetUser(strconv.FormatInt(p.ID, 10))
	sess.Set(sessionUsernameKey, p.Username)
	sess.Set(sessionRoleKey, string(p.Role))
}

// ClearPrincipal removes any principal from the session.
func ClearPrincipal(sess *shared.Session) {
	if sess == nil {
		return
	}
	sess.SetUser("")
	sess.Delete(sessionUsernameKey)
	sess.Delete(sessionRoleKey)
}

// PrincipalFromSession rebuilds the principal recorded on the session. A
// session with a malformed id or an unknown role yields nil.
func PrincipalFromSession(sess *shared.Session) *Principal {
	if sess == nil {
		return nil
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	role := store.Role(sess.Get(sessionRoleKey))
	if !role.Valid() {
		return nil
	}
	return &Principal{ID: id, Username: sess.Get(sessionUsernameKey), Role: role}
}
