package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

// Middleware wires principal loading and role gates for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// LoadPrincipal resolves the session principal once per request.
func (m Middleware) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		p := PrincipalFromSession(sess)
		if p == nil && sess != nil && sess.User() != "" {
			if m.Logger != nil {
				m.Logger.Warn("discarding malformed session principal", slog.String("session_user", sess.User()))
			}
			ClearPrincipal(sess)
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireAuthenticated redirects anonymous browsers to the login page.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) == nil {
			shared.RedirectWithFlash(w, r, "/auth/login", "warning", shared.UserSafeMessage(shared.ErrUnauthenticated))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose principal does not hold role. Handlers
// still call Require themselves; this only stops the request early.
func (m Middleware) RequireRole(role store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Require(PrincipalFromContext(r.Context()), role); err != nil {
				if m.Logger != nil {
					m.Logger.Warn("role gate rejected request", slog.String("path", r.URL.Path), slog.String("required", string(role)))
				}
				target := "/dashboard"
				if errors.Is(err, shared.ErrUnauthenticated) {
					target = "/auth/login"
				}
				shared.RedirectWithFlash(w, r, target, "danger", shared.UserSafeMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
