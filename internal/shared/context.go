package shared

import (
	"context"
	"net/http"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// RedirectWithFlash queues a flash message on the request session and
// redirects with 303 See Other.
func RedirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
