package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

func sessionForTest(t *testing.T) *shared.Session {
	t.Helper()
	sm := shared.NewSessionManager(nil, "sid", "secret", 0, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(req.Context(), req)
	require.NoError(t, err)
	return sess
}

func TestPrincipalSessionRoundTrip(t *testing.T) {
	sess := sessionForTest(t)
	assert.Nil(t, PrincipalFromSession(sess))

	StorePrincipal(sess, &Principal{ID: 3, Username: "alice", Role: store.RoleStudent})
	got := PrincipalFromSession(sess)
	require.NotNil(t, got)
	assert.Equal(t, Principal{ID: 3, Username: "alice", Role: store.RoleStudent}, *got)

	ClearPrincipal(sess)
	assert.Nil(t, PrincipalFromSession(sess))
}

func TestLoadPrincipalDropsMalformedSession(t *testing.T) {
	sess := sessionForTest(t)
	sess.SetUser("7")
	sess.Set("role", "superuser")

	var seen *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	Middleware{}.LoadPrincipal(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Nil(t, seen)
	assert.Empty(t, sess.User())
}

func TestRequireRoleRedirects(t *testing.T) {
	gate := Middleware{}.RequireRole(store.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name      string
		principal *Principal
		code      int
		location  string
	}{
		{"anonymous", nil, http.StatusSeeOther, "/auth/login"},
		{"student", &Principal{ID: 2, Role: store.RoleStudent}, http.StatusSeeOther, "/dashboard"},
		{"admin", &Principal{ID: 1, Role: store.RoleAdmin}, http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/courses", nil)
			req = req.WithContext(ContextWithPrincipal(req.Context(), tc.principal))
			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
		})
	}
}
