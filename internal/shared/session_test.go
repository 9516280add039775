package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "sid", "secret", time.Hour, false), mr
}

func roundTrip(t *testing.T, sm *SessionManager, sessionID string, fn func(*Session)) (*Session, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sessionID})
	}
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if fn != nil {
		fn(sess)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, req, sess))
	return sess, rec
}

func TestSessionFlashSurvivesRedirect(t *testing.T) {
	sm, _ := newTestSessionManager(t)

	first, _ := roundTrip(t, sm, "", func(s *Session) {
		s.AddFlash(FlashMessage{Kind: "success", Message: "Enrolled successfully"})
	})

	var popped *FlashMessage
	roundTrip(t, sm, first.ID, func(s *Session) { popped = s.PopFlash() })
	require.NotNil(t, popped)
	assert.Equal(t, "Enrolled successfully", popped.Message)

	roundTrip(t, sm, first.ID, func(s *Session) { popped = s.PopFlash() })
	assert.Nil(t, popped)
}

func TestSessionRenewDropsOldRecord(t *testing.T) {
	sm, mr := newTestSessionManager(t)

	first, _ := roundTrip(t, sm, "", func(s *Session) { s.Set("k", "v") })
	require.True(t, mr.Exists("session:"+first.ID))

	renewed, rec := roundTrip(t, sm, first.ID, func(s *Session) {
		sm.Renew(s)
		s.SetUser("42")
	})
	assert.NotEqual(t, first.ID, renewed.ID)
	assert.False(t, mr.Exists("session:"+first.ID))
	assert.True(t, mr.Exists("session:"+renewed.ID))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), renewed.ID)

	again, _ := roundTrip(t, sm, renewed.ID, nil)
	assert.Equal(t, "42", again.User())
	assert.Equal(t, "v", again.Get("k"))
}

func TestSessionDestroy(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	first, _ := roundTrip(t, sm, "", nil)

	_, rec := roundTrip(t, sm, first.ID, func(s *Session) { sm.Destroy(s) })
	assert.False(t, mr.Exists("session:"+first.ID))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestSessionUnknownCookieGetsFreshID(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	sess, _ := roundTrip(t, sm, "stale-id", nil)
	assert.NotEqual(t, "stale-id", sess.ID)
	assert.Empty(t, sess.User())
}

func TestSessionExpires(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	first, _ := roundTrip(t, sm, "", func(s *Session) { s.SetUser("7") })

	mr.FastForward(2 * time.Hour)
	sess, _ := roundTrip(t, sm, first.ID, nil)
	assert.NotEqual(t, first.ID, sess.ID)
	assert.Empty(t, sess.User())
}

func TestSessionActivityExtendsTTL(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	first, _ := roundTrip(t, sm, "", func(s *Session) { s.SetUser("7") })

	mr.FastForward(45 * time.Minute)
	_, rec := roundTrip(t, sm, first.ID, nil)
	assert.Equal(t, time.Hour, mr.TTL("session:"+first.ID))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=3600")

	mr.FastForward(45 * time.Minute)
	again, _ := roundTrip(t, sm, first.ID, nil)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "7", again.User())
}
