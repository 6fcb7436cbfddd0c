package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/fundshare/fundshare/internal/shared"
)

func newSessionManager(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "test_session", time.Hour), mr
}

func TestSessionIssueAndLoadByHeader(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 42)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(shared.SessionHeader, sess.Token)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, int64(42), loaded.UserID)
	require.False(t, loaded.ExpiresAt.IsZero())
}

func TestSessionLoadByCookie(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 7)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.Token})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, int64(7), loaded.UserID)
}

func TestSessionMissingOrExpired(t *testing.T) {
	sm, mr := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := sm.Load(ctx, req)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)

	sess, err := sm.Issue(ctx, 9)
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	req.Header.Set(shared.SessionHeader, sess.Token)
	_, err = sm.Load(ctx, req)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestSessionRevoke(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 11)
	require.NoError(t, err)
	require.NoError(t, sm.Revoke(ctx, sess.Token))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(shared.SessionHeader, sess.Token)
	_, err = sm.Load(ctx, req)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestSessionIssueRejectsInvalidUser(t *testing.T) {
	sm, _ := newSessionManager(t)
	_, err := sm.Issue(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidRequest)
}
