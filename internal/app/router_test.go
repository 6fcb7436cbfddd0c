package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundshare/fundshare/internal/access"
	"github.com/fundshare/fundshare/internal/audit"
	audithttp "github.com/fundshare/fundshare/internal/audit/http"
	"github.com/fundshare/fundshare/internal/observability"
	"github.com/fundshare/fundshare/internal/shared"
	"github.com/fundshare/fundshare/internal/sharing"
	"github.com/fundshare/fundshare/internal/storage/memory"
	"github.com/fundshare/fundshare/jobs"
	_ "github.com/fundshare/fundshare/testing"
)

// idleQueue reports a maintenance queue nobody has enqueued into yet.
type idleQueue struct{}

func (idleQueue) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return nil, fmt.Errorf("asynq: %w", asynq.ErrQueueNotFound)
}

func (idleQueue) ListCompletedTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, nil
}

type routerEnv struct {
	handler   http.Handler
	sessions  *shared.SessionManager
	redis     *miniredis.Miniredis
	accountID int64
}

func newRouterEnv(t *testing.T) routerEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &Config{
		AppEnv:                    "test",
		AppRequestTimeout:         5 * time.Second,
		SessionCookie:             "fundshare_session",
		RateLimitPerMinute:        0,
		RequestRateLimitPerMinute: 10,
	}
	sessions := shared.NewSessionManager(client, cfg.SessionCookie, time.Hour)
	metrics := observability.NewMetrics()

	db := memory.New()
	acc := db.SeedAccount(1, "Household", true)
	svc := sharing.NewService(db, audit.NewWriter(db.Audit(), logger, metrics), logger).WithMetrics(metrics)
	mw := access.Middleware{Evaluator: svc.Evaluator(), Logger: logger}

	handler := NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		SharingHandler: sharing.NewHandler(logger, svc),
		AuditHandler:   audithttp.NewHandler(logger, audit.NewService(db.Audit(), logger), mw),
		JobHandler:     jobs.NewStatusHandler(idleQueue{}, logger),
		Metrics:        metrics,
	})
	return routerEnv{handler: handler, sessions: sessions, redis: mr, accountID: acc.ID}
}

func (e routerEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	sess, err := e.sessions.Issue(context.Background(), userID)
	require.NoError(t, err)
	return sess.Token
}

func (e routerEnv) do(method, target, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set(shared.SessionHeader, token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e routerEnv) path(suffix string) string {
	return "/accounts/" + strconv.FormatInt(e.accountID, 10) + suffix
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	e := newRouterEnv(t)
	rr := e.do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	rr = e.do(http.MethodGet, "/jobs/audit-retention", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue":"maintenance"`)
	assert.Contains(t, rr.Body.String(), `"last_purge":null`)
}

func TestRouterResolvesSessions(t *testing.T) {
	e := newRouterEnv(t)

	rr := e.do(http.MethodGet, e.path("/access"), "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = e.do(http.MethodGet, e.path("/access"), "unknown-token", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	owner := e.token(t, 1)
	rr = e.do(http.MethodGet, e.path("/access"), owner, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"owner":true`)
}

func TestRouterSharingAndAuditFlow(t *testing.T) {
	e := newRouterEnv(t)
	owner := e.token(t, 1)
	viewer := e.token(t, 2)

	rr := e.do(http.MethodPost, e.path("/permissions"), owner, `{"user_id": 2, "level": "VIEW_ONLY"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(http.MethodGet, e.path("/audit-log"), viewer, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(http.MethodGet, e.path("/audit-log"), owner, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"PERMISSION_GRANTED"`)
	assert.Contains(t, rr.Body.String(), `"origin":"192.0.2.1"`)

	rr = e.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `fundshare_audit_writes_total{action="PERMISSION_GRANTED",outcome="written"} 1`)
	assert.Contains(t, rr.Body.String(), "fundshare_access_decisions_total")
}

func TestRouterSessionStoreOutage(t *testing.T) {
	e := newRouterEnv(t)
	token := e.token(t, 1)
	e.redis.SetError("ERR session backend failure")

	rr := e.do(http.MethodGet, e.path("/access"), token, "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
