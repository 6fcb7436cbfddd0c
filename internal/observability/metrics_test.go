package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `fundshare_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `fundshare_http_request_duration_seconds_bucket{route="/test"`)
}

func TestMetricsCountsAuditAndAccessOutcomes(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveAuditWrite("PERMISSION_GRANTED", "written")
	metrics.ObserveAuditWrite("PERMISSION_GRANTED", "written")
	metrics.ObserveAuditWrite("PERMISSION_REVOKED", "not_persisted")
	metrics.ObserveAccessDecision("FULL", "forbidden")

	body := scrape(t, metrics)
	assert.Contains(t, body, `fundshare_audit_writes_total{action="PERMISSION_GRANTED",outcome="written"} 2`)
	assert.Contains(t, body, `fundshare_audit_writes_total{action="PERMISSION_REVOKED",outcome="not_persisted"} 1`)
	assert.Contains(t, body, `fundshare_access_decisions_total{capability="FULL",outcome="forbidden"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveAuditWrite("PERMISSION_GRANTED", "written")
	metrics.ObserveAccessDecision("VIEW", "allowed")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "Service Unavailable"))
}
