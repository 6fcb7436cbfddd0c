package sharing_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundshare/fundshare/internal/audit"
	"github.com/fundshare/fundshare/internal/platform/httpx"
	"github.com/fundshare/fundshare/internal/requests"
	"github.com/fundshare/fundshare/internal/shared"
	"github.com/fundshare/fundshare/internal/sharing"
)

type httpEnv struct {
	env
	router chi.Router
}

func newHTTPEnv(t *testing.T, opts sharing.RouteOptions) httpEnv {
	t.Helper()
	e := newEnv(t)
	r := chi.NewRouter()
	sharing.NewHandler(nil, e.svc).MountRoutes(r, opts)
	return httpEnv{env: e, router: r}
}

func (h httpEnv) do(userID int64, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := shared.ContextWithOrigin(req.Context(), shared.Origin{Address: "192.0.2.1", ClientAgent: "handler-test"})
	if userID > 0 {
		ctx = shared.ContextWithActor(ctx, userID)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req.WithContext(ctx))
	return rr
}

func (h httpEnv) accountPath(suffix string) string {
	return fmt.Sprintf("/accounts/%d%s", h.accountID, suffix)
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	return problem
}

func TestHandlerRequiresActor(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{})
	rr := h.do(0, http.MethodGet, h.accountPath("/access"), "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = h.do(0, http.MethodGet, "/permission-requests/mine", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerAccessSummary(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{})

	rr := h.do(viewerID, http.MethodGet, h.accountPath("/access"), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, "VIEW_ONLY", summary["level"])
	assert.Equal(t, true, summary["can_view"])
	assert.Equal(t, false, summary["can_manage_permissions"])

	rr = h.do(strangerID, http.MethodGet, h.accountPath("/access"), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do(ownerID, http.MethodGet, "/accounts/zero/access", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerGrantLifecycle(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{})

	rr := h.do(ownerID, http.MethodPost, h.accountPath("/permissions"), `{"user_id": 50, "level": "TRANSACTION_ONLY"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var grant map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &grant))
	assert.Equal(t, "TRANSACTION_ONLY", grant["level"])

	entry := h.lastEntry(t)
	assert.Equal(t, audit.ActionPermissionGranted, entry.Action)
	assert.Equal(t, "192.0.2.1", entry.Origin)
	assert.Equal(t, "handler-test", entry.ClientAgent)

	rr = h.do(ownerID, http.MethodPut, h.accountPath("/permissions/50"), `{"level": "FULL_ACCESS"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(ownerID, http.MethodGet, h.accountPath("/permissions"), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var listed struct {
		Permissions []map[string]any `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Len(t, listed.Permissions, 3)

	rr = h.do(ownerID, http.MethodDelete, h.accountPath("/permissions/50"), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = h.do(ownerID, http.MethodDelete, h.accountPath("/permissions/50"), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerGrantValidation(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{})
	cases := map[string]string{
		"malformed":     `{"user_id":`,
		"unknown field": `{"user_id": 50, "level": "VIEW_ONLY", "admin": true}`,
		"bad level":     `{"user_id": 50, "level": "ADMIN"}`,
		"missing user":  `{"level": "VIEW_ONLY"}`,
		"owner target":  fmt.Sprintf(`{"user_id": %d, "level": "VIEW_ONLY"}`, ownerID),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := h.do(ownerID, http.MethodPost, h.accountPath("/permissions"), body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	rr := h.do(ownerID, http.MethodPost, h.accountPath("/permissions"), `{"level": "ADMIN"}`)
	problem := decodeProblem(t, rr)
	assert.Contains(t, problem.Detail, "user_id failed required")
	assert.Contains(t, problem.Detail, "level failed oneof")
}

func TestHandlerGrantDisclosure(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{})
	body := `{"user_id": 50, "level": "VIEW_ONLY"}`

	rr := h.do(fullID, http.MethodPost, h.accountPath("/permissions"), body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(strangerID, http.MethodPost, h.accountPath("/permissions"), body)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "You do not have permission to perform this action.", decodeProblem(t, rr).Detail)

	rr = h.do(strangerID, http.MethodGet, h.accountPath("/permissions"), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "The requested resource was not found.", decodeProblem(t, rr).Detail)
}

func TestHandlerSharingToggle(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{})

	rr := h.do(ownerID, http.MethodPut, h.accountPath("/sharing"), `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(ownerID, http.MethodPut, h.accountPath("/sharing"), `{"shared": false}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(viewerID, http.MethodGet, h.accountPath("/access"), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerRequestWorkflow(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{})

	rr := h.do(viewerID, http.MethodPost, h.accountPath("/permission-requests"), `{"level": "FULL_ACCESS", "message": "please"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created requests.Request
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, requests.StatusPending, created.Status)

	rr = h.do(viewerID, http.MethodPost, h.accountPath("/permission-requests"), `{"level": "FULL_ACCESS"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do(ownerID, http.MethodGet, "/permission-requests/incoming?status=PENDING", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var incoming sharing.RequestPage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &incoming))
	require.Len(t, incoming.Requests, 1)
	assert.Equal(t, created.ID, incoming.Requests[0].ID)

	approve := fmt.Sprintf("/permission-requests/%d/approve", created.ID)
	rr = h.do(viewerID, http.MethodPost, approve, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(ownerID, http.MethodPost, approve, `{"message": "welcome"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var approved requests.Request
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &approved))
	assert.Equal(t, requests.StatusApproved, approved.Status)
	assert.Equal(t, "welcome", approved.ReviewMessage)

	rr = h.do(ownerID, http.MethodPost, fmt.Sprintf("/permission-requests/%d/deny", created.ID), "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do(viewerID, http.MethodPost, fmt.Sprintf("/permission-requests/%d/cancel", created.ID), "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do(viewerID, http.MethodGet, "/permission-requests/mine?status=approved", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(viewerID, http.MethodGet, "/permission-requests/mine?status=APPROVED", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var mine sharing.RequestPage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &mine))
	assert.Len(t, mine.Requests, 1)
}

func TestHandlerAccountRequestsOwnerOnly(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{})
	rr := h.do(viewerID, http.MethodPost, h.accountPath("/permission-requests"), `{"level": "TRANSACTION_ONLY"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = h.do(ownerID, http.MethodGet, h.accountPath("/permission-requests?page_size=1"), "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(fullID, http.MethodGet, h.accountPath("/permission-requests"), "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(ownerID, http.MethodGet, h.accountPath("/permission-requests?page=0"), "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerRequestRateLimit(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{RequestsPerMinute: 2})
	path := h.accountPath("/permission-requests")

	assert.Equal(t, http.StatusCreated, h.do(viewerID, http.MethodPost, path, `{"level": "FULL_ACCESS"}`).Code)
	assert.Equal(t, http.StatusConflict, h.do(viewerID, http.MethodPost, path, `{"level": "FULL_ACCESS"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(viewerID, http.MethodPost, path, `{"level": "FULL_ACCESS"}`).Code)

	assert.NotEqual(t, http.StatusTooManyRequests, h.do(fullID, http.MethodPost, path, `{"level": "FULL_ACCESS"}`).Code)
}

func TestHandlerOverviewAndDelete(t *testing.T) {
	h := newHTTPEnv(t, sharing.RouteOptions{})

	rr := h.do(fullID, http.MethodGet, h.accountPath("/overview"), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var overview sharing.Overview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &overview))
	assert.Len(t, overview.Grants, 2)
	assert.Equal(t, audit.ActionAccountViewed, h.lastEntry(t).Action)

	rr = h.do(fullID, http.MethodDelete, h.accountPath(""), "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(ownerID, http.MethodDelete, h.accountPath(""), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = h.do(ownerID, http.MethodGet, h.accountPath("/access"), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
