package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundshare/fundshare/internal/access"
	"github.com/fundshare/fundshare/internal/audit"
	"github.com/fundshare/fundshare/internal/grants"
	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/shared"
	"github.com/fundshare/fundshare/internal/storage/memory"
)

type stubLogService struct {
	result     audit.Result
	err        error
	lastFilter audit.Filter
}

func (s *stubLogService) List(_ context.Context, filter audit.Filter) (audit.Result, error) {
	s.lastFilter = filter
	return s.result, s.err
}

type fixture struct {
	router    chi.Router
	service   *stubLogService
	accountID int64
}

const (
	ownerID  = int64(1)
	fullID   = int64(2)
	viewerID = int64(3)
	otherID  = int64(4)
)

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := memory.New()
	acc := db.SeedAccount(ownerID, "Household", true)
	ctx := context.Background()
	_, err := db.Grants().Upsert(ctx, grants.Grant{AccountID: acc.ID, UserID: fullID, Level: permissions.FullAccess, GrantedBy: ownerID})
	require.NoError(t, err)
	_, err = db.Grants().Upsert(ctx, grants.Grant{AccountID: acc.ID, UserID: viewerID, Level: permissions.ViewOnly, GrantedBy: ownerID})
	require.NoError(t, err)

	service := &stubLogService{result: audit.Result{Entries: []audit.Entry{}, Paging: shared.Paging{Page: 1, PageSize: 20}}}
	mw := access.Middleware{Evaluator: access.NewEvaluator(db.Accounts(), db.Grants())}
	handler := NewHandler(nil, service, mw)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return fixture{router: r, service: service, accountID: acc.ID}
}

func (f fixture) get(userID int64, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userID > 0 {
		req = req.WithContext(shared.ContextWithActor(req.Context(), userID))
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f fixture) path() string {
	return "/accounts/" + strconv.FormatInt(f.accountID, 10) + "/audit-log"
}

func TestAuditLogRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	rr := f.get(0, f.path())
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuditLogAccessByLevel(t *testing.T) {
	f := newFixture(t)
	cases := map[string]struct {
		user int64
		want int
	}{
		"owner":       {ownerID, http.StatusOK},
		"full access": {fullID, http.StatusOK},
		"view only":   {viewerID, http.StatusForbidden},
		"stranger":    {otherID, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := f.get(tc.user, f.path())
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestAuditLogPassesFilters(t *testing.T) {
	f := newFixture(t)
	rr := f.get(ownerID, f.path()+"?action=permission_granted&actor=2&from=2026-03-01&to=2026-03-31&page=2&page_size=5")
	require.Equal(t, http.StatusOK, rr.Code)

	got := f.service.lastFilter
	assert.Equal(t, f.accountID, got.AccountID)
	assert.Equal(t, audit.ActionPermissionGranted, got.Action)
	assert.Equal(t, int64(2), got.ActorUserID)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got.From)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), got.To)
	assert.Equal(t, 2, got.Page.Page)
	assert.Equal(t, 5, got.Page.PageSize)

	var body audit.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Paging.Page)
}

func TestAuditLogRejectsUnknownAction(t *testing.T) {
	f := newFixture(t)
	rr := f.get(ownerID, f.path()+"?action=LOGGED_IN")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestAuditLogHidesStoreErrors(t *testing.T) {
	f := newFixture(t)
	f.service.err = context.DeadlineExceeded
	rr := f.get(ownerID, f.path())
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "deadline")
}
