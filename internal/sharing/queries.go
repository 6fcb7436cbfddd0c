package sharing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fundshare/fundshare/internal/accounts"
	"github.com/fundshare/fundshare/internal/audit"
	"github.com/fundshare/fundshare/internal/grants"
	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/requests"
	"github.com/fundshare/fundshare/internal/shared"
)

// overviewAuditEntries is how many recent audit entries the overview shows.
const overviewAuditEntries = 10

// RequestQuery filters request listings.
type RequestQuery struct {
	Status requests.Status
	From   time.Time
	To     time.Time
	Page   shared.PageRequest
}

// RequestPage is one page of requests.
type RequestPage struct {
	Requests []requests.Request `json:"requests"`
	Paging   shared.Paging      `json:"paging"`
}

// AccessSummary describes what the caller may do on an account.
type AccessSummary struct {
	AccountID             int64             `json:"account_id"`
	Owner                 bool              `json:"owner"`
	Shared                bool              `json:"shared"`
	Level                 permissions.Level `json:"level"`
	CanView               bool              `json:"can_view"`
	CanManageTransactions bool              `json:"can_manage_transactions"`
	CanModifyAccount      bool              `json:"can_modify_account"`
	CanManagePermissions  bool              `json:"can_manage_permissions"`
}

// Overview is the sharing page of one account.
type Overview struct {
	Account         accounts.Account   `json:"account"`
	Grants          []grants.Grant     `json:"grants"`
	PendingRequests []requests.Request `json:"pending_requests"`
	RecentActivity  []audit.Entry      `json:"recent_activity"`
}

// AccessSummary reports the caller's effective access. Callers without access get NotFound.
func (s *Service) AccessSummary(ctx context.Context, userID, accountID int64) (AccessSummary, error) {
	snap, err := s.Evaluator().Authorize(ctx, accountID, userID, permissions.CapabilityView)
	if err != nil {
		return AccessSummary{}, err
	}
	level := snap.Level()
	return AccessSummary{
		AccountID:             accountID,
		Owner:                 snap.Owner(),
		Shared:                snap.Account.Shared,
		Level:                 level,
		CanView:               level.CanView(),
		CanManageTransactions: level.CanManageTransactions(),
		CanModifyAccount:      level.CanModifyAccount(),
		CanManagePermissions:  snap.Owner(),
	}, nil
}

// ListPermissions returns the grants on an account. Requires owner or FULL access.
func (s *Service) ListPermissions(ctx context.Context, userID, accountID int64) ([]grants.Grant, error) {
	if _, err := s.Evaluator().Authorize(ctx, accountID, userID, permissions.CapabilityFull); err != nil {
		return nil, err
	}
	list, err := s.store.Grants().ListForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []grants.Grant{}
	}
	return list, nil
}

// ListAccountRequests returns requests on an account. Owner only.
func (s *Service) ListAccountRequests(ctx context.Context, userID, accountID int64, query RequestQuery) (RequestPage, error) {
	if _, err := s.Evaluator().AuthorizeOwner(ctx, accountID, userID); err != nil {
		return RequestPage{}, err
	}
	return s.listRequests(ctx, requests.ListFilter{AccountID: accountID}, query)
}

// ListMyRequests returns the caller's own requests.
func (s *Service) ListMyRequests(ctx context.Context, userID int64, query RequestQuery) (RequestPage, error) {
	return s.listRequests(ctx, requests.ListFilter{RequesterID: userID}, query)
}

// ListIncomingRequests returns requests on accounts the caller owns.
func (s *Service) ListIncomingRequests(ctx context.Context, userID int64, query RequestQuery) (RequestPage, error) {
	return s.listRequests(ctx, requests.ListFilter{OwnerID: userID}, query)
}

func (s *Service) listRequests(ctx context.Context, filter requests.ListFilter, query RequestQuery) (RequestPage, error) {
	if !query.From.IsZero() && !query.To.IsZero() && query.From.After(query.To) {
		return RequestPage{}, fmt.Errorf("from must not be after to: %w", shared.ErrInvalidRequest)
	}
	filter.Status = query.Status
	filter.From = query.From
	filter.To = query.To
	filter.Page = query.Page.Normalize()
	rows, err := s.store.Requests().List(ctx, filter)
	if err != nil {
		return RequestPage{}, err
	}
	list, paging := shared.Paginate(rows, filter.Page)
	if list == nil {
		list = []requests.Request{}
	}
	return RequestPage{Requests: list, Paging: paging}, nil
}

// Overview loads grants, pending requests and recent activity concurrently.
// Requires owner or FULL access and records an ACCOUNT_VIEWED entry.
func (s *Service) Overview(ctx context.Context, actor Actor, accountID int64) (Overview, error) {
	snap, err := s.Evaluator().Authorize(ctx, accountID, actor.UserID, permissions.CapabilityFull)
	if err != nil {
		return Overview{}, err
	}
	out := Overview{Account: snap.Account}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.store.Grants().ListForAccount(gctx, accountID)
		out.Grants = list
		return err
	})
	g.Go(func() error {
		rows, err := s.store.Requests().List(gctx, requests.ListFilter{
			AccountID: accountID,
			Status:    requests.StatusPending,
			Page:      shared.PageRequest{Page: 1, PageSize: shared.MaxPageSize},
		})
		out.PendingRequests, _ = shared.Paginate(rows, shared.PageRequest{Page: 1, PageSize: shared.MaxPageSize})
		return err
	})
	g.Go(func() error {
		rows, err := s.store.Audit().List(gctx, audit.Filter{
			AccountID: accountID,
			Page:      shared.PageRequest{Page: 1, PageSize: overviewAuditEntries},
		})
		out.RecentActivity, _ = shared.Paginate(rows, shared.PageRequest{Page: 1, PageSize: overviewAuditEntries})
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("sharing: overview: %w", err)
	}
	if out.Grants == nil {
		out.Grants = []grants.Grant{}
	}
	if out.PendingRequests == nil {
		out.PendingRequests = []requests.Request{}
	}
	if out.RecentActivity == nil {
		out.RecentActivity = []audit.Entry{}
	}
	s.recordAudit(ctx, s.store, actor, accountID, audit.ActionAccountViewed, map[string]any{"view": "sharing_overview"})
	return out, nil
}
