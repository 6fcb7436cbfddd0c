package memory

import (
	"context"
	"fmt"

	"github.com/fundshare/fundshare/internal/requests"
	"github.com/fundshare/fundshare/internal/shared"
)

type requestStore struct {
	h *handle
}

func (s requestStore) Get(_ context.Context, id int64) (requests.Request, error) {
	var out requests.Request
	err := s.h.run(func(st *state) error {
		r, ok := st.requests[id]
		if !ok {
			return shared.ErrNotFound
		}
		out = r
		return nil
	})
	return out, err
}

// GetForUpdate is Get: units of work are already exclusive.
func (s requestStore) GetForUpdate(ctx context.Context, id int64) (requests.Request, error) {
	return s.Get(ctx, id)
}

func (s requestStore) FindPending(_ context.Context, accountID, requesterID int64) (requests.Request, error) {
	var out requests.Request
	err := s.h.run(func(st *state) error {
		r, ok := findPending(st, accountID, requesterID)
		if !ok {
			return shared.ErrNotFound
		}
		out = r
		return nil
	})
	return out, err
}

func findPending(st *state, accountID, requesterID int64) (requests.Request, bool) {
	for _, r := range st.requests {
		if r.AccountID == accountID && r.RequesterID == requesterID && r.Status == requests.StatusPending {
			return r, true
		}
	}
	return requests.Request{}, false
}

func (s requestStore) Insert(_ context.Context, r requests.Request) (requests.Request, error) {
	var out requests.Request
	err := s.h.run(func(st *state) error {
		if _, ok := st.accounts[r.AccountID]; !ok {
			return errorf("request references missing account %d", r.AccountID)
		}
		if _, ok := findPending(st, r.AccountID, r.RequesterID); ok {
			return fmt.Errorf("memory: insert request: %w", shared.ErrDuplicateRequest)
		}
		st.nextRequestID++
		r.ID = st.nextRequestID
		r.Status = requests.StatusPending
		r.ReviewerID = nil
		r.ReviewMessage = ""
		r.ReviewedAt = nil
		r.CreatedAt = s.h.now()
		st.requests[r.ID] = r
		out = r
		return nil
	})
	return out, err
}

func (s requestStore) Update(_ context.Context, r requests.Request) error {
	return s.h.run(func(st *state) error {
		stored, ok := st.requests[r.ID]
		if !ok {
			return shared.ErrNotFound
		}
		if stored.Status != requests.StatusPending {
			return fmt.Errorf("memory: update request %d: %w", r.ID, shared.ErrInvalidState)
		}
		stored.Status = r.Status
		stored.ReviewerID = r.ReviewerID
		stored.ReviewMessage = r.ReviewMessage
		stored.ReviewedAt = r.ReviewedAt
		st.requests[r.ID] = stored
		return nil
	})
}

func (s requestStore) List(_ context.Context, filter requests.ListFilter) ([]requests.Request, error) {
	var matched []requests.Request
	err := s.h.run(func(st *state) error {
		for _, r := range st.requests {
			if filter.OwnerID > 0 {
				acc, ok := st.accounts[r.AccountID]
				if !ok || acc.OwnerID != filter.OwnerID {
					continue
				}
			}
			if filter.AccountID > 0 && r.AccountID != filter.AccountID {
				continue
			}
			if filter.RequesterID > 0 && r.RequesterID != filter.RequesterID {
				continue
			}
			if filter.ReviewerID > 0 && (r.ReviewerID == nil || *r.ReviewerID != filter.ReviewerID) {
				continue
			}
			if filter.Status != "" && r.Status != filter.Status {
				continue
			}
			if !inRange(r.CreatedAt, filter.From, filter.To) {
				continue
			}
			matched = append(matched, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRequests(matched)
	page := filter.Page.Normalize()
	return window(matched, page.Offset(), page.Limit()), nil
}
