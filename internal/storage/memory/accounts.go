package memory

import (
	"context"

	"github.com/fundshare/fundshare/internal/accounts"
	"github.com/fundshare/fundshare/internal/shared"
)

type accountStore struct {
	h *handle
}

func (s accountStore) Get(_ context.Context, id int64) (accounts.Account, error) {
	var out accounts.Account
	err := s.h.run(func(st *state) error {
		acc, ok := st.accounts[id]
		if !ok {
			return shared.ErrNotFound
		}
		out = acc
		return nil
	})
	return out, err
}

func (s accountStore) SetShared(_ context.Context, id int64, sharedFlag bool) (accounts.Account, error) {
	var out accounts.Account
	err := s.h.run(func(st *state) error {
		acc, ok := st.accounts[id]
		if !ok {
			return shared.ErrNotFound
		}
		acc.Shared = sharedFlag
		acc.UpdatedAt = s.h.now()
		st.accounts[id] = acc
		out = acc
		return nil
	})
	return out, err
}

func (s accountStore) Delete(_ context.Context, id int64) error {
	return s.h.run(func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return shared.ErrNotFound
		}
		delete(st.accounts, id)
		for key := range st.grants {
			if key.accountID == id {
				delete(st.grants, key)
			}
		}
		for reqID, req := range st.requests {
			if req.AccountID == id {
				delete(st.requests, reqID)
			}
		}
		return nil
	})
}
