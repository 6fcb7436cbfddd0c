package memory

import (
	"context"

	"github.com/fundshare/fundshare/internal/grants"
	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/shared"
)

type grantStore struct {
	h *handle
}

func (s grantStore) Get(_ context.Context, accountID, userID int64) (grants.Grant, error) {
	var out grants.Grant
	err := s.h.run(func(st *state) error {
		g, ok := st.grants[grantKey{accountID, userID}]
		if !ok {
			return shared.ErrNotFound
		}
		out = g
		return nil
	})
	return out, err
}

func (s grantStore) Insert(_ context.Context, g grants.Grant) (grants.Grant, error) {
	var out grants.Grant
	err := s.h.run(func(st *state) error {
		if _, ok := st.accounts[g.AccountID]; !ok {
			return errorf("grant references missing account %d", g.AccountID)
		}
		key := grantKey{g.AccountID, g.UserID}
		if _, ok := st.grants[key]; ok {
			return shared.ErrDuplicateGrant
		}
		out = s.create(st, g)
		return nil
	})
	return out, err
}

func (s grantStore) Upsert(_ context.Context, g grants.Grant) (grants.UpsertResult, error) {
	var out grants.UpsertResult
	err := s.h.run(func(st *state) error {
		if _, ok := st.accounts[g.AccountID]; !ok {
			return errorf("grant references missing account %d", g.AccountID)
		}
		key := grantKey{g.AccountID, g.UserID}
		existing, ok := st.grants[key]
		if !ok {
			out = grants.UpsertResult{Grant: s.create(st, g), Previous: permissions.LevelNone, Created: true}
			return nil
		}
		previous := existing.Level
		existing.Level = g.Level
		existing.GrantedBy = g.GrantedBy
		existing.UpdatedAt = s.h.now()
		st.grants[key] = existing
		out = grants.UpsertResult{Grant: existing, Previous: previous}
		return nil
	})
	return out, err
}

func (s grantStore) create(st *state, g grants.Grant) grants.Grant {
	st.nextGrantID++
	now := s.h.now()
	g.ID = st.nextGrantID
	g.CreatedAt = now
	g.UpdatedAt = now
	st.grants[grantKey{g.AccountID, g.UserID}] = g
	return g
}

func (s grantStore) Remove(_ context.Context, accountID, userID int64) (grants.Grant, error) {
	var out grants.Grant
	err := s.h.run(func(st *state) error {
		key := grantKey{accountID, userID}
		g, ok := st.grants[key]
		if !ok {
			return shared.ErrNotFound
		}
		delete(st.grants, key)
		out = g
		return nil
	})
	return out, err
}

func (s grantStore) ListForAccount(_ context.Context, accountID int64) ([]grants.Grant, error) {
	return s.list(func(g grants.Grant) bool { return g.AccountID == accountID })
}

func (s grantStore) ListForUser(_ context.Context, userID int64) ([]grants.Grant, error) {
	return s.list(func(g grants.Grant) bool { return g.UserID == userID })
}

func (s grantStore) list(match func(grants.Grant) bool) ([]grants.Grant, error) {
	var out []grants.Grant
	err := s.h.run(func(st *state) error {
		for _, g := range st.grants {
			if match(g) {
				out = append(out, g)
			}
		}
		return nil
	})
	sortGrants(out)
	return out, err
}
