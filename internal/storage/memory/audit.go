package memory

import (
	"context"
	"time"

	"github.com/fundshare/fundshare/internal/audit"
)

type auditStore struct {
	h *handle
}

func (s auditStore) Insert(_ context.Context, e audit.Entry) error {
	return s.h.run(func(st *state) error {
		if hook := s.h.db.auditHook; hook != nil {
			if err := hook(e); err != nil {
				return err
			}
		}
		if e.Details != nil {
			e.Details = append([]byte(nil), e.Details...)
		}
		st.appendEntry(e)
		return nil
	})
}

func (s auditStore) List(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	var matched []audit.Entry
	err := s.h.run(func(st *state) error {
		st.entries(func(e audit.Entry) {
			switch {
			case filter.AccountID > 0 && e.AccountID != filter.AccountID:
			case filter.ActorUserID > 0 && e.ActorUserID != filter.ActorUserID:
			case filter.Action != "" && e.Action != filter.Action:
			case !inRange(e.CreatedAt, filter.From, filter.To):
			default:
				matched = append(matched, e)
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEntries(matched)
	page := filter.Page.Normalize()
	return window(matched, page.Offset(), page.Limit()), nil
}

func (s auditStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := s.h.run(func(st *state) error {
		keep := func(list []audit.Entry) []audit.Entry {
			kept := list[:0:0]
			for _, e := range list {
				if e.CreatedAt.Before(cutoff) {
					removed++
					continue
				}
				kept = append(kept, e)
			}
			return kept
		}
		st.audit = keep(st.audit)
		st.pending = keep(st.pending)
		return nil
	})
	return removed, err
}
