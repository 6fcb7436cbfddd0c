// Package memory is an in-process implementation of every store behind the
// sharing services. Units of work are serialised by a single lock and applied
// atomically by swapping in a modified copy of the state.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fundshare/fundshare/internal/accounts"
	"github.com/fundshare/fundshare/internal/audit"
	"github.com/fundshare/fundshare/internal/grants"
	"github.com/fundshare/fundshare/internal/requests"
	"github.com/fundshare/fundshare/internal/sharing"
)

type grantKey struct {
	accountID int64
	userID    int64
}

// state holds every table. The audit log is append-only, so copies share the
// committed entries and buffer their own inserts in pending until commit.
type state struct {
	accounts      map[int64]accounts.Account
	grants        map[grantKey]grants.Grant
	requests      map[int64]requests.Request
	audit         []audit.Entry
	pending       []audit.Entry
	buffered      bool
	nextAccountID int64
	nextGrantID   int64
	nextRequestID int64
}

func newState() *state {
	return &state{
		accounts: make(map[int64]accounts.Account),
		grants:   make(map[grantKey]grants.Grant),
		requests: make(map[int64]requests.Request),
	}
}

func (s *state) clone() *state {
	out := &state{
		accounts:      make(map[int64]accounts.Account, len(s.accounts)),
		grants:        make(map[grantKey]grants.Grant, len(s.grants)),
		requests:      make(map[int64]requests.Request, len(s.requests)),
		audit:         s.audit,
		buffered:      true,
		nextAccountID: s.nextAccountID,
		nextGrantID:   s.nextGrantID,
		nextRequestID: s.nextRequestID,
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.grants {
		out.grants[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	return out
}

func (s *state) appendEntry(e audit.Entry) {
	if s.buffered {
		s.pending = append(s.pending, e)
		return
	}
	s.audit = append(s.audit, e)
}

func (s *state) entries(fn func(audit.Entry)) {
	for _, e := range s.audit {
		fn(e)
	}
	for _, e := range s.pending {
		fn(e)
	}
}

// commit folds buffered audit entries into the log.
func (s *state) commit() {
	s.audit = append(s.audit, s.pending...)
	s.pending = nil
	s.buffered = false
}

// DB is the in-memory database.
type DB struct {
	mu        sync.Mutex
	st        *state
	now       func() time.Time
	auditHook func(audit.Entry) error
}

// New constructs an empty database.
func New() *DB {
	return &DB{st: newState(), now: time.Now}
}

// SetClock overrides the time source used for created/updated timestamps.
func (d *DB) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// FailAuditInserts installs a hook consulted before every audit insert; a non-nil
// error from the hook fails that insert. Pass nil to clear it.
func (d *DB) FailAuditInserts(hook func(audit.Entry) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.auditHook = hook
}

// SeedAccount creates an account owned by ownerID.
func (d *DB) SeedAccount(ownerID int64, name string, shared bool) accounts.Account {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.st.nextAccountID++
	now := d.now().UTC()
	acc := accounts.Account{
		ID:        d.st.nextAccountID,
		OwnerID:   ownerID,
		Name:      name,
		Shared:    shared,
		Balance:   "0.00",
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.st.accounts[acc.ID] = acc
	return acc
}

// WithTx runs fn against a private copy of the state and publishes it on success.
func (d *DB) WithTx(ctx context.Context, fn func(context.Context, sharing.Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := d.st.clone()
	if err := fn(ctx, stores{h: &handle{db: d, st: work}}); err != nil {
		return err
	}
	work.commit()
	d.st = work
	return nil
}

// Accounts returns the non-transactional account store.
func (d *DB) Accounts() accounts.Store { return accountStore{h: &handle{db: d}} }

// Grants returns the non-transactional grant store.
func (d *DB) Grants() grants.Store { return grantStore{h: &handle{db: d}} }

// Requests returns the non-transactional request store.
func (d *DB) Requests() requests.Store { return requestStore{h: &handle{db: d}} }

// Audit returns the non-transactional audit store.
func (d *DB) Audit() audit.Store { return auditStore{h: &handle{db: d}} }

// handle runs store operations either on a unit-of-work copy (already locked by
// WithTx) or on the live state under the lock.
type handle struct {
	db *DB
	st *state
}

func (h *handle) run(fn func(st *state) error) error {
	if h.st != nil {
		return fn(h.st)
	}
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	return fn(h.db.st)
}

func (h *handle) now() time.Time {
	return h.db.now().UTC()
}

type stores struct {
	h *handle
}

func (s stores) Accounts() accounts.Store { return accountStore(s) }
func (s stores) Grants() grants.Store     { return grantStore(s) }
func (s stores) Requests() requests.Store { return requestStore(s) }
func (s stores) Audit() audit.Store       { return auditStore(s) }

func sortGrants(list []grants.Grant) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

func sortRequests(list []requests.Request) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

func sortEntries(list []audit.Entry) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return bytes.Compare(list[i].ID[:], list[j].ID[:]) > 0
	})
}

func window[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return append([]T(nil), rows[offset:end]...)
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

var _ sharing.Storage = (*DB)(nil)

func errorf(format string, args ...any) error {
	return fmt.Errorf("memory: "+format, args...)
}
