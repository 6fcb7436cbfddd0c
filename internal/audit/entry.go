package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fundshare/fundshare/internal/shared"
)

// Record is what callers hand to the writer. Origin and ClientAgent are optional
// and always passed explicitly by the caller.
type Record struct {
	AccountID   int64
	ActorUserID int64
	Action      ActionType
	Details     map[string]any
	Origin      string
	ClientAgent string
}

// Entry is a persisted audit log row. Details is nil for degraded entries.
type Entry struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   int64           `json:"account_id"`
	ActorUserID int64           `json:"actor_user_id"`
	Action      ActionType      `json:"action"`
	Details     json.RawMessage `json:"details"`
	Origin      string          `json:"origin,omitempty"`
	ClientAgent string          `json:"client_agent,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Filter narrows an audit listing. Zero fields are ignored; To is exclusive.
type Filter struct {
	AccountID   int64
	ActorUserID int64
	Action      ActionType
	From        time.Time
	To          time.Time
	Page        shared.PageRequest
}

// Store is the append-only audit log port.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	// List returns up to Filter.Page.Limit() entries ordered by created_at DESC, id DESC.
	List(ctx context.Context, filter Filter) ([]Entry, error)
	// PurgeBefore deletes entries created strictly before cutoff.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
