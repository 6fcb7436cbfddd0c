// Package grants is the durable (account, user) → permission level mapping.
package grants

import (
	"context"
	"time"

	"github.com/fundshare/fundshare/internal/permissions"
)

// Grant stores the level a non-owner user holds on an account.
type Grant struct {
	ID        int64             `json:"id"`
	AccountID int64             `json:"account_id"`
	UserID    int64             `json:"user_id"`
	Level     permissions.Level `json:"level"`
	GrantedBy int64             `json:"granted_by"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// UpsertResult describes the outcome of an upsert.
type UpsertResult struct {
	Grant    Grant
	Previous permissions.Level
	Created  bool
}

// Reader answers point lookups. Get returns shared.ErrNotFound when no grant exists.
type Reader interface {
	Get(ctx context.Context, accountID, userID int64) (Grant, error)
}

// Store is the permission store port. Implementations enforce uniqueness of
// (account, user) and make every mutation atomic per key.
type Store interface {
	Reader
	// Insert fails with shared.ErrDuplicateGrant when the pair already has a grant.
	Insert(ctx context.Context, g Grant) (Grant, error)
	// Upsert overwrites the level of an existing grant or creates one.
	Upsert(ctx context.Context, g Grant) (UpsertResult, error)
	// Remove deletes the grant and returns it, or shared.ErrNotFound.
	Remove(ctx context.Context, accountID, userID int64) (Grant, error)
	ListForAccount(ctx context.Context, accountID int64) ([]Grant, error)
	ListForUser(ctx context.Context, userID int64) ([]Grant, error)
}
