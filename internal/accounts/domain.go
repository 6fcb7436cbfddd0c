// Package accounts holds the account model the permission core reads. Balance and
// transaction handling belong to the account services and are opaque here.
package accounts

import (
	"context"
	"time"
)

// Account is a financial account with exactly one owner.
type Account struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Shared    bool      `json:"shared"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOwner reports whether userID owns the account.
func (a Account) IsOwner(userID int64) bool {
	return userID > 0 && a.OwnerID == userID
}

// Reader loads accounts. Get returns shared.ErrNotFound for unknown IDs.
type Reader interface {
	Get(ctx context.Context, id int64) (Account, error)
}

// Store adds the mutations the sharing workflow performs on accounts.
type Store interface {
	Reader
	SetShared(ctx context.Context, id int64, shared bool) (Account, error)
	// Delete removes the account; grants and requests cascade, audit entries do not.
	Delete(ctx context.Context, id int64) error
}
