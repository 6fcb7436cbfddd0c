package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fundshare/fundshare/internal/platform/db"
	"github.com/fundshare/fundshare/internal/shared"
)

const accountColumns = `id, owner_id, name, shared, balance::text, created_at, updated_at`

// PGStore provides PostgreSQL backed persistence for accounts.
type PGStore struct {
	q db.Querier
}

// NewPGStore constructs a store over a pool or an open transaction.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{q: q}
}

// Get returns the account by ID.
func (s *PGStore) Get(ctx context.Context, id int64) (Account, error) {
	row := s.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// SetShared toggles the sharing flag and returns the updated account.
func (s *PGStore) SetShared(ctx context.Context, id int64, shared bool) (Account, error) {
	row := s.q.QueryRow(ctx, `UPDATE accounts SET shared = $2, updated_at = NOW()
WHERE id = $1 RETURNING `+accountColumns, id, shared)
	return scanAccount(row)
}

// Delete removes the account row.
func (s *PGStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("accounts: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var acc Account
	if err := row.Scan(&acc.ID, &acc.OwnerID, &acc.Name, &acc.Shared, &acc.Balance, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, fmt.Errorf("accounts: scan: %w", err)
	}
	return acc, nil
}
