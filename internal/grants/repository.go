package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/platform/db"
	"github.com/fundshare/fundshare/internal/shared"
)

const (
	grantColumns = `id, account_id, user_id, level, granted_by, created_at, updated_at`
	// uniqueConstraint backs the one-grant-per-pair invariant.
	uniqueConstraint = "account_permissions_account_user_key"
)

// PGStore provides PostgreSQL backed persistence for grants.
type PGStore struct {
	q db.Querier
}

// NewPGStore constructs a store over a pool or an open transaction.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{q: q}
}

// Get returns the grant for (accountID, userID).
func (s *PGStore) Get(ctx context.Context, accountID, userID int64) (Grant, error) {
	row := s.q.QueryRow(ctx, `SELECT `+grantColumns+` FROM account_permissions
WHERE account_id = $1 AND user_id = $2`, accountID, userID)
	return scanGrant(row)
}

// Insert creates a grant and reports a duplicate pair as shared.ErrDuplicateGrant.
func (s *PGStore) Insert(ctx context.Context, g Grant) (Grant, error) {
	row := s.q.QueryRow(ctx, `INSERT INTO account_permissions (account_id, user_id, level, granted_by)
VALUES ($1, $2, $3, $4) RETURNING `+grantColumns, g.AccountID, g.UserID, int16(g.Level), g.GrantedBy)
	created, err := scanGrant(row)
	if err != nil {
		if db.IsUniqueViolation(err, uniqueConstraint) {
			return Grant{}, fmt.Errorf("grants: insert account %d user %d: %w", g.AccountID, g.UserID, shared.ErrDuplicateGrant)
		}
		return Grant{}, err
	}
	return created, nil
}

// Upsert writes the level with a single statement so concurrent writers to the
// same key serialise on the row lock. The previous level is read under that lock.
func (s *PGStore) Upsert(ctx context.Context, g Grant) (UpsertResult, error) {
	row := s.q.QueryRow(ctx, `WITH prev AS (
	SELECT level FROM account_permissions
	WHERE account_id = $1 AND user_id = $2
	FOR UPDATE
)
INSERT INTO account_permissions (account_id, user_id, level, granted_by)
VALUES ($1, $2, $3, $4)
ON CONFLICT ON CONSTRAINT `+uniqueConstraint+` DO UPDATE
SET level = EXCLUDED.level, granted_by = EXCLUDED.granted_by, updated_at = NOW()
RETURNING `+grantColumns+`, COALESCE((SELECT level FROM prev), 0)`,
		g.AccountID, g.UserID, int16(g.Level), g.GrantedBy)

	var (
		out      Grant
		level    int16
		previous int16
	)
	if err := row.Scan(&out.ID, &out.AccountID, &out.UserID, &level, &out.GrantedBy, &out.CreatedAt, &out.UpdatedAt, &previous); err != nil {
		return UpsertResult{}, fmt.Errorf("grants: upsert account %d user %d: %w", g.AccountID, g.UserID, err)
	}
	out.Level = permissions.Level(level)
	return UpsertResult{
		Grant:    out,
		Previous: permissions.Level(previous),
		Created:  previous == 0,
	}, nil
}

// Remove deletes the grant for (accountID, userID).
func (s *PGStore) Remove(ctx context.Context, accountID, userID int64) (Grant, error) {
	row := s.q.QueryRow(ctx, `DELETE FROM account_permissions
WHERE account_id = $1 AND user_id = $2 RETURNING `+grantColumns, accountID, userID)
	return scanGrant(row)
}

// ListForAccount returns all grants on an account, newest first.
func (s *PGStore) ListForAccount(ctx context.Context, accountID int64) ([]Grant, error) {
	return s.list(ctx, `SELECT `+grantColumns+` FROM account_permissions
WHERE account_id = $1 ORDER BY created_at DESC, id DESC`, accountID)
}

// ListForUser returns all grants held by a user, newest first.
func (s *PGStore) ListForUser(ctx context.Context, userID int64) ([]Grant, error) {
	return s.list(ctx, `SELECT `+grantColumns+` FROM account_permissions
WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

func (s *PGStore) list(ctx context.Context, query string, arg int64) ([]Grant, error) {
	rows, err := s.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("grants: list: %w", err)
	}
	defer rows.Close()
	var out []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grants: list: %w", err)
	}
	return out, nil
}

func scanGrant(row pgx.Row) (Grant, error) {
	var (
		g     Grant
		level int16
	)
	if err := row.Scan(&g.ID, &g.AccountID, &g.UserID, &level, &g.GrantedBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, shared.ErrNotFound
		}
		return Grant{}, err
	}
	g.Level = permissions.Level(level)
	return g, nil
}
