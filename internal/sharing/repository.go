package sharing

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundshare/fundshare/internal/accounts"
	"github.com/fundshare/fundshare/internal/audit"
	"github.com/fundshare/fundshare/internal/grants"
	"github.com/fundshare/fundshare/internal/platform/db"
	"github.com/fundshare/fundshare/internal/requests"
)

// Repository provides PostgreSQL backed persistence for the sharing services.
type Repository struct {
	pool *pgxpool.Pool
	pgStores
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, pgStores: newPGStores(pool)}
}

// WithTx wraps fn in a repeatable-read transaction, retried on serialization failure.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, newPGStores(tx))
	})
}

type pgStores struct {
	accounts *accounts.PGStore
	grants   *grants.PGStore
	requests *requests.PGStore
	audit    *audit.PGStore
}

func newPGStores(q db.Querier) pgStores {
	return pgStores{
		accounts: accounts.NewPGStore(q),
		grants:   grants.NewPGStore(q),
		requests: requests.NewPGStore(q),
		audit:    audit.NewPGStore(q),
	}
}

func (s pgStores) Accounts() accounts.Store { return s.accounts }
func (s pgStores) Grants() grants.Store     { return s.grants }
func (s pgStores) Requests() requests.Store { return s.requests }
func (s pgStores) Audit() audit.Store       { return s.audit }
