package sharing

import (
	"context"

	"github.com/fundshare/fundshare/internal/accounts"
	"github.com/fundshare/fundshare/internal/audit"
	"github.com/fundshare/fundshare/internal/grants"
	"github.com/fundshare/fundshare/internal/requests"
)

// Tx exposes the stores of one unit of work.
type Tx interface {
	Accounts() accounts.Store
	Grants() grants.Store
	Requests() requests.Store
	Audit() audit.Store
}

// Storage is the persistence port of the sharing services. The embedded Tx
// stores run outside any transaction; WithTx runs fn as one serializable unit
// that commits only when fn returns nil.
type Storage interface {
	Tx
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}
