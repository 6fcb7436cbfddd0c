package access

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/platform/httpx"
	"github.com/fundshare/fundshare/internal/shared"
)

// AccountParam is the chi URL parameter naming the account.
const AccountParam = "accountID"

type snapshotContextKey struct{}

// Middleware wires access checks in front of account-scoped handlers.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
}

// RequireCapability ensures the current user holds capability c on the account
// named by the URL. The resolved snapshot is stored in the request context.
func (m Middleware) RequireCapability(c permissions.Capability) func(http.Handler) http.Handler {
	return m.require(func(ctx context.Context, accountID, userID int64) (Snapshot, error) {
		return m.Evaluator.Authorize(ctx, accountID, userID, c)
	})
}

// RequireOwner ensures the current user owns the account named by the URL.
func (m Middleware) RequireOwner() func(http.Handler) http.Handler {
	return m.require(m.Evaluator.AuthorizeOwner)
}

func (m Middleware) require(check func(ctx context.Context, accountID, userID int64) (Snapshot, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			accountID, err := AccountIDFromRequest(r)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			snap, err := check(r.Context(), accountID, userID)
			if err != nil {
				if m.Logger != nil && httpx.StatusFor(err) >= http.StatusInternalServerError {
					m.Logger.Error("access check", slog.Int64("account_id", accountID), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSnapshot(r.Context(), snap)))
		})
	}
}

// AccountIDFromRequest parses the account URL parameter.
func AccountIDFromRequest(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, AccountParam)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id: %w", shared.ErrInvalidRequest)
	}
	return id, nil
}

// ContextWithSnapshot stores an access snapshot in context.
func ContextWithSnapshot(ctx context.Context, snap Snapshot) context.Context {
	return context.WithValue(ctx, snapshotContextKey{}, snap)
}

// SnapshotFromContext returns the snapshot stored by the middleware.
func SnapshotFromContext(ctx context.Context) (Snapshot, bool) {
	snap, ok := ctx.Value(snapshotContextKey{}).(Snapshot)
	return snap, ok
}
