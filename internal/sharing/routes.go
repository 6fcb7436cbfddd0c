package sharing

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/fundshare/fundshare/internal/platform/httpx"
	"github.com/fundshare/fundshare/internal/shared"
)

// RouteOptions tunes route-level middleware.
type RouteOptions struct {
	// RequestsPerMinute limits request creation per user. Zero disables the limit.
	RequestsPerMinute int
}

// MountRoutes registers the sharing endpoints.
func (h *Handler) MountRoutes(r chi.Router, opts RouteOptions) {
	if h == nil {
		return
	}
	create := http.HandlerFunc(h.handleCreateRequest)
	var createHandler http.Handler = create
	if opts.RequestsPerMinute > 0 {
		createHandler = httprate.Limit(opts.RequestsPerMinute, time.Minute,
			httprate.WithKeyFuncs(actorKey),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "Too many permission requests. Try again later.")
			}),
		)(create)
	}

	const account = "/accounts/{accountID}"
	r.Delete(account, h.handleDeleteAccount)
	r.Get(account+"/access", h.handleAccess)
	r.Get(account+"/overview", h.handleOverview)
	r.Put(account+"/sharing", h.handleSetSharing)
	r.Get(account+"/permissions", h.handleListPermissions)
	r.Post(account+"/permissions", h.handleGrant)
	r.Put(account+"/permissions/{userID}", h.handleUpdate)
	r.Delete(account+"/permissions/{userID}", h.handleRevoke)
	r.Method(http.MethodPost, account+"/permission-requests", createHandler)
	r.Get(account+"/permission-requests", h.handleAccountRequests)

	r.Get("/permission-requests/mine", h.handleMyRequests)
	r.Get("/permission-requests/incoming", h.handleIncomingRequests)
	r.Post("/permission-requests/{requestID}/approve", h.handleApprove)
	r.Post("/permission-requests/{requestID}/deny", h.handleDeny)
	r.Post("/permission-requests/{requestID}/cancel", h.handleCancel)
}

func actorKey(r *http.Request) (string, error) {
	if userID, ok := shared.ActorFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(userID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
