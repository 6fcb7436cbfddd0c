package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fundshare/fundshare/internal/access"
	"github.com/fundshare/fundshare/internal/audit"
	"github.com/fundshare/fundshare/internal/platform/httpx"
)

// LogService defines the business contract for audit log queries.
type LogService interface {
	List(ctx context.Context, filter audit.Filter) (audit.Result, error)
}

// Handler serves the audit log of one account.
type Handler struct {
	logger  *slog.Logger
	service LogService
	access  access.Middleware
}

// NewHandler builds an audit log handler. Reads are gated by access.
func NewHandler(logger *slog.Logger, service LogService, mw access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, access: mw}
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	snap, ok := access.SnapshotFromContext(r.Context())
	if !ok {
		h.handleServerError(w, "audit log without access snapshot", nil)
		return
	}
	filter, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.AccountID = snap.Account.ID

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		if httpx.StatusFor(err) < http.StatusInternalServerError {
			httpx.RespondError(w, err)
			return
		}
		h.handleServerError(w, "load audit log", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseFilters(r *http.Request) (audit.Filter, error) {
	page, err := httpx.PageFromQuery(r)
	if err != nil {
		return audit.Filter{}, err
	}
	from, to, err := httpx.TimeRangeFromQuery(r)
	if err != nil {
		return audit.Filter{}, err
	}
	action, err := audit.ParseAction(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("action"))))
	if err != nil {
		return audit.Filter{}, err
	}
	var actor int64
	if v := strings.TrimSpace(r.URL.Query().Get("actor")); v != "" {
		actor, err = httpx.Int64Param(v, "actor")
		if err != nil {
			return audit.Filter{}, err
		}
	}
	return audit.Filter{
		ActorUserID: actor,
		Action:      action,
		From:        from,
		To:          to,
		Page:        page,
	}, nil
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), "An unexpected error occurred.")
}

