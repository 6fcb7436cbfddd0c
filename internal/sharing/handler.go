package sharing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fundshare/fundshare/internal/access"
	"github.com/fundshare/fundshare/internal/platform/httpx"
	"github.com/fundshare/fundshare/internal/requests"
	"github.com/fundshare/fundshare/internal/shared"
)

// Handler exposes the sharing service over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	summary, err := h.service.AccessSummary(r.Context(), actor.UserID, accountID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	overview, err := h.service.Overview(r.Context(), actor, accountID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) handleSetSharing(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	var body sharingBody
	if !h.decode(w, r, &body) {
		return
	}
	acc, err := h.service.SetSharing(r.Context(), actor, accountID, *body.Shared)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), actor, accountID); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListPermissions(r.Context(), actor.UserID, accountID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": list})
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	var body grantBody
	if !h.decode(w, r, &body) {
		return
	}
	level, err := levelFrom(body.Level)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	grant, err := h.service.GrantPermission(r.Context(), actor, GrantInput{AccountID: accountID, UserID: body.UserID, Level: level})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grant)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	userID, err := httpx.Int64Param(chi.URLParam(r, "userID"), "user id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var body levelBody
	if !h.decode(w, r, &body) {
		return
	}
	level, err := levelFrom(body.Level)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	grant, err := h.service.UpdatePermission(r.Context(), actor, GrantInput{AccountID: accountID, UserID: userID, Level: level})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grant)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	userID, err := httpx.Int64Param(chi.URLParam(r, "userID"), "user id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.service.RevokePermission(r.Context(), actor, accountID, userID); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	var body createRequestBody
	if !h.decode(w, r, &body) {
		return
	}
	level, err := levelFrom(body.Level)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := h.service.CreateRequest(r.Context(), actor, CreateRequestInput{AccountID: accountID, Level: level, Message: body.Message})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) handleAccountRequests(w http.ResponseWriter, r *http.Request) {
	actor, accountID, ok := h.accountRequest(w, r)
	if !ok {
		return
	}
	query, err := requestQueryFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	page, err := h.service.ListAccountRequests(r.Context(), actor.UserID, accountID, query)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleMyRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	query, err := requestQueryFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	page, err := h.service.ListMyRequests(r.Context(), actor.UserID, query)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleIncomingRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	query, err := requestQueryFrom(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	page, err := h.service.ListIncomingRequests(r.Context(), actor.UserID, query)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.ApproveRequest)
}

func (h *Handler) handleDeny(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.DenyRequest)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, actor Actor, requestID int64, message string) (requests.Request, error)) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	requestID, err := httpx.Int64Param(chi.URLParam(r, "requestID"), "request id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var body reviewBody
	if !h.decode(w, r, &body) {
		return
	}
	req, err := apply(r.Context(), actor, requestID, body.Message)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	requestID, err := httpx.Int64Param(chi.URLParam(r, "requestID"), "request id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := h.service.CancelRequest(r.Context(), actor, requestID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	userID, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return Actor{}, false
	}
	return Actor{UserID: userID, Origin: shared.OriginFromContext(r.Context())}, true
}

func (h *Handler) accountRequest(w http.ResponseWriter, r *http.Request) (Actor, int64, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return Actor{}, 0, false
	}
	accountID, err := access.AccountIDFromRequest(r)
	if err != nil {
		h.respondError(w, r, err)
		return Actor{}, 0, false
	}
	return actor, accountID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		h.respondError(w, r, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		h.respondError(w, r, validationError(err))
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("sharing request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func requestQueryFrom(r *http.Request) (RequestQuery, error) {
	page, err := httpx.PageFromQuery(r)
	if err != nil {
		return RequestQuery{}, err
	}
	from, to, err := httpx.TimeRangeFromQuery(r)
	if err != nil {
		return RequestQuery{}, err
	}
	status, err := requests.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		return RequestQuery{}, err
	}
	return RequestQuery{Status: status, From: from, To: to, Page: page}, nil
}
