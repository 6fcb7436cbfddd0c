package audithttp

import (
	"github.com/go-chi/chi/v5"

	"github.com/fundshare/fundshare/internal/permissions"
)

// MountRoutes registers the audit log endpoint. Owners and FULL_ACCESS holders may read it.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.With(h.access.RequireCapability(permissions.CapabilityFull)).
		Get("/accounts/{accountID}/audit-log", h.handleAuditLog)
}
