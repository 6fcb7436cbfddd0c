package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/fundshare/fundshare/internal/audit/http"
	"github.com/fundshare/fundshare/internal/observability"
	"github.com/fundshare/fundshare/internal/shared"
	"github.com/fundshare/fundshare/internal/sharing"
	"github.com/fundshare/fundshare/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	SharingHandler *sharing.Handler
	AuditHandler   *audithttp.Handler
	JobHandler     *jobs.StatusHandler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with fundshare defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", params.Metrics.Handler())

	requestLimit := 0
	if params.Config != nil {
		requestLimit = params.Config.RequestRateLimitPerMinute
	}
	if params.SharingHandler != nil {
		params.SharingHandler.MountRoutes(r, sharing.RouteOptions{RequestsPerMinute: requestLimit})
	}
	if params.AuditHandler != nil {
		params.AuditHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
