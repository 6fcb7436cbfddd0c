package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fundshare/fundshare/internal/access"
	"github.com/fundshare/fundshare/internal/app"
	"github.com/fundshare/fundshare/internal/audit"
	audithttp "github.com/fundshare/fundshare/internal/audit/http"
	"github.com/fundshare/fundshare/internal/observability"
	"github.com/fundshare/fundshare/internal/platform/cache"
	"github.com/fundshare/fundshare/internal/platform/db"
	"github.com/fundshare/fundshare/internal/shared"
	"github.com/fundshare/fundshare/internal/sharing"
	"github.com/fundshare/fundshare/internal/storage/memory"
	"github.com/fundshare/fundshare/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var store sharing.Storage
	switch cfg.StorageDriver {
	case app.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store = memory.New()
	default:
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		store = sharing.NewRepository(pool)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL)
	metrics := observability.NewMetrics()

	writer := audit.NewWriter(store.Audit(), logger, metrics)
	sharingService := sharing.NewService(store, writer, logger).WithMetrics(metrics)
	sharingHandler := sharing.NewHandler(logger, sharingService)

	accessMiddleware := access.Middleware{Evaluator: sharingService.Evaluator(), Logger: logger}
	auditService := audit.NewService(store.Audit(), logger)
	auditHandler := audithttp.NewHandler(logger, auditService, accessMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewStatusHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		SharingHandler: sharingHandler,
		AuditHandler:   auditHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("storage", cfg.StorageDriver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
