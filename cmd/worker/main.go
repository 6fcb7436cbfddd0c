package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fundshare/fundshare/internal/app"
	"github.com/fundshare/fundshare/internal/audit"
	jobmetrics "github.com/fundshare/fundshare/internal/jobs"
	"github.com/fundshare/fundshare/internal/platform/db"
	"github.com/fundshare/fundshare/jobs"
)

// Usage:
//
//	worker                          run the queue worker and retention schedule
//	worker trigger [-older-than d]  enqueue an audit retention sweep now
//	worker stats                    print maintenance queue counters
func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	if len(os.Args) > 1 {
		if err := runCommand(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
			logger.Error("worker command", slog.String("command", os.Args[1]), slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if cfg.StorageDriver != app.StoragePostgres {
		logger.Error("worker requires the postgres storage driver", slog.String("storage", cfg.StorageDriver))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditService := audit.NewService(audit.NewPGStore(pool), logger)
	retentionJob := jobs.NewAuditRetentionJob(auditService, cfg.AuditRetention, logger, jobmetrics.NewMetrics(nil))

	retentionTask, err := jobs.NewAuditRetentionTask(0)
	if err != nil {
		logger.Error("build retention task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Registrations: []jobs.Registration{{
			Type:     jobs.TaskAuditRetention,
			Handler:  retentionJob.Handle,
			Schedule: cfg.AuditRetentionCron,
			Task:     retentionTask,
			Options:  []asynq.Option{asynq.MaxRetry(3)},
		}},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cfg *app.Config, name string, args []string) error {
	cli := newJobsCLI(cfg.RedisAddr)
	defer cli.Close()

	switch name {
	case "trigger":
		fs := flag.NewFlagSet("trigger", flag.ContinueOnError)
		olderThan := fs.Duration("older-than", 0, "retention window; defaults to AUDIT_RETENTION")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *olderThan != 0 && *olderThan < audit.MinRetention {
			return fmt.Errorf("older-than must be at least %s", audit.MinRetention)
		}
		info, err := cli.Trigger(ctx, jobs.TaskAuditRetention, *olderThan)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := cli.InspectQueue()
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
	return nil
}
