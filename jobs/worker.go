package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Registration binds a task type to its handler and, optionally, a cron schedule.
type Registration struct {
	Type     string
	Handler  asynq.HandlerFunc
	Schedule string
	Task     *asynq.Task
	Options  []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts     asynq.RedisClientOpt
	Logger        *slog.Logger
	Concurrency   int
	Registrations []Registration
}

// Worker processes the maintenance queue and enqueues scheduled sweeps.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewWorker registers every handler and schedule. A registration without a
// schedule is only reachable through ad-hoc enqueues.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueMaintenance: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", slog.String("task", task.Type()), slog.Any("error", err))
		}),
	})

	w := &Worker{server: srv, mux: asynq.NewServeMux(), logger: logger}
	for _, reg := range cfg.Registrations {
		if reg.Type == "" || reg.Handler == nil {
			return nil, fmt.Errorf("jobs: registration %q has no handler", reg.Type)
		}
		w.mux.HandleFunc(reg.Type, reg.Handler)
		if reg.Schedule == "" {
			continue
		}
		if reg.Task == nil {
			return nil, fmt.Errorf("jobs: schedule for %q has no task", reg.Type)
		}
		if w.scheduler == nil {
			w.scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		}
		opts := append([]asynq.Option{asynq.Queue(QueueMaintenance), asynq.Retention(CompletedRetention)}, reg.Options...)
		if _, err := w.scheduler.Register(reg.Schedule, reg.Task, opts...); err != nil {
			return nil, fmt.Errorf("jobs: schedule %q: %w", reg.Type, err)
		}
	}
	return w, nil
}

// Run processes tasks until ctx is cancelled, then drains the server.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("jobs: start server: %w", err)
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return fmt.Errorf("jobs: start scheduler: %w", err)
		}
	}
	w.logger.Info("worker started",
		slog.String("queue", QueueMaintenance),
		slog.Bool("scheduler", w.scheduler != nil))

	<-ctx.Done()
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
	w.logger.Info("worker stopped")
	return ctx.Err()
}
