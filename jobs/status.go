package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/fundshare/fundshare/internal/platform/httpx"
)

// QueueInspector is the part of *asynq.Inspector the status endpoint reads.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListCompletedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// RetentionStatus describes the maintenance queue and the most recent sweep.
type RetentionStatus struct {
	Queue     string    `json:"queue"`
	Pending   int       `json:"pending"`
	Active    int       `json:"active"`
	Scheduled int       `json:"scheduled"`
	Retry     int       `json:"retry"`
	Archived  int       `json:"archived"`
	LastPurge *PurgeRun `json:"last_purge"`
	CheckedAt time.Time `json:"checked_at"`
}

// PurgeRun is the result a completed retention sweep leaves behind.
type PurgeRun struct {
	TaskID      string        `json:"task_id"`
	CompletedAt time.Time     `json:"completed_at"`
	Removed     int64         `json:"removed"`
	OlderThan   time.Duration `json:"older_than"`
}

// StatusHandler serves the retention queue status.
type StatusHandler struct {
	inspector QueueInspector
	logger    *slog.Logger
	now       func() time.Time
}

// NewStatusHandler constructs the handler.
func NewStatusHandler(inspector QueueInspector, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{inspector: inspector, logger: logger, now: time.Now}
}

// MountRoutes attaches job routes.
func (h *StatusHandler) MountRoutes(r chi.Router) {
	r.Get("/audit-retention", h.handleRetentionStatus)
}

func (h *StatusHandler) handleRetentionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.retentionStatus()
	if err != nil {
		h.logger.Error("inspect retention queue", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *StatusHandler) retentionStatus() (RetentionStatus, error) {
	status := RetentionStatus{Queue: QueueMaintenance, CheckedAt: h.now().UTC()}
	info, err := h.inspector.GetQueueInfo(QueueMaintenance)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("jobs: queue info: %w", err)
	}
	status.Pending = info.Pending
	status.Active = info.Active
	status.Scheduled = info.Scheduled
	status.Retry = info.Retry
	status.Archived = info.Archived

	completed, err := h.inspector.ListCompletedTasks(QueueMaintenance, asynq.PageSize(100))
	if err != nil {
		return status, fmt.Errorf("jobs: completed tasks: %w", err)
	}
	status.LastPurge = lastPurge(completed, h.logger)
	return status, nil
}

func lastPurge(tasks []*asynq.TaskInfo, logger *slog.Logger) *PurgeRun {
	var latest *PurgeRun
	for _, task := range tasks {
		if task == nil || task.Type != TaskAuditRetention {
			continue
		}
		if latest != nil && !task.CompletedAt.After(latest.CompletedAt) {
			continue
		}
		run := PurgeRun{TaskID: task.ID, CompletedAt: task.CompletedAt.UTC()}
		if len(task.Result) > 0 {
			var result AuditRetentionResult
			if err := json.Unmarshal(task.Result, &result); err != nil {
				logger.Warn("decode retention result", slog.String("task_id", task.ID), slog.Any("error", err))
			} else {
				run.Removed = result.Removed
				run.OlderThan = result.OlderThan
			}
		}
		latest = &run
	}
	return latest
}
