package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/fundshare/fundshare/internal/jobs"
	"github.com/fundshare/fundshare/internal/shared"
)

// Purger deletes audit entries older than a window.
type Purger interface {
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

// AuditRetentionJob runs the audit log retention sweep.
type AuditRetentionJob struct {
	Purger    Purger
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Retention time.Duration
}

// NewAuditRetentionJob initialises the retention handler.
func NewAuditRetentionJob(purger Purger, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditRetentionJob {
	return &AuditRetentionJob{Purger: purger, Logger: logger, Metrics: metrics, Retention: retention}
}

// Handle executes the sweep.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Purger == nil {
		return errors.New("audit retention: handler not configured")
	}
	var payload AuditRetentionPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	olderThan := payload.OlderThan
	if olderThan <= 0 {
		olderThan = j.Retention
	}

	tracker := j.Metrics.Track(TaskAuditRetention)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Duration("older_than", olderThan))
	removed, err := j.Purger.Purge(ctx, olderThan)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidRequest) {
			logger.Error("audit retention rejected", slog.Any("error", err))
			return errors.Join(err, asynq.SkipRetry)
		}
		logger.Error("audit retention failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPurged(removed)
	logger.Info("audit retention completed", slog.Int64("removed", removed))
	if rw := t.ResultWriter(); rw != nil {
		result, err := json.Marshal(AuditRetentionResult{Removed: removed, OlderThan: olderThan})
		if err == nil {
			_, err = rw.Write(result)
		}
		if err != nil {
			logger.Warn("record retention result", slog.Any("error", err))
		}
	}
	return nil
}

func (j *AuditRetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
