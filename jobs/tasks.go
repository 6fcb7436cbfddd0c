package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueMaintenance carries housekeeping tasks such as the retention sweep.
	QueueMaintenance = "maintenance"
	// TaskAuditRetention purges audit entries older than the configured retention.
	TaskAuditRetention = "audit:retention"
)

// CompletedRetention is how long asynq keeps completed maintenance tasks and
// their results for the status endpoint.
const CompletedRetention = 7 * 24 * time.Hour

// AuditRetentionPayload carries the retention window. A zero value uses the
// job's configured default.
type AuditRetentionPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// AuditRetentionResult is written back to asynq when a sweep completes.
type AuditRetentionResult struct {
	Removed   int64         `json:"removed"`
	OlderThan time.Duration `json:"older_than"`
}

// NewAuditRetentionTask constructs an Asynq task.
func NewAuditRetentionTask(olderThan time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditRetentionPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}
