package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues maintenance tasks.
type Client struct {
	client *asynq.Client
}

// NewClient constructs a client over redisOpts.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueAuditRetention enqueues an ad-hoc retention sweep. Duplicate enqueues
// within the hour collapse into one task.
func (c *Client) EnqueueAuditRetention(ctx context.Context, olderThan time.Duration) (*asynq.TaskInfo, error) {
	task, err := NewAuditRetentionTask(olderThan)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueMaintenance),
		asynq.Unique(time.Hour),
		asynq.MaxRetry(3),
		asynq.Retention(CompletedRetention))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
