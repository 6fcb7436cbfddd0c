package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fundshare/fundshare/jobs"
)

// jobsCLI wraps manual management helpers for the worker queue.
type jobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

func newJobsCLI(redisAddr string) *jobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &jobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

func (c *jobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. A zero olderThan lets the worker
// apply its configured retention.
func (c *jobsCLI) Trigger(ctx context.Context, name string, olderThan time.Duration) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	switch name {
	case jobs.TaskAuditRetention:
		return c.client.EnqueueAuditRetention(ctx, olderThan)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

type queueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

func (c *jobsCLI) InspectQueue() (queueStats, error) {
	if c == nil || c.inspector == nil {
		return queueStats{}, errors.New("jobs cli: inspector not configured")
	}
	stats := queueStats{Queue: jobs.QueueMaintenance}
	info, err := c.inspector.GetQueueInfo(jobs.QueueMaintenance)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return stats, nil
	}
	if err != nil {
		return queueStats{}, err
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}
