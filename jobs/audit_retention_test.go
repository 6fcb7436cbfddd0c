package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/fundshare/fundshare/internal/jobs"
	"github.com/fundshare/fundshare/internal/shared"
)

type stubPurger struct {
	olderThan time.Duration
	removed   int64
	err       error
}

func (s *stubPurger) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return s.removed, s.err
}

func TestAuditRetentionUsesPayloadWindow(t *testing.T) {
	purger := &stubPurger{removed: 4}
	job := NewAuditRetentionJob(purger, 365*24*time.Hour, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewAuditRetentionTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, purger.olderThan)
}

func TestAuditRetentionFallsBackToConfiguredWindow(t *testing.T) {
	purger := &stubPurger{}
	job := NewAuditRetentionJob(purger, 90*24*time.Hour, nil, nil)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskAuditRetention, nil)))
	assert.Equal(t, 90*24*time.Hour, purger.olderThan)
}

func TestAuditRetentionSkipsRetryOnRejectedWindow(t *testing.T) {
	purger := &stubPurger{err: fmt.Errorf("too short: %w", shared.ErrInvalidRequest)}
	job := NewAuditRetentionJob(purger, time.Hour, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskAuditRetention, nil))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAuditRetentionReturnsStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	job := NewAuditRetentionJob(&stubPurger{err: boom}, 48*time.Hour, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskAuditRetention, nil))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestAuditRetentionRejectsMalformedPayload(t *testing.T) {
	job := NewAuditRetentionJob(&stubPurger{}, 48*time.Hour, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskAuditRetention, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
