package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("audit_retention").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("audit_retention").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("audit_retention", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("audit_retention", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("audit_retention")))
}

func TestAddPurged(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddPurged(0)
	m.AddPurged(12)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.purged))

	var nilMetrics *Metrics
	nilMetrics.AddPurged(3)
	assert.NoError(t, nilMetrics.Track("x").End(nil))
}
