package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics_Record(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	m.RecordRun(OutcomeCompleted, "completed")
	m.RecordRun(OutcomeFailed, "inferring")
	m.RecordRun(OutcomeFailed, "inferring")
	m.RecordInferenceAttempt("unavailable")
	m.ObserveStage("inferring", 20*time.Millisecond)
	m.ObserveSeverity(0.4)
	m.RecordEventFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(OutcomeCompleted, "completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(OutcomeFailed, "inferring")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inferenceAttempts.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsFailed))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}

func TestPipelineMetrics_DoubleRegister(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	_, err = NewPipelineMetrics(registry)
	assert.Error(t, err)
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordRun(OutcomeFailed, "persisting")
		m.ObserveStage("persisting", time.Second)
		m.RecordInferenceAttempt("ok")
		m.ObserveSeverity(0.1)
		m.RecordEventFailure()
	})
}
