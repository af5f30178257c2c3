// Package metrics 诊断流水线的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 流水线结果
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// PipelineMetrics 诊断流水线指标，nil 接收者上的方法均为空操作
type PipelineMetrics struct {
	runsTotal         *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec
	inferenceAttempts *prometheus.CounterVec
	severity          prometheus.Histogram
	eventsFailed      prometheus.Counter
}

// NewPipelineMetrics 创建并注册流水线指标
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantdiag_pipeline_runs_total",
				Help: "Total number of prediction pipeline runs",
			},
			[]string{"outcome", "stage"}, // stage 为失败所在阶段，成功时为 completed
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plantdiag_pipeline_stage_duration_seconds",
				Help:    "Time spent in each pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"stage"},
		),
		inferenceAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantdiag_inference_attempts_total",
				Help: "Total number of inference calls including retries",
			},
			[]string{"status"},
		),
		severity: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "plantdiag_prediction_severity",
				Help:    "Distribution of predicted severity scores",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		eventsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plantdiag_events_publish_failures_total",
				Help: "Total number of prediction events that failed to publish",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.runsTotal, m.stageDuration, m.inferenceAttempts, m.severity, m.eventsFailed} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordRun 记录一次流水线结束
func (m *PipelineMetrics) RecordRun(outcome, stage string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome, stage).Inc()
}

// ObserveStage 记录阶段耗时
func (m *PipelineMetrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordInferenceAttempt 记录一次推理调用
func (m *PipelineMetrics) RecordInferenceAttempt(status string) {
	if m == nil {
		return
	}
	m.inferenceAttempts.WithLabelValues(status).Inc()
}

// ObserveSeverity 记录诊断严重程度
func (m *PipelineMetrics) ObserveSeverity(severity float32) {
	if m == nil {
		return
	}
	m.severity.Observe(float64(severity))
}

// RecordEventFailure 记录事件发布失败
func (m *PipelineMetrics) RecordEventFailure() {
	if m == nil {
		return
	}
	m.eventsFailed.Inc()
}
