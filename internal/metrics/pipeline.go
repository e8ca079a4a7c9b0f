package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageTotal counts stage outcomes (ok, hard_fail, soft_fail).
	StageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video_insights_stage_total",
		Help: "Pipeline stage executions by stage and outcome",
	}, []string{"stage", "outcome"})

	// StageDuration tracks how long each remote stage call took.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "video_insights_stage_duration_seconds",
		Help:    "Duration of pipeline stage calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	// AnalysisErrorsTotal counts soft analysis failures by kind.
	AnalysisErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video_insights_analysis_errors_total",
		Help: "Soft analysis failures by kind",
	}, []string{"kind"})
)

// ObserveStage records one stage execution.
func ObserveStage(stage, outcome string, duration time.Duration) {
	StageTotal.WithLabelValues(stage, outcome).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// IncAnalysisError records a soft analysis failure.
func IncAnalysisError(kind string) {
	AnalysisErrorsTotal.WithLabelValues(kind).Inc()
}
