// Package metrics holds the Prometheus collectors shared by workers and the interpreter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	Interpretations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_interpretations_total",
			Help: "Interpreted chat messages by intent, source and outcome",
		},
		[]string{"intent", "source", "success"},
	)

	InterpretationConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_interpretation_confidence",
			Help:    "Confidence of the chosen intent",
			Buckets: []float64{0.1, 0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"intent"},
	)

	InterpretationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "assistant_interpretation_duration_seconds",
			Help: "End-to-end interpretation latency in seconds",
		},
	)

	CollaboratorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_collaborator_errors_total",
			Help: "Failed inventory collaborator calls by operation",
		},
		[]string{"operation"},
	)

	FallbackInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_fallback_invocations_total",
			Help: "Model fallback calls by outcome",
		},
		[]string{"outcome"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_sessions_active",
			Help: "Sessions held by the in-memory session store",
		},
	)
)
