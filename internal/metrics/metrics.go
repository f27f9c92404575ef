// Package metrics provides Prometheus metrics for monitoring batch
// task orchestration and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohort_tasks_created_total",
			Help: "Total number of batch tasks created",
		},
	)
	TasksDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohort_tasks_deduplicated_total",
			Help: "Total number of submissions answered by an existing active task",
		},
	)
	TasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_tasks_finished_total",
			Help: "Total number of tasks reaching a terminal status",
		},
		[]string{"status"},
	)
	UnitsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_units_completed_total",
			Help: "Total number of units of work completed",
		},
		[]string{"result"},
	)
	UnitsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cohort_units_in_flight",
			Help: "Current number of units of work executing",
		},
	)
	UnitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cohort_unit_duration_seconds",
			Help:    "Unit of work execution duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
	RetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cohort_retry_attempts_total",
			Help: "Total number of unit retry attempts",
		},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cohort_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cohort_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
