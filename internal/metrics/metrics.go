// Package metrics holds the Prometheus collectors for lead imports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all service metrics
	Namespace = "leadgen"

	// Subsystem is the subsystem for import metrics
	Subsystem = "import"
)

// ImportMetrics holds the import job collectors
type ImportMetrics struct {
	JobsStarted         prometheus.Counter
	JobsFinished        *prometheus.CounterVec
	JobDurationSeconds  prometheus.Histogram
	LeadsTotal          *prometheus.CounterVec
	TransientPollErrors prometheus.Counter
	JobsInFlight        prometheus.Gauge
}

// NewImportMetrics creates and registers the import collectors on reg, or on
// the default registerer when reg is nil.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &ImportMetrics{
		JobsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "jobs_started_total",
			Help:      "Total number of import jobs started",
		}),
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "jobs_finished_total",
			Help:      "Total number of import jobs that reached a terminal state",
		}, []string{"status"}),
		JobDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "job_duration_seconds",
			Help:      "Wall time from job creation to terminal state",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11), // 1s to ~17min
		}),
		LeadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "leads_total",
			Help:      "Lead rows processed by outcome",
		}, []string{"outcome"}),
		TransientPollErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "transient_poll_errors_total",
			Help:      "Status fetches that failed with a retryable error",
		}),
		JobsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "jobs_in_flight",
			Help:      "Import jobs currently being polled",
		}),
	}
}

// JobStarted records a new import
func (m *ImportMetrics) JobStarted() {
	m.JobsStarted.Inc()
	m.JobsInFlight.Inc()
}

// JobFinished records a terminal transition
func (m *ImportMetrics) JobFinished(status string, elapsed time.Duration) {
	m.JobsFinished.WithLabelValues(status).Inc()
	m.JobDurationSeconds.Observe(elapsed.Seconds())
	m.JobsInFlight.Dec()
}

// LeadsProcessed adds row outcomes of one import
func (m *ImportMetrics) LeadsProcessed(saved, skipped, malformed int) {
	m.LeadsTotal.WithLabelValues("saved").Add(float64(saved))
	m.LeadsTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.LeadsTotal.WithLabelValues("malformed").Add(float64(malformed))
}

// TransientPollError records a retryable status fetch failure
func (m *ImportMetrics) TransientPollError() {
	m.TransientPollErrors.Inc()
}
