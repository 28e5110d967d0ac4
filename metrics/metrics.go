// Package metrics exposes Prometheus instrumentation for fetches and
// extraction runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blockcrawl"

// Fetch attempt outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeTransportError = "transport_error"
	OutcomeBadStatus      = "bad_status"
	OutcomeInvalidContent = "invalid_content"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	FetchAttempts *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	ExtractRuns   *prometheus.CounterVec
}

// New creates and registers all collectors on reg, or on the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FetchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "Total number of fetch attempts by outcome",
			},
			[]string{"outcome"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of a complete fetch including retries",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		ExtractRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extract_runs_total",
				Help:      "Total number of extraction runs by status",
			},
			[]string{"status"},
		),
	}
}

// ObserveAttempt counts one fetch attempt.
func (m *Metrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

// ObserveFetch records the duration of a whole fetch.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// ObserveRun counts one extraction run. status is "ok" or an error code.
func (m *Metrics) ObserveRun(status string) {
	if m == nil {
		return
	}
	m.ExtractRuns.WithLabelValues(status).Inc()
}
