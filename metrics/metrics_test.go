package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAttempt(OutcomeBadStatus)
	m.ObserveAttempt(OutcomeBadStatus)
	m.ObserveAttempt(OutcomeOK)
	m.ObserveRun("ok")
	m.ObserveFetch(120 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues(OutcomeBadStatus)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractRuns.WithLabelValues("ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FetchDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAttempt(OutcomeOK)
	m.ObserveFetch(time.Second)
	m.ObserveRun("ok")
}
