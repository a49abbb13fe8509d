package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRegistration(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRegistration(OutcomeCommitted, "web")
	m.ObserveRegistration(OutcomeCommitted, "web")
	m.ObserveRegistration(OutcomeCapacity, "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues(OutcomeCommitted, "web")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues(OutcomeCapacity, "unknown")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRegistration(OutcomeCommitted, "web")
		m.AddTicketsIssued(2)
		m.IncrementNotificationsDropped("buffer_full")
		m.IncrementSavedParticipantFailures()
	})
}
