package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registration outcomes used as the "outcome" label.
const (
	OutcomeCommitted   = "committed"
	OutcomeValidation  = "validation"
	OutcomeCapacity    = "capacity_exceeded"
	OutcomeStock       = "stock_insufficient"
	OutcomeIdentity    = "identity"
	OutcomeTimeout     = "timeout"
	OutcomePersistence = "persistence"
)

// Metrics holds the Prometheus instruments for the registration engine. All
// methods are safe on a nil receiver so collaborators can run without them.
type Metrics struct {
	Registrations            *prometheus.CounterVec
	TicketsIssued            prometheus.Counter
	AccountsCreated          prometheus.Counter
	TransactionDuration      prometheus.Histogram
	NotificationsSent        prometheus.Counter
	NotificationsDropped     *prometheus.CounterVec
	SavedParticipantFailures prometheus.Counter
	IdempotentReplays        prometheus.Counter
	RateLimited              prometheus.Counter
}

// New creates and registers all metrics with reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration on the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "startingline_registrations_total",
			Help: "Registration attempts by outcome and client channel",
		}, []string{"outcome", "channel"}),
		TicketsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "startingline_tickets_issued_total",
			Help: "Tickets created by committed registrations",
		}),
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "startingline_accounts_created_total",
			Help: "Accounts provisioned during checkout",
		}),
		TransactionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "startingline_registration_tx_duration_seconds",
			Help:    "Duration of the registration unit of work, commit included",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "startingline_notifications_sent_total",
			Help: "Confirmation notifications handed to the sink",
		}),
		NotificationsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "startingline_notifications_dropped_total",
			Help: "Confirmation notifications dropped, by reason",
		}, []string{"reason"}),
		SavedParticipantFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "startingline_saved_participant_failures_total",
			Help: "Saved participant upserts that failed and were skipped",
		}),
		IdempotentReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "startingline_idempotent_replays_total",
			Help: "Registration responses replayed for a repeated Idempotency-Key",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "startingline_rate_limited_total",
			Help: "Registration submissions rejected by the per-client rate limit",
		}),
	}
}

func (m *Metrics) ObserveRegistration(outcome, channel string) {
	if m == nil {
		return
	}
	if channel == "" {
		channel = "unknown"
	}
	m.Registrations.WithLabelValues(outcome, channel).Inc()
}

func (m *Metrics) AddTicketsIssued(n int) {
	if m == nil {
		return
	}
	m.TicketsIssued.Add(float64(n))
}

func (m *Metrics) IncrementAccountsCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

// ObserveTransaction records the duration of a unit of work.
// Call with time.Now() taken before RunInTx.
func (m *Metrics) ObserveTransaction(start time.Time) {
	if m == nil {
		return
	}
	m.TransactionDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementNotificationsSent() {
	if m == nil {
		return
	}
	m.NotificationsSent.Inc()
}

func (m *Metrics) IncrementNotificationsDropped(reason string) {
	if m == nil {
		return
	}
	m.NotificationsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementSavedParticipantFailures() {
	if m == nil {
		return
	}
	m.SavedParticipantFailures.Inc()
}

func (m *Metrics) IncrementIdempotentReplays() {
	if m == nil {
		return
	}
	m.IdempotentReplays.Inc()
}

func (m *Metrics) IncrementRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
