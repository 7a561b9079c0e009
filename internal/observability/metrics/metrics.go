package metrics

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments for the workflow engine.
type Metrics struct {
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	dbErrors           *prometheus.CounterVec
	notifications      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certline_transitions_total",
			Help: "Lot status transitions by source, target and outcome.",
		}, []string{"from", "to", "outcome"}),
		transitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certline_transition_duration_seconds",
			Help:    "End-to-end transition latency including persistence.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		dbErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certline_db_errors_total",
			Help: "Database errors by SQLSTATE class.",
		}, []string{"class"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certline_notifications_total",
			Help: "Outbound notifications by event and outcome.",
		}, []string{"event", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.transitionDuration, m.dbErrors, m.notifications)
	}
	return m
}

func (m *Metrics) ObserveTransition(from, to, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, outcome).Inc()
	m.transitionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordDBError(err error) {
	if m == nil || err == nil {
		return
	}
	m.dbErrors.WithLabelValues(sqlstateClass(err)).Inc()
}

func (m *Metrics) RecordNotification(event, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, outcome).Inc()
}

// sqlstateClass buckets postgres errors by the two-character SQLSTATE class,
// e.g. "23" for integrity violations. Non-postgres errors land in "other".
func sqlstateClass(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		return strings.ToUpper(pgErr.Code[:2])
	}
	return "other"
}
