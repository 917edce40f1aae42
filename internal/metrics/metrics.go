// Package metrics exposes Prometheus counters for intake, claims and
// notifications. All methods are safe on a nil *Metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

const namespace = "brandwacht"

// Result label values.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics holds the application's collectors.
type Metrics struct {
	intakeAccepted *prometheus.CounterVec
	intakeRejected *prometheus.CounterVec
	claims         *prometheus.CounterVec
	notifications  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		intakeAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_accepted_total",
			Help:      "Stored intake submissions by source.",
		}, []string{"source"}),
		intakeRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_rejected_total",
			Help:      "Rejected intake submissions by reason.",
		}, []string{"reason"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_transitions_total",
			Help:      "Claim state changes by action and result.",
		}, []string{"action", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by operation and result.",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.intakeAccepted, m.intakeRejected, m.claims, m.notifications)
	return m
}

func (m *Metrics) IntakeAccepted(source string) {
	if m == nil {
		return
	}
	m.intakeAccepted.WithLabelValues(marketplace.NormalizeSource(source)).Inc()
}

func (m *Metrics) IntakeRejected(reason string) {
	if m == nil {
		return
	}
	m.intakeRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ClaimTransition(action string, err error) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(action, result(err)).Inc()
}

func (m *Metrics) NotificationResult(op string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, marketplace.ErrNotFound):
		return ResultNotFound
	default:
		return ResultError
	}
}
