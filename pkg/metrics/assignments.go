package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "medconsult"

// AssignmentMetrics counts lifecycle transitions and sweep results.
type AssignmentMetrics struct {
	transitions *prometheus.CounterVec
	cancelled   prometheus.Counter
	notices     *prometheus.CounterVec
}

// NewAssignmentMetrics registers the assignment metrics on reg. A nil
// registerer yields a no-op recorder.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_transitions_total",
		Help:      "Assignment transition attempts by action and outcome.",
	}, []string{"action", "outcome"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_auto_cancellations_total",
		Help:      "Assignments cancelled by the timeout sweep.",
	})
	notices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_deadline_notices_total",
		Help:      "Deadline notices sent by the reminder sweep.",
	}, []string{"kind"})
	reg.MustRegister(transitions, cancelled, notices)
	return &AssignmentMetrics{
		transitions: transitions,
		cancelled:   cancelled,
		notices:     notices,
	}
}

// ObserveTransition counts one transition attempt.
func (m *AssignmentMetrics) ObserveTransition(action, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// AddCancelled counts assignments cancelled by one timeout sweep.
func (m *AssignmentMetrics) AddCancelled(n int) {
	if m == nil || m.cancelled == nil || n <= 0 {
		return
	}
	m.cancelled.Add(float64(n))
}

// AddNotices counts reminder and overdue notices sent by one sweep.
func (m *AssignmentMetrics) AddNotices(reminders, overdue int) {
	if m == nil || m.notices == nil {
		return
	}
	if reminders > 0 {
		m.notices.WithLabelValues("reminder").Add(float64(reminders))
	}
	if overdue > 0 {
		m.notices.WithLabelValues("overdue").Add(float64(overdue))
	}
}
