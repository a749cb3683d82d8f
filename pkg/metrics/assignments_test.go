package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestAssignmentMetricsCountsTransitionsAndSweeps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAssignmentMetrics(reg)

	m.ObserveTransition("verify_payment", "applied")
	m.ObserveTransition("verify_payment", "applied")
	m.ObserveTransition("verify_payment", "noop")
	m.ObserveTransition("", "conflict")
	m.AddCancelled(3)
	m.AddCancelled(0)
	m.AddNotices(2, 1)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	transitions := findMetricFamily(mfs, "medconsult_assignment_transitions_total")
	require.NotNil(t, transitions)
	counts := map[string]float64{}
	for _, metric := range transitions.GetMetric() {
		var action, outcome string
		for _, label := range metric.GetLabel() {
			switch label.GetName() {
			case "action":
				action = label.GetValue()
			case "outcome":
				outcome = label.GetValue()
			}
		}
		counts[action+"/"+outcome] = metric.GetCounter().GetValue()
	}
	require.Equal(t, map[string]float64{
		"verify_payment/applied": 2,
		"verify_payment/noop":    1,
		"unknown/conflict":       1,
	}, counts)

	cancelled := findMetricFamily(mfs, "medconsult_assignment_auto_cancellations_total")
	require.NotNil(t, cancelled)
	require.Equal(t, 3.0, cancelled.GetMetric()[0].GetCounter().GetValue())

	reminders, err := fetchCounterValue(mfs, "medconsult_assignment_deadline_notices_total", "kind", "reminder")
	require.NoError(t, err)
	require.Equal(t, 2.0, reminders)
	overdue, err := fetchCounterValue(mfs, "medconsult_assignment_deadline_notices_total", "kind", "overdue")
	require.NoError(t, err)
	require.Equal(t, 1.0, overdue)
}

func TestAssignmentMetricsNilSafe(t *testing.T) {
	var m *AssignmentMetrics
	m.ObserveTransition("accept", "applied")
	m.AddCancelled(1)
	NewAssignmentMetrics(nil).AddNotices(1, 1)
}
