package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	timeouts := &stubJob{name: "assignment-timeouts"}
	reminders := &stubJob{name: "assignment-reminders"}
	registry, err := NewRegistry(timeouts, nil, reminders)
	require.NoError(t, err)

	require.Equal(t, []string{"assignment-timeouts", "assignment-reminders"}, registry.Names())
	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	require.Same(t, timeouts, jobs[0])

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0])

	got, ok := registry.Lookup("assignment-reminders")
	require.True(t, ok)
	require.Same(t, reminders, got)
	_, ok = registry.Lookup("notification-cleanup")
	require.False(t, ok)
}

func TestRegistryRejectsDuplicatesAndBlankNames(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"})
	require.ErrorContains(t, err, "already registered")

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.ErrorContains(t, registry.Register(&stubJob{name: "  "}), "name is required")
	require.Error(t, registry.Register(nil))
}
