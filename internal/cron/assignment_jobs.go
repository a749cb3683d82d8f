package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/reconciler"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

type sweeper interface {
	SweepTimeouts(ctx context.Context, now time.Time) ([]uint64, error)
	SweepReminders(ctx context.Context, now time.Time) (*reconciler.ReminderResult, error)
}

// AssignmentJobParams configure the assignment sweep jobs.
type AssignmentJobParams struct {
	Logger  *logger.Logger
	Sweeper sweeper
}

func (p AssignmentJobParams) validate() error {
	if p.Logger == nil {
		return fmt.Errorf("logger required")
	}
	if p.Sweeper == nil {
		return fmt.Errorf("sweeper required")
	}
	return nil
}

// NewAssignmentTimeoutJob builds the job that auto-cancels stalled requests.
func NewAssignmentTimeoutJob(params AssignmentJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &assignmentTimeoutJob{logg: params.Logger, sweeper: params.Sweeper, now: time.Now}, nil
}

type assignmentTimeoutJob struct {
	logg    *logger.Logger
	sweeper sweeper
	now     func() time.Time
}

func (j *assignmentTimeoutJob) Name() string { return "assignment-timeouts" }

func (j *assignmentTimeoutJob) Run(ctx context.Context) error {
	cancelled, err := j.sweeper.SweepTimeouts(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("assignment timeouts: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cancelled":     len(cancelled),
		"cancelled_ids": cancelled,
	})
	j.logg.Info(logCtx, "assignment timeout job complete")
	return nil
}

// NewAssignmentReminderJob builds the job that sends deadline notices.
func NewAssignmentReminderJob(params AssignmentJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &assignmentReminderJob{logg: params.Logger, sweeper: params.Sweeper, now: time.Now}, nil
}

type assignmentReminderJob struct {
	logg    *logger.Logger
	sweeper sweeper
	now     func() time.Time
}

func (j *assignmentReminderJob) Name() string { return "assignment-reminders" }

func (j *assignmentReminderJob) Run(ctx context.Context) error {
	result, err := j.sweeper.SweepReminders(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("assignment reminders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"reminders": result.Reminders,
		"overdue":   result.Overdue,
	})
	j.logg.Info(logCtx, "assignment reminder job complete")
	return nil
}
