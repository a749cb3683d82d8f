// Package reconciler cancels assignments that stalled in a waiting state and
// sends one-time deadline notices for active work.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/notifications"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

const deadlineLayout = "Jan 2, 2006 15:04 MST"

var activeStatuses = []enums.AssignmentStatus{
	enums.AssignmentStatusPaymentVerified,
	enums.AssignmentStatusInProgress,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type messageAppender interface {
	AppendSystem(ctx context.Context, tx *gorm.DB, assignmentID uint64, text string, at time.Time) error
}

type sweepObserver interface {
	AddCancelled(n int)
	AddNotices(reminders, overdue int)
}

// Timeouts configures how long each waiting state may last and how far ahead
// deadline reminders look.
type Timeouts struct {
	PendingReview  time.Duration
	PriceProposed  time.Duration
	PaymentPending time.Duration
	ReminderWindow time.Duration
}

// DefaultTimeouts returns the production waiting periods.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		PendingReview:  7 * 24 * time.Hour,
		PriceProposed:  5 * 24 * time.Hour,
		PaymentPending: 3 * 24 * time.Hour,
		ReminderWindow: 24 * time.Hour,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	def := DefaultTimeouts()
	if t.PendingReview <= 0 {
		t.PendingReview = def.PendingReview
	}
	if t.PriceProposed <= 0 {
		t.PriceProposed = def.PriceProposed
	}
	if t.PaymentPending <= 0 {
		t.PaymentPending = def.PaymentPending
	}
	if t.ReminderWindow <= 0 {
		t.ReminderWindow = def.ReminderWindow
	}
	return t
}

type timeoutRule struct {
	origin enums.AssignmentStatus
	from   anchor
	ttl    time.Duration
	reason string
}

func (t Timeouts) rules() []timeoutRule {
	return []timeoutRule{
		{origin: enums.AssignmentStatusPendingReview, from: anchorCreated, ttl: t.PendingReview, reason: "no consultant response"},
		{origin: enums.AssignmentStatusPriceProposed, from: anchorPriceProposed, ttl: t.PriceProposed, reason: "no response to price proposal"},
		{origin: enums.AssignmentStatusPaymentPending, from: anchorUpdated, ttl: t.PaymentPending, reason: "payment not received"},
	}
}

// ReminderResult counts the notices sent by one reminder sweep.
type ReminderResult struct {
	Reminders int `json:"reminders"`
	Overdue   int `json:"overdue"`
}

// Service runs the timeout and reminder sweeps.
type Service interface {
	SweepTimeouts(ctx context.Context, now time.Time) ([]uint64, error)
	SweepReminders(ctx context.Context, now time.Time) (*ReminderResult, error)
}

// Params configure the reconciler. Notifier, Metrics and Logger are optional.
type Params struct {
	Repo     Repository
	Tx       txRunner
	Messages messageAppender
	Notifier notifications.Notifier
	Metrics  sweepObserver
	Logger   *logger.Logger
	Timeouts Timeouts
}

type service struct {
	repo     Repository
	tx       txRunner
	messages messageAppender
	notifier notifications.Notifier
	metrics  sweepObserver
	logg     *logger.Logger
	timeouts Timeouts
}

// NewService builds the reconciler.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reconciler repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Messages == nil {
		return nil, fmt.Errorf("message appender required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		messages: params.Messages,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		timeouts: params.Timeouts.withDefaults(),
	}, nil
}

// SweepTimeouts cancels every assignment that sat in a waiting state for
// strictly longer than its timeout. Rows moved since they were read are
// skipped, so overlapping and repeated runs are harmless.
func (s *service) SweepTimeouts(ctx context.Context, now time.Time) ([]uint64, error) {
	now = now.UTC()
	cancelled := []uint64{}
	var errs error
	for _, rule := range s.timeouts.rules() {
		cutoff := now.Add(-rule.ttl)
		rows, err := s.repo.FindStale(ctx, rule.origin, rule.from, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("query stale %s assignments: %w", rule.origin, err))
			continue
		}
		for _, row := range rows {
			ok, err := s.cancel(ctx, row, rule, now)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("cancel assignment %d: %w", row.ID, err))
				continue
			}
			if !ok {
				continue
			}
			cancelled = append(cancelled, row.ID)
			s.notify(ctx, notifications.Event{
				Type:         enums.NotificationTypeAssignmentUpdate,
				AssignmentID: row.ID,
				Title:        "Request cancelled",
				Message:      cancelMessage(rule.reason),
				Recipients:   parties(row),
				NotifyOps:    true,
			})
		}
	}
	if s.metrics != nil {
		s.metrics.AddCancelled(len(cancelled))
	}
	s.log(ctx, "assignment timeout sweep complete", map[string]any{"cancelled": len(cancelled)}, errs)
	return cancelled, errs
}

func (s *service) cancel(ctx context.Context, row models.AssignmentRequest, rule timeoutRule, now time.Time) (bool, error) {
	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Cancel(ctx, row.ID, rule.origin, "Auto-cancelled: "+rule.reason, now)
		if err != nil || !ok {
			return err
		}
		if err := s.messages.AppendSystem(ctx, tx, row.ID, cancelMessage(rule.reason), now); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// SweepReminders sends at most one due-soon reminder and one overdue notice
// per active assignment.
func (s *service) SweepReminders(ctx context.Context, now time.Time) (*ReminderResult, error) {
	now = now.UTC()
	result := &ReminderResult{}
	var errs error

	due, err := s.repo.FindDueSoon(ctx, activeStatuses, now, now.Add(s.timeouts.ReminderWindow))
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("query upcoming deadlines: %w", err))
	}
	for _, row := range due {
		text := fmt.Sprintf("Reminder: the deadline is %s.", row.Deadline.UTC().Format(deadlineLayout))
		sent, err := s.flagAndPost(ctx, row.ID, flagReminder, text, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deadline reminder for assignment %d: %w", row.ID, err))
			continue
		}
		if !sent {
			continue
		}
		result.Reminders++
		s.notify(ctx, notifications.Event{
			Type:         enums.NotificationTypeDeadlineAlert,
			AssignmentID: row.ID,
			Title:        "Deadline approaching",
			Message:      text,
			Recipients:   parties(row),
		})
	}

	overdue, err := s.repo.FindOverdue(ctx, activeStatuses, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("query overdue assignments: %w", err))
	}
	for _, row := range overdue {
		text := fmt.Sprintf("The deadline of %s has passed.", row.Deadline.UTC().Format(deadlineLayout))
		sent, err := s.flagAndPost(ctx, row.ID, flagOverdue, text, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("overdue notice for assignment %d: %w", row.ID, err))
			continue
		}
		if !sent {
			continue
		}
		result.Overdue++
		s.notify(ctx, notifications.Event{
			Type:         enums.NotificationTypeDeadlineAlert,
			AssignmentID: row.ID,
			Title:        "Deadline passed",
			Message:      text,
			Recipients:   parties(row),
			NotifyOps:    true,
		})
	}

	if s.metrics != nil {
		s.metrics.AddNotices(result.Reminders, result.Overdue)
	}
	s.log(ctx, "deadline reminder sweep complete", map[string]any{
		"reminders": result.Reminders,
		"overdue":   result.Overdue,
	}, errs)
	return result, errs
}

func (s *service) flagAndPost(ctx context.Context, id uint64, column flag, text string, now time.Time) (bool, error) {
	sent := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).MarkFlag(ctx, id, column, activeStatuses)
		if err != nil || !ok {
			return err
		}
		if err := s.messages.AppendSystem(ctx, tx, id, text, now); err != nil {
			return err
		}
		sent = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return sent, nil
}

func (s *service) notify(ctx context.Context, event notifications.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithAssignmentID(ctx, event.AssignmentID), "reconciler notification failed", err)
	}
}

func (s *service) log(ctx context.Context, msg string, fields map[string]any, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, fields)
	if err != nil {
		s.logg.Error(logCtx, msg+" with errors", err)
		return
	}
	s.logg.Info(logCtx, msg)
}

func cancelMessage(reason string) string {
	return fmt.Sprintf("Request automatically cancelled: %s.", reason)
}

func parties(a models.AssignmentRequest) []uint64 {
	out := []uint64{a.ClientID}
	if a.ConsultantID != nil {
		out = append(out, *a.ConsultantID)
	}
	return out
}
