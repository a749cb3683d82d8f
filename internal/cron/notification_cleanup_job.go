package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultPurgeBatch            = 500
)

type readNotificationPurger interface {
	PurgeReadBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// NotificationCleanupJobParams configure the read-notification purge.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository readNotificationPurger
	// Retention defaults to 30 days; BatchSize to 500 rows per statement.
	Retention time.Duration
	BatchSize int
}

// NewNotificationCleanupJob drops notifications that were read more than
// Retention ago. Unread notifications are kept forever.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	job := &notificationCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: params.Retention,
		batch:     params.BatchSize,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultNotificationRetention
	}
	if job.batch <= 0 {
		job.batch = defaultPurgeBatch
	}
	return job, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	repo      readNotificationPurger
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

// Run deletes in batches so no single statement holds locks on a large range.
// It stops early when ctx is cancelled and reports what it removed so far.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	batches := 0
	for ctx.Err() == nil {
		n, err := j.repo.PurgeReadBefore(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("purge read notifications after %d rows: %w", total, err)
		}
		total += n
		batches++
		if n < int64(j.batch) {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"deleted": total,
		"batches": batches,
	}), "cron.notification_cleanup_done")
	return ctx.Err()
}
