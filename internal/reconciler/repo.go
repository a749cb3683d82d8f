package reconciler

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/repo"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

// anchor is the timestamp expression a timeout is measured from.
type anchor string

const (
	anchorCreated       anchor = "created_at"
	anchorUpdated       anchor = "updated_at"
	anchorPriceProposed anchor = "COALESCE(price_proposed_at, updated_at)"
)

// flag is a once-only deadline notice column.
type flag string

const (
	flagReminder flag = "deadline_reminder_sent"
	flagOverdue  flag = "overdue_notification_sent"
)

// Repository reads sweep candidates and applies guarded updates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindStale(ctx context.Context, status enums.AssignmentStatus, from anchor, cutoff time.Time) ([]models.AssignmentRequest, error)
	Cancel(ctx context.Context, id uint64, origin enums.AssignmentStatus, reason string, now time.Time) (bool, error)
	FindDueSoon(ctx context.Context, statuses []enums.AssignmentStatus, now, until time.Time) ([]models.AssignmentRequest, error)
	FindOverdue(ctx context.Context, statuses []enums.AssignmentStatus, now time.Time) ([]models.AssignmentRequest, error)
	MarkFlag(ctx context.Context, id uint64, column flag, statuses []enums.AssignmentStatus) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a reconciler repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// FindStale returns rows in status whose anchor is strictly before cutoff.
func (r *repository) FindStale(ctx context.Context, status enums.AssignmentStatus, from anchor, cutoff time.Time) ([]models.AssignmentRequest, error) {
	var rows []models.AssignmentRequest
	err := r.DB(ctx).
		Where("status = ?", status).
		Where(string(from)+" < ?", cutoff).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// Cancel moves the row to cancelled only if it is still in origin.
func (r *repository) Cancel(ctx context.Context, id uint64, origin enums.AssignmentStatus, reason string, now time.Time) (bool, error) {
	result := r.DB(ctx).Model(&models.AssignmentRequest{}).
		Where("id = ? AND status = ?", id, origin).
		Updates(map[string]any{
			"status":              enums.AssignmentStatusCancelled,
			"cancellation_reason": reason,
			"updated_at":          now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindDueSoon(ctx context.Context, statuses []enums.AssignmentStatus, now, until time.Time) ([]models.AssignmentRequest, error) {
	var rows []models.AssignmentRequest
	err := r.DB(ctx).
		Where("status IN ?", statuses).
		Where("deadline IS NOT NULL AND deadline > ? AND deadline <= ?", now, until).
		Where(string(flagReminder)+" = ?", false).
		Order("deadline ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindOverdue(ctx context.Context, statuses []enums.AssignmentStatus, now time.Time) ([]models.AssignmentRequest, error) {
	var rows []models.AssignmentRequest
	err := r.DB(ctx).
		Where("status IN ?", statuses).
		Where("deadline IS NOT NULL AND deadline < ?", now).
		Where(string(flagOverdue)+" = ?", false).
		Order("deadline ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// MarkFlag sets a notice flag once; false means another run got there first
// or the assignment left the active statuses.
func (r *repository) MarkFlag(ctx context.Context, id uint64, column flag, statuses []enums.AssignmentStatus) (bool, error) {
	result := r.DB(ctx).Model(&models.AssignmentRequest{}).
		Where("id = ? AND status IN ?", id, statuses).
		Where(string(column)+" = ?", false).
		UpdateColumn(string(column), true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
