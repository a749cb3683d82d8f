package notifications

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/repo"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/pagination"
)

// Repository persists in-app notifications. Every read and write is scoped
// to the owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, userID, notificationID uint64, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, userID uint64, now time.Time) (int64, error)
	PurgeReadBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type repositoryImpl struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

type listNotificationsParams struct {
	UserID     uint64
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

// notificationMarkResult distinguishes a missing row from one already read.
type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{Base: repo.NewBase(tx)}
}

func (r *repositoryImpl) CreateBatch(ctx context.Context, rows []models.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB(ctx).CreateInBatches(&rows, 100).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	q := r.DB(ctx).Model(&models.Notification{}).Where("user_id = ?", params.UserID)
	if params.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	return repo.FindPage(q, params.Cursor, params.Limit, func(row models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
}

func (r *repositoryImpl) MarkRead(ctx context.Context, userID, notificationID uint64, now time.Time) (notificationMarkResult, error) {
	var row models.Notification
	err := r.DB(ctx).Select("id", "read_at").
		Where("id = ? AND user_id = ?", notificationID, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notificationMarkResult{}, nil
	}
	if err != nil {
		return notificationMarkResult{}, err
	}
	if row.ReadAt != nil {
		return notificationMarkResult{Found: true}, nil
	}

	res := r.DB(ctx).Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now)
	if res.Error != nil {
		return notificationMarkResult{}, res.Error
	}
	return notificationMarkResult{Found: true, Updated: res.RowsAffected > 0}, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uint64, now time.Time) (int64, error) {
	res := r.DB(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

// PurgeReadBefore deletes up to limit notifications read before cutoff,
// oldest ids first. Unread rows are never touched.
func (r *repositoryImpl) PurgeReadBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	ids := r.DB(ctx).Model(&models.Notification{}).
		Select("id").
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Order("id").
		Limit(limit)
	res := r.DB(ctx).Where("id IN (?)", ids).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
