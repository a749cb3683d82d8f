package assignments

import (
	"context"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/repo"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/pagination"
)

type repository struct {
	repo.Base
}

// NewRepository returns an assignments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, assignment *models.AssignmentRequest) error {
	return r.DB(ctx).Create(assignment).Error
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.AssignmentRequest, error) {
	var assignment models.AssignmentRequest
	if err := r.DB(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) List(ctx context.Context, query listQuery) ([]models.AssignmentRequest, *pagination.Cursor, error) {
	db := r.DB(ctx).Model(&models.AssignmentRequest{})
	if query.ClientID != nil {
		db = db.Where("client_id = ?", *query.ClientID)
	}
	switch {
	case query.ConsultantID != nil && query.OpenPool:
		db = db.Where("(consultant_id = ? OR (consultant_id IS NULL AND status = ?))",
			*query.ConsultantID, enums.AssignmentStatusPendingReview)
	case query.ConsultantID != nil:
		db = db.Where("consultant_id = ?", *query.ConsultantID)
	}
	if query.Status != nil {
		db = db.Where("status = ?", *query.Status)
	}
	return repo.FindPage(db, query.Cursor, query.Limit, func(row models.AssignmentRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
}

func (r *repository) CompareAndUpdate(ctx context.Context, id uint64, expect Expectation, updates map[string]any) (bool, error) {
	db := r.DB(ctx).Model(&models.AssignmentRequest{}).
		Where("id = ? AND status = ?", id, expect.Status)
	if expect.ReviewStatus != nil {
		db = db.Where("client_review_status = ?", *expect.ReviewStatus)
	}
	result := db.Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
