package messages

import (
	"context"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/repo"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
)

// Repository persists assignment messages. Messages are never updated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, message *models.AssignmentMessage) error
	ListByAssignment(ctx context.Context, assignmentID uint64) ([]models.AssignmentMessage, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a messages repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, message *models.AssignmentMessage) error {
	return r.DB(ctx).Create(message).Error
}

func (r *repository) ListByAssignment(ctx context.Context, assignmentID uint64) ([]models.AssignmentMessage, error) {
	var rows []models.AssignmentMessage
	err := r.DB(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
