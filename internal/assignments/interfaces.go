package assignments

import (
	"context"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/pagination"
)

// Repository exposes persistence for assignment requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.AssignmentRequest) error
	FindByID(ctx context.Context, id uint64) (*models.AssignmentRequest, error)
	List(ctx context.Context, query listQuery) ([]models.AssignmentRequest, *pagination.Cursor, error)
	// CompareAndUpdate applies updates only while the row still matches expect.
	// It reports whether a row was changed.
	CompareAndUpdate(ctx context.Context, id uint64, expect Expectation, updates map[string]any) (bool, error)
}

// Expectation is the state a row must hold for a guarded update to apply.
type Expectation struct {
	Status       enums.AssignmentStatus
	ReviewStatus *enums.ClientReviewStatus
}

type listQuery struct {
	ClientID     *uint64
	ConsultantID *uint64
	// OpenPool widens a consultant query to unassigned requests awaiting review.
	OpenPool bool
	Status   *enums.AssignmentStatus
	Limit    int
	Cursor   *pagination.Cursor
}
