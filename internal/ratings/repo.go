package ratings

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/repo"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
)

// Repository persists ratings and the denormalised consultant aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAssignment(ctx context.Context, id uint64) (*models.AssignmentRequest, error)
	Upsert(ctx context.Context, rating *models.Rating) error
	LockProfile(ctx context.Context, consultantID uint64, now time.Time) (*models.ConsultantProfile, error)
	Aggregate(ctx context.Context, consultantID uint64) (Aggregate, error)
	SaveProfile(ctx context.Context, profile *models.ConsultantProfile) error
	FindProfile(ctx context.Context, consultantID uint64) (*models.ConsultantProfile, error)
	FindRating(ctx context.Context, assignmentID, clientID uint64) (*models.Rating, error)
}

// Aggregate is the live mean and count over a consultant's ratings.
type Aggregate struct {
	Average float64
	Count   int64
}

type repository struct {
	repo.Base
}

// NewRepository builds a ratings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindAssignment(ctx context.Context, id uint64) (*models.AssignmentRequest, error) {
	var assignment models.AssignmentRequest
	if err := r.DB(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Upsert inserts the rating or replaces score and review for the same
// (assignment, client) pair.
func (r *repository) Upsert(ctx context.Context, rating *models.Rating) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "review", "updated_at"}),
	}).Create(rating).Error
}

// LockProfile creates the consultant's profile row if missing and holds a
// row lock on it until the surrounding transaction ends. Concurrent ratings
// for the same consultant serialise here before reading the aggregate.
func (r *repository) LockProfile(ctx context.Context, consultantID uint64, now time.Time) (*models.ConsultantProfile, error) {
	seed := models.ConsultantProfile{ConsultantID: consultantID, UpdatedAt: now}
	if err := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	var profile models.ConsultantProfile
	err := r.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("consultant_id = ?", consultantID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) Aggregate(ctx context.Context, consultantID uint64) (Aggregate, error) {
	var row struct {
		Average float64
		Total   int64
	}
	err := r.DB(ctx).Model(&models.Rating{}).
		Select("COALESCE(CAST(AVG(rating) AS DOUBLE PRECISION), 0) AS average, COUNT(*) AS total").
		Where("consultant_id = ?", consultantID).
		Scan(&row).Error
	if err != nil {
		return Aggregate{}, err
	}
	return Aggregate{Average: row.Average, Count: row.Total}, nil
}

func (r *repository) SaveProfile(ctx context.Context, profile *models.ConsultantProfile) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "consultant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"average_rating", "total_ratings", "updated_at"}),
	}).Create(profile).Error
}

func (r *repository) FindProfile(ctx context.Context, consultantID uint64) (*models.ConsultantProfile, error) {
	var profile models.ConsultantProfile
	if err := r.DB(ctx).Where("consultant_id = ?", consultantID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindRating(ctx context.Context, assignmentID, clientID uint64) (*models.Rating, error) {
	var rating models.Rating
	if err := r.DB(ctx).Where("assignment_id = ? AND client_id = ?", assignmentID, clientID).First(&rating).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}
