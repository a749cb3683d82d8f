package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

const (
	minScore        = 1
	maxScore        = 5
	maxReviewLength = 2000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Summary is a consultant's rating aggregate.
type Summary struct {
	ConsultantID  uint64  `json:"consultant_id"`
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int64   `json:"total_ratings"`
}

// RecordInput is a client's rating of a completed assignment.
type RecordInput struct {
	AssignmentID uint64
	Actor        authz.Actor
	Rating       int
	Review       *string
}

// Service records ratings and keeps consultant aggregates in step.
type Service interface {
	RecordRating(ctx context.Context, input RecordInput) (*Summary, error)
	GetConsultantRating(ctx context.Context, consultantID uint64) (*Summary, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	guard *authz.Guard
	now   func() time.Time
}

// NewService wires the ratings dependencies.
func NewService(repo Repository, tx txRunner, guard *authz.Guard) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ratings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if guard == nil {
		return nil, fmt.Errorf("authorization guard required")
	}
	return &service{repo: repo, tx: tx, guard: guard, now: time.Now}, nil
}

// RecordRating upserts the rating for the (assignment, client) pair and
// recomputes the consultant aggregate in the same transaction, holding the
// consultant's profile row lock from before the upsert until commit.
func (s *service) RecordRating(ctx context.Context, input RecordInput) (*Summary, error) {
	if input.AssignmentID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if input.Rating < minScore || input.Rating > maxScore {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "rating must be between %d and %d", minScore, maxScore)
	}
	review := cleanReview(input.Review)
	if review != nil && len(*review) > maxReviewLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "review exceeds %d characters", maxReviewLength)
	}

	var summary *Summary
	now := s.now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		assignment, err := repo.FindAssignment(ctx, input.AssignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		if err := s.guard.Require(input.Actor, authz.CapRate, authz.ForAssignment(*assignment)); err != nil {
			return err
		}
		if assignment.Status != enums.AssignmentStatusCompleted {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "only completed assignments can be rated, status is %s", assignment.Status)
		}
		if assignment.ConsultantID == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "assignment has no consultant to rate")
		}
		consultantID := *assignment.ConsultantID
		if _, err := repo.LockProfile(ctx, consultantID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock consultant profile")
		}

		rating := &models.Rating{
			AssignmentID: assignment.ID,
			ClientID:     input.Actor.UserID,
			ConsultantID: consultantID,
			Rating:       input.Rating,
			Review:       review,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repo.Upsert(ctx, rating); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save rating")
		}

		agg, err := repo.Aggregate(ctx, consultantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
		}
		profile := &models.ConsultantProfile{
			ConsultantID:  consultantID,
			AverageRating: agg.Average,
			TotalRatings:  agg.Count,
			UpdatedAt:     now,
		}
		if err := repo.SaveProfile(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save consultant profile")
		}
		summary = summaryOf(*profile)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *service) GetConsultantRating(ctx context.Context, consultantID uint64) (*Summary, error) {
	if consultantID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consultant id required")
	}
	profile, err := s.repo.FindProfile(ctx, consultantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Summary{ConsultantID: consultantID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load consultant profile")
	}
	return summaryOf(*profile), nil
}

func summaryOf(profile models.ConsultantProfile) *Summary {
	return &Summary{
		ConsultantID:  profile.ConsultantID,
		AverageRating: profile.AverageRating,
		TotalRatings:  profile.TotalRatings,
	}
}

func cleanReview(review *string) *string {
	if review == nil {
		return nil
	}
	clean := strings.TrimSpace(*review)
	if clean == "" {
		return nil
	}
	return &clean
}
