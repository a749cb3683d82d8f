package earnings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/repo"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/pagination"
)

// Repository persists earnings and disbursement records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEarning(ctx context.Context, earning *models.ConsultantEarning) error
	FindEarning(ctx context.Context, id uint64) (*models.ConsultantEarning, error)
	UpdateEarning(ctx context.Context, id uint64, updates map[string]any) error
	ListEarnings(ctx context.Context, query earningQuery) ([]models.ConsultantEarning, *pagination.Cursor, error)
	SumConsultantShare(ctx context.Context, consultantID uint64) (decimal.Decimal, error)
	SumFees(ctx context.Context) (feeTotals, error)

	CreatePayment(ctx context.Context, record *models.PaymentRecord) error
	ListPayments(ctx context.Context, query paymentQuery) ([]models.PaymentRecord, *pagination.Cursor, error)
	SumPayments(ctx context.Context, paymentType enums.PaymentType, recipientID *uint64) (decimal.Decimal, error)
}

type earningQuery struct {
	ConsultantID *uint64
	Status       *enums.EarningPaymentStatus
	Limit        int
	Cursor       *pagination.Cursor
}

type paymentQuery struct {
	PaymentType *enums.PaymentType
	RecipientID *uint64
	From        *time.Time
	To          *time.Time
	Limit       int
	Cursor      *pagination.Cursor
}

type feeTotals struct {
	TeamFee    decimal.Decimal
	WebsiteFee decimal.Decimal
}

type repository struct {
	repo.Base
}

// NewRepository builds an earnings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateEarning(ctx context.Context, earning *models.ConsultantEarning) error {
	return r.DB(ctx).Create(earning).Error
}

func (r *repository) FindEarning(ctx context.Context, id uint64) (*models.ConsultantEarning, error) {
	var earning models.ConsultantEarning
	if err := r.DB(ctx).Where("id = ?", id).First(&earning).Error; err != nil {
		return nil, err
	}
	return &earning, nil
}

func (r *repository) UpdateEarning(ctx context.Context, id uint64, updates map[string]any) error {
	result := r.DB(ctx).Model(&models.ConsultantEarning{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListEarnings(ctx context.Context, query earningQuery) ([]models.ConsultantEarning, *pagination.Cursor, error) {
	db := r.DB(ctx).Model(&models.ConsultantEarning{})
	if query.ConsultantID != nil {
		db = db.Where("consultant_id = ?", *query.ConsultantID)
	}
	if query.Status != nil {
		db = db.Where("payment_status = ?", *query.Status)
	}
	return repo.FindPage(db, query.Cursor, query.Limit, func(row models.ConsultantEarning) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
}

type sumRow struct {
	Total decimal.Decimal
}

func (r *repository) SumConsultantShare(ctx context.Context, consultantID uint64) (decimal.Decimal, error) {
	var row sumRow
	err := r.DB(ctx).Model(&models.ConsultantEarning{}).
		Select("COALESCE(SUM(consultant_share), 0) AS total").
		Where("consultant_id = ?", consultantID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

func (r *repository) SumFees(ctx context.Context) (feeTotals, error) {
	var row struct {
		TeamFee    decimal.Decimal
		WebsiteFee decimal.Decimal
	}
	err := r.DB(ctx).Model(&models.ConsultantEarning{}).
		Select("COALESCE(SUM(team_fee), 0) AS team_fee, COALESCE(SUM(website_fee), 0) AS website_fee").
		Scan(&row).Error
	if err != nil {
		return feeTotals{}, err
	}
	return feeTotals{TeamFee: row.TeamFee.Round(2), WebsiteFee: row.WebsiteFee.Round(2)}, nil
}

func (r *repository) CreatePayment(ctx context.Context, record *models.PaymentRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *repository) ListPayments(ctx context.Context, query paymentQuery) ([]models.PaymentRecord, *pagination.Cursor, error) {
	db := r.DB(ctx).Model(&models.PaymentRecord{})
	if query.PaymentType != nil {
		db = db.Where("payment_type = ?", *query.PaymentType)
	}
	if query.RecipientID != nil {
		db = db.Where("recipient_id = ?", *query.RecipientID)
	}
	if query.From != nil {
		db = db.Where("created_at >= ?", *query.From)
	}
	if query.To != nil {
		db = db.Where("created_at < ?", *query.To)
	}
	return repo.FindPage(db, query.Cursor, query.Limit, func(row models.PaymentRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
}

func (r *repository) SumPayments(ctx context.Context, paymentType enums.PaymentType, recipientID *uint64) (decimal.Decimal, error) {
	db := r.DB(ctx).Model(&models.PaymentRecord{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("payment_type = ?", paymentType)
	if recipientID != nil {
		db = db.Where("recipient_id = ?", *recipientID)
	}
	var row sumRow
	if err := db.Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}
