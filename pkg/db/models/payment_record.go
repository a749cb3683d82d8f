package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

// PaymentRecord is an append-only disbursement. Team pool payments carry no
// recipient.
type PaymentRecord struct {
	ID          uint64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PaymentType enums.PaymentType `gorm:"column:payment_type;type:text;not null" json:"payment_type"`
	RecipientID *uint64           `gorm:"column:recipient_id" json:"recipient_id,omitempty"`
	Amount      decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	PeriodStart *time.Time        `gorm:"column:period_start" json:"period_start,omitempty"`
	PeriodEnd   *time.Time        `gorm:"column:period_end" json:"period_end,omitempty"`
	Reference   *string           `gorm:"column:reference" json:"reference,omitempty"`
	Notes       *string           `gorm:"column:notes" json:"notes,omitempty"`
	RecordedBy  uint64            `gorm:"column:recorded_by;not null" json:"recorded_by"`
	CreatedAt   time.Time         `gorm:"column:created_at;not null" json:"created_at"`
}

func (PaymentRecord) TableName() string { return "payment_records" }
