package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

// ConsultantEarning is the settled split of one completed assignment.
type ConsultantEarning struct {
	ID              uint64                     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	AssignmentID    *uint64                    `gorm:"column:assignment_id;uniqueIndex" json:"assignment_id,omitempty"`
	ConsultantID    uint64                     `gorm:"column:consultant_id;not null;index" json:"consultant_id"`
	Amount          decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	ConsultantShare decimal.Decimal            `gorm:"column:consultant_share;type:numeric(12,2);not null" json:"consultant_share"`
	WebsiteFee      decimal.Decimal            `gorm:"column:website_fee;type:numeric(12,2);not null" json:"website_fee"`
	TeamFee         decimal.Decimal            `gorm:"column:team_fee;type:numeric(12,2);not null" json:"team_fee"`
	PaymentStatus   enums.EarningPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'" json:"payment_status"`
	PaymentDate     *time.Time                 `gorm:"column:payment_date" json:"payment_date,omitempty"`
	Notes           *string                    `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt       time.Time                  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt       time.Time                  `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (ConsultantEarning) TableName() string { return "consultant_earnings" }
