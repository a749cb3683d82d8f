package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

// AssignmentRequest is a unit of consulting work from submission through payout.
type AssignmentRequest struct {
	ID           uint64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ClientID     uint64  `gorm:"column:client_id;not null" json:"client_id"`
	ConsultantID *uint64 `gorm:"column:consultant_id" json:"consultant_id,omitempty"`
	Title        string  `gorm:"column:title;not null" json:"title"`
	Description  string  `gorm:"column:description;not null" json:"description"`

	ProposedBudget  *decimal.Decimal `gorm:"column:proposed_budget;type:numeric(12,2)" json:"proposed_budget,omitempty"`
	ProposedPrice   *decimal.Decimal `gorm:"column:proposed_price;type:numeric(12,2)" json:"proposed_price,omitempty"`
	NegotiatedPrice *decimal.Decimal `gorm:"column:negotiated_price;type:numeric(12,2)" json:"negotiated_price,omitempty"`
	FinalPrice      *decimal.Decimal `gorm:"column:final_price;type:numeric(12,2)" json:"final_price,omitempty"`

	Status   enums.AssignmentStatus `gorm:"column:status;type:text;not null;default:'pending_review'" json:"status"`
	Deadline *time.Time             `gorm:"column:deadline" json:"deadline,omitempty"`

	ClientReviewStatus enums.ClientReviewStatus `gorm:"column:client_review_status;type:text;not null;default:'none'" json:"client_review_status"`
	ClientReviewNotes  *string                  `gorm:"column:client_review_notes" json:"client_review_notes,omitempty"`
	ClientReviewedAt   *time.Time               `gorm:"column:client_reviewed_at" json:"client_reviewed_at,omitempty"`
	RevisionCount      int                      `gorm:"column:revision_count;not null;default:0" json:"revision_count"`

	PaymentMethod          *string    `gorm:"column:payment_method" json:"payment_method,omitempty"`
	PaymentReceipt         *string    `gorm:"column:payment_receipt" json:"-"`
	PaymentReceiptFilename *string    `gorm:"column:payment_receipt_filename" json:"payment_receipt_filename,omitempty"`
	PaymentUploadedAt      *time.Time `gorm:"column:payment_uploaded_at" json:"payment_uploaded_at,omitempty"`
	PaymentVerifiedAt      *time.Time `gorm:"column:payment_verified_at" json:"payment_verified_at,omitempty"`

	WorkFile                *string    `gorm:"column:work_file" json:"-"`
	WorkFileName            *string    `gorm:"column:work_file_name" json:"work_file_name,omitempty"`
	WorkNotes               *string    `gorm:"column:work_notes" json:"work_notes,omitempty"`
	WorkSubmittedAt         *time.Time `gorm:"column:work_submitted_at" json:"work_submitted_at,omitempty"`
	FinalSubmissionFile     *string    `gorm:"column:final_submission_file" json:"-"`
	FinalSubmissionFilename *string    `gorm:"column:final_submission_filename" json:"final_submission_filename,omitempty"`
	FinalNotes              *string    `gorm:"column:final_notes" json:"final_notes,omitempty"`
	FinalSubmittedAt        *time.Time `gorm:"column:final_submitted_at" json:"final_submitted_at,omitempty"`

	CancellationReason *string `gorm:"column:cancellation_reason" json:"cancellation_reason,omitempty"`

	DeadlineReminderSent    bool `gorm:"column:deadline_reminder_sent;not null;default:false" json:"deadline_reminder_sent"`
	OverdueNotificationSent bool `gorm:"column:overdue_notification_sent;not null;default:false" json:"overdue_notification_sent"`

	PriceProposedAt *time.Time `gorm:"column:price_proposed_at" json:"price_proposed_at,omitempty"`
	AcceptedAt      *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (AssignmentRequest) TableName() string { return "assignment_requests" }

// EffectivePrice is the single price used for every money computation:
// final, else negotiated, else proposed, else zero.
func (a AssignmentRequest) EffectivePrice() decimal.Decimal {
	switch {
	case a.FinalPrice != nil:
		return *a.FinalPrice
	case a.NegotiatedPrice != nil:
		return *a.NegotiatedPrice
	case a.ProposedPrice != nil:
		return *a.ProposedPrice
	default:
		return decimal.Zero
	}
}

// IsClient reports whether userID owns the request.
func (a AssignmentRequest) IsClient(userID uint64) bool {
	return a.ClientID == userID
}

// IsConsultant reports whether userID is the assigned consultant.
func (a AssignmentRequest) IsConsultant(userID uint64) bool {
	return a.ConsultantID != nil && *a.ConsultantID == userID
}
