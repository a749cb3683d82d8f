package assignments

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

const (
	maxTitleLength = 255
	maxTextLength  = 5000
)

// CreateInput carries a new request from a client.
type CreateInput struct {
	Actor          authz.Actor
	Title          string
	Description    string
	Deadline       *time.Time
	ConsultantID   *uint64
	ProposedBudget *decimal.Decimal
}

func (in CreateInput) validate(now time.Time) error {
	if strings.TrimSpace(in.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if len(in.Title) > maxTitleLength {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "title exceeds %d characters", maxTitleLength)
	}
	if strings.TrimSpace(in.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if in.Deadline != nil && !in.Deadline.After(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "deadline must be in the future")
	}
	if in.ProposedBudget != nil && in.ProposedBudget.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "proposed budget must not be negative")
	}
	if in.ConsultantID != nil && *in.ConsultantID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "consultant id invalid")
	}
	return nil
}

// FileUpload is a blob submitted alongside an action.
type FileUpload struct {
	Filename string
	Data     []byte
}

// Payload holds the action-specific fields of a transition.
type Payload struct {
	Price         *decimal.Decimal
	Notes         *string
	Reason        *string
	PaymentMethod *string
	Decision      enums.ReviewDecision
	File          *FileUpload
}

// TransitionInput asks the machine to apply action to an assignment.
type TransitionInput struct {
	AssignmentID uint64
	Action       enums.AssignmentAction
	Actor        authz.Actor
	Payload      Payload
}

func (in TransitionInput) validate() error {
	if in.AssignmentID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	if !in.Action.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown action %q", in.Action)
	}
	p := in.Payload
	for _, text := range []*string{p.Notes, p.Reason, p.PaymentMethod} {
		if text != nil && len(*text) > maxTextLength {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "text exceeds %d characters", maxTextLength)
		}
	}

	switch in.Action {
	case enums.AssignmentActionProposePrice, enums.AssignmentActionNegotiate:
		if p.Price == nil || !p.Price.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "price must be a positive amount")
		}
		if p.Price.Exponent() < -2 {
			return pkgerrors.New(pkgerrors.CodeValidation, "price supports at most two decimal places")
		}
	case enums.AssignmentActionUploadPayment, enums.AssignmentActionSubmitWork, enums.AssignmentActionSubmitFinal:
		if p.File == nil || len(p.File.Data) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "file is required")
		}
		if strings.TrimSpace(p.File.Filename) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
		}
	case enums.AssignmentActionReview:
		if !p.Decision.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "review decision must be accept or reject")
		}
	}
	return nil
}

// ListParams filters the role-scoped listing. ClientID and ConsultantID
// narrow the scope; callers may only narrow to themselves unless staff.
type ListParams struct {
	Actor        authz.Actor
	ClientID     *uint64
	ConsultantID *uint64
	Status       string
	Limit        int
	Cursor       string
}

// ListResult is a page of assignments.
type ListResult struct {
	Items  []models.AssignmentRequest `json:"items"`
	Cursor string                     `json:"cursor"`
}

// FileKind names the artifact slots on an assignment.
type FileKind string

const (
	FileKindReceipt FileKind = "receipt"
	FileKindWork    FileKind = "work"
	FileKindFinal   FileKind = "final"
)

// File is a downloaded artifact.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

func textOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	clean := strings.TrimSpace(*value)
	if clean == "" {
		return nil
	}
	return &clean
}
