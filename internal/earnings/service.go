package earnings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/revenue"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/pagination"
)

// Service settles completed assignments and tracks what is owed to whom.
type Service interface {
	RecordCompletion(ctx context.Context, tx *gorm.DB, assignment models.AssignmentRequest, at time.Time) (*models.ConsultantEarning, error)
	GetConsultantBalance(ctx context.Context, actor authz.Actor, consultantID uint64) (*Balance, error)
	TeamBalances(ctx context.Context, actor authz.Actor) (*TeamBalances, error)
	ListEarnings(ctx context.Context, actor authz.Actor, params EarningListParams) (*EarningList, error)
	UpdatePaymentStatus(ctx context.Context, actor authz.Actor, input UpdatePaymentStatusInput) (*models.ConsultantEarning, error)
	RecordPayment(ctx context.Context, actor authz.Actor, input RecordPaymentInput) (*models.PaymentRecord, error)
	ListPayments(ctx context.Context, actor authz.Actor, params PaymentListParams) (*PaymentList, error)
}

// Balance is earned minus paid for one recipient.
type Balance struct {
	ConsultantID uint64          `json:"consultant_id,omitempty"`
	Earned       decimal.Decimal `json:"earned"`
	Paid         decimal.Decimal `json:"paid"`
	Unpaid       decimal.Decimal `json:"unpaid"`
}

// RecipientBalance is one team recipient's slice of the aggregate team fee.
type RecipientBalance struct {
	Recipient enums.PaymentType `json:"recipient"`
	Weight    int64             `json:"weight"`
	Earned    decimal.Decimal   `json:"earned"`
	Paid      decimal.Decimal   `json:"paid"`
	Unpaid    decimal.Decimal   `json:"unpaid"`
}

// TeamBalances summarises the platform and team pools.
type TeamBalances struct {
	TeamFeeTotal    decimal.Decimal    `json:"team_fee_total"`
	WebsiteFeeTotal decimal.Decimal    `json:"website_fee_total"`
	Divisor         int64              `json:"divisor"`
	Recipients      []RecipientBalance `json:"recipients"`
}

// EarningListParams filters the earnings list.
type EarningListParams struct {
	ConsultantID *uint64
	Status       string
	Limit        int
	Cursor       string
}

// EarningList is a page of earnings.
type EarningList struct {
	Items  []models.ConsultantEarning `json:"items"`
	Cursor string                     `json:"cursor"`
}

// UpdatePaymentStatusInput changes the payout state of one earning.
type UpdatePaymentStatusInput struct {
	EarningID   uint64
	Status      string
	PaymentDate *time.Time
	Notes       *string
}

// RecordPaymentInput is one disbursement.
type RecordPaymentInput struct {
	PaymentType string
	RecipientID *uint64
	Amount      decimal.Decimal
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Reference   *string
	Notes       *string
}

// PaymentListParams filters the disbursement ledger.
type PaymentListParams struct {
	PaymentType string
	RecipientID *uint64
	From        *time.Time
	To          *time.Time
	Limit       int
	Cursor      string
}

// PaymentList is a page of payment records.
type PaymentList struct {
	Items  []models.PaymentRecord `json:"items"`
	Cursor string                 `json:"cursor"`
}

type service struct {
	repo  Repository
	guard *authz.Guard
	now   func() time.Time
}

// NewService wires the earnings dependencies.
func NewService(repo Repository, guard *authz.Guard) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("earnings repository required")
	}
	if guard == nil {
		return nil, fmt.Errorf("authorization guard required")
	}
	return &service{repo: repo, guard: guard, now: time.Now}, nil
}

// RecordCompletion writes the earning row for a completed assignment inside
// the caller's transaction. A second call for the same assignment is a conflict.
func (s *service) RecordCompletion(ctx context.Context, tx *gorm.DB, assignment models.AssignmentRequest, at time.Time) (*models.ConsultantEarning, error) {
	if assignment.ConsultantID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "assignment has no consultant to pay")
	}
	shares, err := revenue.Split(assignment.EffectivePrice())
	if err != nil {
		return nil, err
	}
	assignmentID := assignment.ID
	earning := &models.ConsultantEarning{
		AssignmentID:    &assignmentID,
		ConsultantID:    *assignment.ConsultantID,
		Amount:          shares.Price,
		ConsultantShare: shares.ConsultantShare,
		WebsiteFee:      shares.WebsiteFee,
		TeamFee:         shares.TeamFee,
		PaymentStatus:   enums.EarningPaymentStatusPending,
		CreatedAt:       at.UTC(),
		UpdatedAt:       at.UTC(),
	}
	if err := s.repo.WithTx(tx).CreateEarning(ctx, earning); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "earning already recorded for assignment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create earning")
	}
	return earning, nil
}

func (s *service) GetConsultantBalance(ctx context.Context, actor authz.Actor, consultantID uint64) (*Balance, error) {
	if consultantID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consultant id required")
	}
	if err := s.guard.Require(actor, authz.CapViewBalance, authz.ForOwner(consultantID)); err != nil {
		return nil, err
	}
	earned, err := s.repo.SumConsultantShare(ctx, consultantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum consultant earnings")
	}
	paid, err := s.repo.SumPayments(ctx, enums.PaymentTypeConsultant, &consultantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum consultant payments")
	}
	return &Balance{
		ConsultantID: consultantID,
		Earned:       earned,
		Paid:         paid,
		Unpaid:       earned.Sub(paid),
	}, nil
}

// TeamBalances applies the team distribution to the aggregate team fee and
// subtracts what each pool has already been paid.
func (s *service) TeamBalances(ctx context.Context, actor authz.Actor) (*TeamBalances, error) {
	if err := s.guard.Require(actor, authz.CapViewTeamBalances, authz.Subject{}); err != nil {
		return nil, err
	}
	totals, err := s.repo.SumFees(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum fees")
	}
	distribution := revenue.DistributeTeamFee(totals.TeamFee).Rounded()

	weights := revenue.Weights()
	out := &TeamBalances{
		TeamFeeTotal:    totals.TeamFee,
		WebsiteFeeTotal: totals.WebsiteFee,
		Divisor:         revenue.TeamWeightDivisor,
		Recipients:      make([]RecipientBalance, 0, len(weights)),
	}
	for _, w := range weights {
		paid, err := s.repo.SumPayments(ctx, w.Recipient, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum team payments")
		}
		earned := distribution.For(w.Recipient)
		out.Recipients = append(out.Recipients, RecipientBalance{
			Recipient: w.Recipient,
			Weight:    w.Weight,
			Earned:    earned,
			Paid:      paid,
			Unpaid:    earned.Sub(paid),
		})
	}
	return out, nil
}

func (s *service) ListEarnings(ctx context.Context, actor authz.Actor, params EarningListParams) (*EarningList, error) {
	query := earningQuery{ConsultantID: params.ConsultantID, Limit: params.Limit}

	// Consultants may list their own earnings; everything else is accounting.
	if actor.Role == enums.UserRoleDoctor {
		self := actor.UserID
		if params.ConsultantID != nil && *params.ConsultantID != self {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "consultants may only list their own earnings")
		}
		query.ConsultantID = &self
	} else if err := s.guard.Require(actor, authz.CapManageEarnings, authz.Subject{}); err != nil {
		return nil, err
	}

	if strings.TrimSpace(params.Status) != "" {
		status, err := enums.ParseEarningPaymentStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
		}
		query.Status = &status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListEarnings(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list earnings")
	}
	list := &EarningList{Items: rows}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, actor authz.Actor, input UpdatePaymentStatusInput) (*models.ConsultantEarning, error) {
	if input.EarningID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "earning id required")
	}
	status, err := enums.ParseEarningPaymentStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
	}
	if err := s.guard.Require(actor, authz.CapManageEarnings, authz.Subject{}); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := map[string]any{
		"payment_status": status,
		"updated_at":     now,
	}
	switch status {
	case enums.EarningPaymentStatusPaid:
		paidAt := now
		if input.PaymentDate != nil {
			paidAt = input.PaymentDate.UTC()
		}
		updates["payment_date"] = paidAt
	default:
		updates["payment_date"] = nil
	}
	if input.Notes != nil {
		updates["notes"] = strings.TrimSpace(*input.Notes)
	}

	if err := s.repo.UpdateEarning(ctx, input.EarningID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "earning not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update earning")
	}
	earning, err := s.repo.FindEarning(ctx, input.EarningID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload earning")
	}
	return earning, nil
}

func (s *service) RecordPayment(ctx context.Context, actor authz.Actor, input RecordPaymentInput) (*models.PaymentRecord, error) {
	paymentType, err := enums.ParsePaymentType(input.PaymentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment type")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if paymentType == enums.PaymentTypeConsultant && (input.RecipientID == nil || *input.RecipientID == 0) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consultant payments require a recipient")
	}
	if input.PeriodStart != nil && input.PeriodEnd != nil && input.PeriodEnd.Before(*input.PeriodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end precedes period start")
	}
	if err := s.guard.Require(actor, authz.CapRecordPayment, authz.Subject{}); err != nil {
		return nil, err
	}

	record := &models.PaymentRecord{
		PaymentType: paymentType,
		RecipientID: input.RecipientID,
		Amount:      input.Amount.Round(2),
		PeriodStart: input.PeriodStart,
		PeriodEnd:   input.PeriodEnd,
		Reference:   trimmed(input.Reference),
		Notes:       trimmed(input.Notes),
		RecordedBy:  actor.UserID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreatePayment(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
	}
	return record, nil
}

func (s *service) ListPayments(ctx context.Context, actor authz.Actor, params PaymentListParams) (*PaymentList, error) {
	if err := s.guard.Require(actor, authz.CapRecordPayment, authz.Subject{}); err != nil {
		return nil, err
	}
	query := paymentQuery{
		RecipientID: params.RecipientID,
		From:        params.From,
		To:          params.To,
		Limit:       params.Limit,
	}
	if strings.TrimSpace(params.PaymentType) != "" {
		paymentType, err := enums.ParsePaymentType(params.PaymentType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment type")
		}
		query.PaymentType = &paymentType
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListPayments(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	list := &PaymentList{Items: rows}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	clean := strings.TrimSpace(*value)
	if clean == "" {
		return nil
	}
	return &clean
}
