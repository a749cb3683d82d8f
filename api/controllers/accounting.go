package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumo1993/medconsult-liberia-sub003/api/validators"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/earnings"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

const earningsName = "earnings"

type updateEarningRequest struct {
	PaymentStatus string     `json:"payment_status" validate:"required,oneof=pending paid on_hold"`
	PaymentDate   *time.Time `json:"payment_date"`
	Notes         *string    `json:"notes" validate:"omitempty,max=2000"`
}

type recordPaymentRequest struct {
	PaymentType string          `json:"payment_type" validate:"required"`
	RecipientID *uint64         `json:"recipient_id" validate:"omitempty,gt=0"`
	Amount      decimal.Decimal `json:"amount" validate:"money"`
	PeriodStart *time.Time      `json:"period_start"`
	PeriodEnd   *time.Time      `json:"period_end"`
	Reference   *string         `json:"reference" validate:"omitempty,max=255"`
	Notes       *string         `json:"notes" validate:"omitempty,max=2000"`
}

func (req recordPaymentRequest) input() earnings.RecordPaymentInput {
	return earnings.RecordPaymentInput{
		PaymentType: strings.TrimSpace(req.PaymentType),
		RecipientID: req.RecipientID,
		Amount:      req.Amount,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
}

// GetConsultantBalance returns earned, paid and unpaid totals for a consultant.
func GetConsultantBalance(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return actorHandler(logg, earningsName, svc != nil, http.StatusOK, func(r *http.Request, actor authz.Actor) (any, error) {
		id, err := validators.ParsePathID(r, "consultantId")
		if err != nil {
			return nil, err
		}
		return svc.GetConsultantBalance(r.Context(), actor, id)
	})
}

// ListEarnings pages through consultant earnings for accounting staff.
func ListEarnings(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return actorHandler(logg, earningsName, svc != nil, http.StatusOK, func(r *http.Request, actor authz.Actor) (any, error) {
		limit, err := parseLimit(r)
		if err != nil {
			return nil, err
		}
		consultantID, err := validators.ParseQueryID(r, "consultantId")
		if err != nil {
			return nil, err
		}
		return svc.ListEarnings(r.Context(), actor, earnings.EarningListParams{
			ConsultantID: consultantID,
			Status:       validators.QueryString(r, "status"),
			Limit:        limit,
			Cursor:       validators.QueryString(r, "cursor"),
		})
	})
}

// UpdateEarningStatus moves an earning between pending, paid and on hold.
func UpdateEarningStatus(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return actorHandler(logg, earningsName, svc != nil, http.StatusOK, func(r *http.Request, actor authz.Actor) (any, error) {
		id, err := validators.ParsePathID(r, "earningId")
		if err != nil {
			return nil, err
		}
		var req updateEarningRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.UpdatePaymentStatus(r.Context(), actor, earnings.UpdatePaymentStatusInput{
			EarningID:   id,
			Status:      req.PaymentStatus,
			PaymentDate: req.PaymentDate,
			Notes:       req.Notes,
		})
	})
}

// RecordPayment appends a disbursement to the payment ledger.
func RecordPayment(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return actorHandler(logg, earningsName, svc != nil, http.StatusCreated, func(r *http.Request, actor authz.Actor) (any, error) {
		var req recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return nil, err
		}
		return svc.RecordPayment(r.Context(), actor, req.input())
	})
}

// ListPayments pages through recorded disbursements, optionally within a
// [from, to] window.
func ListPayments(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return actorHandler(logg, earningsName, svc != nil, http.StatusOK, func(r *http.Request, actor authz.Actor) (any, error) {
		params := earnings.PaymentListParams{
			PaymentType: validators.QueryString(r, "paymentType"),
			Cursor:      validators.QueryString(r, "cursor"),
		}
		var err error
		if params.Limit, err = parseLimit(r); err != nil {
			return nil, err
		}
		if params.RecipientID, err = validators.ParseQueryID(r, "recipientId"); err != nil {
			return nil, err
		}
		if params.From, err = validators.ParseQueryTime(r, "from"); err != nil {
			return nil, err
		}
		if params.To, err = validators.ParseQueryTime(r, "to"); err != nil {
			return nil, err
		}
		return svc.ListPayments(r.Context(), actor, params)
	})
}

// TeamBalances reports the platform and team fee pools.
func TeamBalances(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return actorHandler(logg, earningsName, svc != nil, http.StatusOK, func(r *http.Request, actor authz.Actor) (any, error) {
		return svc.TeamBalances(r.Context(), actor)
	})
}
