package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/earnings"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

// testEarningsService embeds the interface so only exercised methods are stubbed.
type testEarningsService struct {
	earnings.Service
	balanceFn func(ctx context.Context, actor authz.Actor, consultantID uint64) (*earnings.Balance, error)
	recordFn  func(ctx context.Context, actor authz.Actor, input earnings.RecordPaymentInput) (*models.PaymentRecord, error)
	updateFn  func(ctx context.Context, actor authz.Actor, input earnings.UpdatePaymentStatusInput) (*models.ConsultantEarning, error)
	paymentFn func(ctx context.Context, actor authz.Actor, params earnings.PaymentListParams) (*earnings.PaymentList, error)
}

func (s *testEarningsService) GetConsultantBalance(ctx context.Context, actor authz.Actor, consultantID uint64) (*earnings.Balance, error) {
	return s.balanceFn(ctx, actor, consultantID)
}

func (s *testEarningsService) RecordPayment(ctx context.Context, actor authz.Actor, input earnings.RecordPaymentInput) (*models.PaymentRecord, error) {
	return s.recordFn(ctx, actor, input)
}

func (s *testEarningsService) UpdatePaymentStatus(ctx context.Context, actor authz.Actor, input earnings.UpdatePaymentStatusInput) (*models.ConsultantEarning, error) {
	return s.updateFn(ctx, actor, input)
}

func (s *testEarningsService) ListPayments(ctx context.Context, actor authz.Actor, params earnings.PaymentListParams) (*earnings.PaymentList, error) {
	return s.paymentFn(ctx, actor, params)
}

func TestGetConsultantBalanceForbidden(t *testing.T) {
	svc := &testEarningsService{
		balanceFn: func(ctx context.Context, actor authz.Actor, consultantID uint64) (*earnings.Balance, error) {
			require.Equal(t, uint64(3), consultantID)
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this balance")
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/consultants/3/balance", nil)
	req = withURLParams(withActor(req, 4, enums.UserRoleDoctor), map[string]string{"consultantId": "3"})

	resp := httptest.NewRecorder()
	GetConsultantBalance(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestGetConsultantBalanceSerializesDecimals(t *testing.T) {
	svc := &testEarningsService{
		balanceFn: func(context.Context, authz.Actor, uint64) (*earnings.Balance, error) {
			return &earnings.Balance{
				ConsultantID: 3,
				Earned:       decimal.RequireFromString("76.00"),
				Paid:         decimal.RequireFromString("50.00"),
				Unpaid:       decimal.RequireFromString("26.00"),
			}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/consultants/3/balance", nil)
	req = withURLParams(withActor(req, 3, enums.UserRoleDoctor), map[string]string{"consultantId": "3"})

	resp := httptest.NewRecorder()
	GetConsultantBalance(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"data":{"consultant_id":3,"earned":"76","paid":"50","unpaid":"26"}}`, resp.Body.String())
}

func TestRecordPaymentMapsBody(t *testing.T) {
	var got earnings.RecordPaymentInput
	svc := &testEarningsService{
		recordFn: func(ctx context.Context, actor authz.Actor, input earnings.RecordPaymentInput) (*models.PaymentRecord, error) {
			require.Equal(t, enums.UserRoleAccountant, actor.Role)
			got = input
			return &models.PaymentRecord{ID: 1, PaymentType: enums.PaymentType(input.PaymentType), Amount: input.Amount}, nil
		},
	}
	body := `{"payment_type":"consultant","recipient_id":3,"amount":"40.25","reference":"MM-1"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/accounting/payments", strings.NewReader(body)), 8, enums.UserRoleAccountant)

	resp := httptest.NewRecorder()
	RecordPayment(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, "consultant", got.PaymentType)
	require.True(t, got.Amount.Equal(decimal.RequireFromString("40.25")))
	require.Equal(t, uint64(3), *got.RecipientID)
}

func TestUpdateEarningStatusValidatesStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/accounting/earnings/2", strings.NewReader(`{"payment_status":"refunded"}`))
	req = withURLParams(withActor(req, 8, enums.UserRoleAccountant), map[string]string{"earningId": "2"})

	resp := httptest.NewRecorder()
	UpdateEarningStatus(&testEarningsService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "payment_status")
}

func TestListPaymentsParsesDates(t *testing.T) {
	var got earnings.PaymentListParams
	svc := &testEarningsService{
		paymentFn: func(ctx context.Context, actor authz.Actor, params earnings.PaymentListParams) (*earnings.PaymentList, error) {
			got = params
			return &earnings.PaymentList{}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounting/payments?from=2026-01-01&to=2026-02-01T00:00:00Z&paymentType=ceo", nil)
	req = withActor(req, 8, enums.UserRoleAccountant)

	resp := httptest.NewRecorder()
	ListPayments(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "ceo", got.PaymentType)
	require.NotNil(t, got.From)
	require.Equal(t, 2026, got.From.Year())
	require.NotNil(t, got.To)
	require.Equal(t, "February", got.To.Month().String())
}
