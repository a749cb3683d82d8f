package earnings

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/testutil"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

var (
	consultant  = authz.Actor{UserID: 10, Role: enums.UserRoleDoctor}
	otherDoctor = authz.Actor{UserID: 11, Role: enums.UserRoleDoctor}
	bookkeeper  = authz.Actor{UserID: 30, Role: enums.UserRoleAccountant}
	customer    = authz.Actor{UserID: 1, Role: enums.UserRoleClient}
)

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := testutil.OpenDB(t)
	svc, err := NewService(NewRepository(conn), authz.NewGuard())
	require.NoError(t, err)
	s := svc.(*service)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, conn
}

func completed(id uint64, consultantID uint64, price string) models.AssignmentRequest {
	p := decimal.RequireFromString(price)
	return models.AssignmentRequest{
		ID:           id,
		ClientID:     customer.UserID,
		ConsultantID: &consultantID,
		FinalPrice:   &p,
		Status:       enums.AssignmentStatusCompleted,
	}
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got)
}

func TestRecordCompletionSplitsEffectivePrice(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	earning, err := svc.RecordCompletion(ctx, conn, completed(1, consultant.UserID, "100.00"), at)
	require.NoError(t, err)
	requireMoney(t, "100", earning.Amount)
	requireMoney(t, "75", earning.ConsultantShare)
	requireMoney(t, "10", earning.WebsiteFee)
	requireMoney(t, "15", earning.TeamFee)
	require.Equal(t, enums.EarningPaymentStatusPending, earning.PaymentStatus)

	_, err = svc.RecordCompletion(ctx, conn, completed(1, consultant.UserID, "100.00"), at)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	var count int64
	require.NoError(t, conn.Model(&models.ConsultantEarning{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRecordCompletionRequiresConsultant(t *testing.T) {
	svc, conn := newTestService(t)
	a := completed(2, consultant.UserID, "10")
	a.ConsultantID = nil

	_, err := svc.RecordCompletion(context.Background(), conn, a, time.Now())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestConsultantBalanceSubtractsPayments(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.RecordCompletion(ctx, conn, completed(1, consultant.UserID, "100"), at)
	require.NoError(t, err)
	_, err = svc.RecordCompletion(ctx, conn, completed(2, consultant.UserID, "40"), at)
	require.NoError(t, err)
	_, err = svc.RecordCompletion(ctx, conn, completed(3, otherDoctor.UserID, "80"), at)
	require.NoError(t, err)

	recipient := consultant.UserID
	_, err = svc.RecordPayment(ctx, bookkeeper, RecordPaymentInput{
		PaymentType: string(enums.PaymentTypeConsultant),
		RecipientID: &recipient,
		Amount:      decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	balance, err := svc.GetConsultantBalance(ctx, consultant, consultant.UserID)
	require.NoError(t, err)
	requireMoney(t, "105", balance.Earned)
	requireMoney(t, "50", balance.Paid)
	requireMoney(t, "55", balance.Unpaid)

	viaBooks, err := svc.GetConsultantBalance(ctx, bookkeeper, consultant.UserID)
	require.NoError(t, err)
	requireMoney(t, "55", viaBooks.Unpaid)

	_, err = svc.GetConsultantBalance(ctx, otherDoctor, consultant.UserID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.GetConsultantBalance(ctx, consultant, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTeamBalancesDistributeAggregateFee(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.RecordCompletion(ctx, conn, completed(1, consultant.UserID, "100"), at)
	require.NoError(t, err)
	_, err = svc.RecordCompletion(ctx, conn, completed(2, consultant.UserID, "40"), at)
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, bookkeeper, RecordPaymentInput{
		PaymentType: string(enums.PaymentTypeCEO),
		Amount:      decimal.RequireFromString("5"),
	})
	require.NoError(t, err)

	balances, err := svc.TeamBalances(ctx, bookkeeper)
	require.NoError(t, err)
	requireMoney(t, "21", balances.TeamFeeTotal)
	requireMoney(t, "14", balances.WebsiteFeeTotal)
	require.EqualValues(t, 95, balances.Divisor)
	require.Len(t, balances.Recipients, 4)

	byType := map[enums.PaymentType]RecipientBalance{}
	for _, r := range balances.Recipients {
		byType[r.Recipient] = r
	}
	requireMoney(t, "8.84", byType[enums.PaymentTypeCEO].Earned)
	requireMoney(t, "5", byType[enums.PaymentTypeCEO].Paid)
	requireMoney(t, "3.84", byType[enums.PaymentTypeCEO].Unpaid)
	requireMoney(t, "5.53", byType[enums.PaymentTypeITSpecialist].Earned)
	requireMoney(t, "3.32", byType[enums.PaymentTypeAccountant].Earned)
	requireMoney(t, "3.32", byType[enums.PaymentTypeOtherTeam].Earned)

	_, err = svc.TeamBalances(ctx, consultant)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestUpdatePaymentStatus(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	earning, err := svc.RecordCompletion(ctx, conn, completed(1, consultant.UserID, "100"), time.Now())
	require.NoError(t, err)

	notes := "  paid via mobile money "
	updated, err := svc.UpdatePaymentStatus(ctx, bookkeeper, UpdatePaymentStatusInput{
		EarningID: earning.ID,
		Status:    "paid",
		Notes:     &notes,
	})
	require.NoError(t, err)
	require.Equal(t, enums.EarningPaymentStatusPaid, updated.PaymentStatus)
	require.NotNil(t, updated.PaymentDate)
	require.True(t, updated.PaymentDate.Equal(svc.now()))
	require.Equal(t, "paid via mobile money", *updated.Notes)
	requireMoney(t, "75", updated.ConsultantShare)

	held, err := svc.UpdatePaymentStatus(ctx, bookkeeper, UpdatePaymentStatusInput{EarningID: earning.ID, Status: "on_hold"})
	require.NoError(t, err)
	require.Nil(t, held.PaymentDate)

	_, err = svc.UpdatePaymentStatus(ctx, bookkeeper, UpdatePaymentStatusInput{EarningID: earning.ID, Status: "settled"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdatePaymentStatus(ctx, consultant, UpdatePaymentStatusInput{EarningID: earning.ID, Status: "paid"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdatePaymentStatus(ctx, bookkeeper, UpdatePaymentStatusInput{EarningID: 999, Status: "paid"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	tests := []struct {
		name  string
		input RecordPaymentInput
		code  pkgerrors.Code
	}{
		{"unknown type", RecordPaymentInput{PaymentType: "bonus", Amount: decimal.NewFromInt(1)}, pkgerrors.CodeValidation},
		{"zero amount", RecordPaymentInput{PaymentType: "ceo", Amount: decimal.Zero}, pkgerrors.CodeValidation},
		{"consultant without recipient", RecordPaymentInput{PaymentType: "consultant", Amount: decimal.NewFromInt(1)}, pkgerrors.CodeValidation},
		{"inverted period", RecordPaymentInput{PaymentType: "ceo", Amount: decimal.NewFromInt(1), PeriodStart: &start, PeriodEnd: &end}, pkgerrors.CodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordPayment(ctx, bookkeeper, tc.input)
			require.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}

	_, err := svc.RecordPayment(ctx, customer, RecordPaymentInput{PaymentType: "ceo", Amount: decimal.NewFromInt(1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestListPaymentsFiltersAndPages(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, kind := range []enums.PaymentType{enums.PaymentTypeCEO, enums.PaymentTypeCEO, enums.PaymentTypeAccountant} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		_, err := svc.RecordPayment(ctx, bookkeeper, RecordPaymentInput{PaymentType: string(kind), Amount: decimal.NewFromInt(int64(i + 1))})
		require.NoError(t, err)
	}

	page, err := svc.ListPayments(ctx, bookkeeper, PaymentListParams{PaymentType: "ceo", Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	requireMoney(t, "2", page.Items[0].Amount)
	require.NotEmpty(t, page.Cursor)

	next, err := svc.ListPayments(ctx, bookkeeper, PaymentListParams{PaymentType: "ceo", Limit: 1, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	requireMoney(t, "1", next.Items[0].Amount)
	require.Empty(t, next.Cursor)
	require.Equal(t, bookkeeper.UserID, next.Items[0].RecordedBy)
}

func TestListEarningsScopesConsultants(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.RecordCompletion(ctx, conn, completed(1, consultant.UserID, "100"), at)
	require.NoError(t, err)
	_, err = svc.RecordCompletion(ctx, conn, completed(2, otherDoctor.UserID, "50"), at.Add(time.Minute))
	require.NoError(t, err)

	own, err := svc.ListEarnings(ctx, consultant, EarningListParams{})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	require.Equal(t, consultant.UserID, own.Items[0].ConsultantID)

	other := otherDoctor.UserID
	_, err = svc.ListEarnings(ctx, consultant, EarningListParams{ConsultantID: &other})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	all, err := svc.ListEarnings(ctx, bookkeeper, EarningListParams{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.Equal(t, otherDoctor.UserID, all.Items[0].ConsultantID)

	_, err = svc.ListEarnings(ctx, customer, EarningListParams{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
