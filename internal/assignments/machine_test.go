package assignments

import (
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

var allStatuses = []enums.AssignmentStatus{
	enums.AssignmentStatusPendingReview,
	enums.AssignmentStatusPriceProposed,
	enums.AssignmentStatusNegotiating,
	enums.AssignmentStatusAccepted,
	enums.AssignmentStatusPaymentPending,
	enums.AssignmentStatusPaymentUploaded,
	enums.AssignmentStatusPaymentVerified,
	enums.AssignmentStatusInProgress,
	enums.AssignmentStatusCompleted,
	enums.AssignmentStatusRejected,
	enums.AssignmentStatusCancelled,
}

var allActions = []enums.AssignmentAction{
	enums.AssignmentActionProposePrice,
	enums.AssignmentActionNegotiate,
	enums.AssignmentActionAccept,
	enums.AssignmentActionRequestPayment,
	enums.AssignmentActionUploadPayment,
	enums.AssignmentActionVerifyPayment,
	enums.AssignmentActionRejectPayment,
	enums.AssignmentActionSubmitWork,
	enums.AssignmentActionSubmitFinal,
	enums.AssignmentActionReview,
	enums.AssignmentActionReject,
	enums.AssignmentActionCancel,
}

func payloadFor(action enums.AssignmentAction) Payload {
	price := decimal.RequireFromString("100.00")
	switch action {
	case enums.AssignmentActionProposePrice, enums.AssignmentActionNegotiate:
		return Payload{Price: &price}
	case enums.AssignmentActionUploadPayment, enums.AssignmentActionSubmitWork, enums.AssignmentActionSubmitFinal:
		return Payload{File: &FileUpload{Filename: "doc.pdf", Data: []byte("%PDF-1.4")}}
	case enums.AssignmentActionReview:
		return Payload{Decision: enums.ReviewDecisionAccept}
	default:
		return Payload{}
	}
}

func TestTerminalStatesHaveNoTargets(t *testing.T) {
	for _, status := range allStatuses {
		if status.IsTerminal() {
			require.Empty(t, Targets(status), status)
		} else {
			require.NotEmpty(t, Targets(status), status)
		}
	}
	require.True(t, CanTransition(enums.AssignmentStatusInProgress, enums.AssignmentStatusInProgress))
	require.False(t, CanTransition(enums.AssignmentStatusPendingReview, enums.AssignmentStatusCompleted))
}

// Every planned transition lands in the adjacency list of its origin and every
// refused one is a conflict.
func TestPlanRespectsAdjacency(t *testing.T) {
	staffActor := authz.Actor{UserID: 20, Role: enums.UserRoleAdmin}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reviews := []enums.ClientReviewStatus{enums.ClientReviewStatusNone, enums.ClientReviewStatusPending}

	applied := 0
	for _, status := range allStatuses {
		for _, review := range reviews {
			for _, action := range allActions {
				a := models.AssignmentRequest{ID: 1, ClientID: 1, Status: status, ClientReviewStatus: review}
				in := TransitionInput{AssignmentID: 1, Action: action, Actor: staffActor, Payload: payloadFor(action)}
				require.NoError(t, in.validate())

				c, err := plan(a, in, now)
				if err != nil {
					require.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "%s from %s: %v", action, status, err)
					continue
				}
				applied++
				require.Truef(t, CanTransition(status, c.to), "%s from %s landed in %s", action, status, c.to)
				require.Equal(t, now, c.updates["updated_at"])
				require.NotEmpty(t, c.message)
			}
		}
	}
	require.Positive(t, applied)
}

func TestPlanReviewRequiresPendingSubmission(t *testing.T) {
	a := models.AssignmentRequest{ID: 1, Status: enums.AssignmentStatusInProgress, ClientReviewStatus: enums.ClientReviewStatusRejected}
	in := TransitionInput{AssignmentID: 1, Action: enums.AssignmentActionReview, Payload: Payload{Decision: enums.ReviewDecisionAccept}}
	_, err := plan(a, in, time.Now())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestPlanClientCancelWindow(t *testing.T) {
	customer := authz.Actor{UserID: 1, Role: enums.UserRoleClient}
	in := TransitionInput{AssignmentID: 1, Action: enums.AssignmentActionCancel, Actor: customer}

	for _, status := range allStatuses {
		a := models.AssignmentRequest{ID: 1, ClientID: 1, Status: status}
		_, err := plan(a, in, time.Now())
		if slices.Contains(clientCancellable, status) {
			require.NoError(t, err, status)
		} else {
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), status)
		}
	}
}

func TestPlanAcceptFixesEffectivePrice(t *testing.T) {
	proposed := decimal.RequireFromString("120")
	negotiated := decimal.RequireFromString("95.50")
	a := models.AssignmentRequest{
		ID:              1,
		Status:          enums.AssignmentStatusNegotiating,
		ProposedPrice:   &proposed,
		NegotiatedPrice: &negotiated,
	}
	c, err := plan(a, TransitionInput{AssignmentID: 1, Action: enums.AssignmentActionAccept}, time.Now())
	require.NoError(t, err)
	require.True(t, negotiated.Equal(c.updates["final_price"].(decimal.Decimal)))
	require.Equal(t, "Price of $95.50 accepted. Awaiting payment.", c.message)
}

func TestAlreadyApplied(t *testing.T) {
	consultantID := uint64(10)
	price := decimal.RequireFromString("100")
	doctor := authz.Actor{UserID: consultantID, Role: enums.UserRoleDoctor}

	tests := []struct {
		name   string
		a      models.AssignmentRequest
		in     TransitionInput
		expect bool
	}{
		{
			name:   "same price proposal",
			a:      models.AssignmentRequest{Status: enums.AssignmentStatusPriceProposed, ConsultantID: &consultantID, ProposedPrice: &price},
			in:     TransitionInput{Action: enums.AssignmentActionProposePrice, Actor: doctor, Payload: payloadFor(enums.AssignmentActionProposePrice)},
			expect: true,
		},
		{
			name: "different price proposal",
			a:    models.AssignmentRequest{Status: enums.AssignmentStatusPriceProposed, ConsultantID: &consultantID, ProposedPrice: &price},
			in: TransitionInput{Action: enums.AssignmentActionProposePrice, Actor: doctor, Payload: Payload{
				Price: func() *decimal.Decimal { d := decimal.NewFromInt(80); return &d }(),
			}},
			expect: false,
		},
		{
			name:   "verify on verified",
			a:      models.AssignmentRequest{Status: enums.AssignmentStatusPaymentVerified},
			in:     TransitionInput{Action: enums.AssignmentActionVerifyPayment},
			expect: true,
		},
		{
			name:   "review accept on completed",
			a:      models.AssignmentRequest{Status: enums.AssignmentStatusCompleted, ClientReviewStatus: enums.ClientReviewStatusAccepted},
			in:     TransitionInput{Action: enums.AssignmentActionReview, Payload: Payload{Decision: enums.ReviewDecisionAccept}},
			expect: true,
		},
		{
			name:   "review reject on pending",
			a:      models.AssignmentRequest{Status: enums.AssignmentStatusInProgress, ClientReviewStatus: enums.ClientReviewStatusPending},
			in:     TransitionInput{Action: enums.AssignmentActionReview, Payload: Payload{Decision: enums.ReviewDecisionReject}},
			expect: false,
		},
		{
			name:   "work uploads always apply",
			a:      models.AssignmentRequest{Status: enums.AssignmentStatusInProgress},
			in:     TransitionInput{Action: enums.AssignmentActionSubmitWork, Payload: payloadFor(enums.AssignmentActionSubmitWork)},
			expect: false,
		},
		{
			name:   "cancel on cancelled",
			a:      models.AssignmentRequest{Status: enums.AssignmentStatusCancelled},
			in:     TransitionInput{Action: enums.AssignmentActionCancel},
			expect: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, alreadyApplied(tc.a, tc.in))
		})
	}
}

func TestTransitionInputValidation(t *testing.T) {
	zero := decimal.Zero
	tooPrecise := decimal.RequireFromString("10.001")
	tests := []struct {
		name string
		in   TransitionInput
	}{
		{"missing id", TransitionInput{Action: enums.AssignmentActionAccept}},
		{"unknown action", TransitionInput{AssignmentID: 1, Action: "escalate"}},
		{"missing price", TransitionInput{AssignmentID: 1, Action: enums.AssignmentActionProposePrice}},
		{"zero price", TransitionInput{AssignmentID: 1, Action: enums.AssignmentActionNegotiate, Payload: Payload{Price: &zero}}},
		{"sub-cent price", TransitionInput{AssignmentID: 1, Action: enums.AssignmentActionNegotiate, Payload: Payload{Price: &tooPrecise}}},
		{"missing receipt", TransitionInput{AssignmentID: 1, Action: enums.AssignmentActionUploadPayment}},
		{"missing decision", TransitionInput{AssignmentID: 1, Action: enums.AssignmentActionReview}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, pkgerrors.IsCode(tc.in.validate(), pkgerrors.CodeValidation))
		})
	}
}

// Decline is only possible before the client accepts a price; later states
// leave through cancellation.
func TestRejectOnlyBeforeAcceptance(t *testing.T) {
	staffActor := authz.Actor{UserID: 20, Role: enums.UserRoleAdmin}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	open := []enums.AssignmentStatus{
		enums.AssignmentStatusPendingReview,
		enums.AssignmentStatusPriceProposed,
		enums.AssignmentStatusNegotiating,
	}

	for _, status := range allStatuses {
		a := models.AssignmentRequest{ID: 1, ClientID: 1, Status: status}
		c, err := plan(a, TransitionInput{AssignmentID: 1, Action: enums.AssignmentActionReject, Actor: staffActor}, now)
		if slices.Contains(open, status) {
			require.NoError(t, err, status)
			require.Equal(t, enums.AssignmentStatusRejected, c.to)
			continue
		}
		require.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "reject from %s: %v", status, err)
	}
}
