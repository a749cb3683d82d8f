package enums

import (
	"fmt"
	"slices"
)

// AssignmentAction names a lifecycle operation a party may request.
type AssignmentAction string

const (
	AssignmentActionProposePrice   AssignmentAction = "propose_price"
	AssignmentActionNegotiate      AssignmentAction = "negotiate"
	AssignmentActionAccept         AssignmentAction = "accept"
	AssignmentActionRequestPayment AssignmentAction = "request_payment"
	AssignmentActionUploadPayment  AssignmentAction = "upload_payment"
	AssignmentActionVerifyPayment  AssignmentAction = "verify_payment"
	AssignmentActionRejectPayment  AssignmentAction = "reject_payment"
	AssignmentActionSubmitWork     AssignmentAction = "submit_work"
	AssignmentActionSubmitFinal    AssignmentAction = "submit_final"
	AssignmentActionReview         AssignmentAction = "review"
	AssignmentActionReject         AssignmentAction = "reject"
	AssignmentActionCancel         AssignmentAction = "cancel"
)

var validAssignmentActions = []AssignmentAction{
	AssignmentActionProposePrice,
	AssignmentActionNegotiate,
	AssignmentActionAccept,
	AssignmentActionRequestPayment,
	AssignmentActionUploadPayment,
	AssignmentActionVerifyPayment,
	AssignmentActionRejectPayment,
	AssignmentActionSubmitWork,
	AssignmentActionSubmitFinal,
	AssignmentActionReview,
	AssignmentActionReject,
	AssignmentActionCancel,
}

// String implements fmt.Stringer.
func (a AssignmentAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AssignmentAction.
func (a AssignmentAction) IsValid() bool {
	return slices.Contains(validAssignmentActions, a)
}

// ParseAssignmentAction converts raw input into an AssignmentAction.
func ParseAssignmentAction(value string) (AssignmentAction, error) {
	for _, candidate := range validAssignmentActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment action %q", value)
}
