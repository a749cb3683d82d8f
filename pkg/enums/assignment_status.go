package enums

import (
	"fmt"
	"slices"
)

// AssignmentStatus tracks the lifecycle of an assignment request.
type AssignmentStatus string

const (
	AssignmentStatusPendingReview   AssignmentStatus = "pending_review"
	AssignmentStatusPriceProposed   AssignmentStatus = "price_proposed"
	AssignmentStatusNegotiating     AssignmentStatus = "negotiating"
	AssignmentStatusAccepted        AssignmentStatus = "accepted"
	AssignmentStatusPaymentPending  AssignmentStatus = "payment_pending"
	AssignmentStatusPaymentUploaded AssignmentStatus = "payment_uploaded"
	AssignmentStatusPaymentVerified AssignmentStatus = "payment_verified"
	AssignmentStatusInProgress      AssignmentStatus = "in_progress"
	AssignmentStatusCompleted       AssignmentStatus = "completed"
	AssignmentStatusRejected        AssignmentStatus = "rejected"
	AssignmentStatusCancelled       AssignmentStatus = "cancelled"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusPendingReview,
	AssignmentStatusPriceProposed,
	AssignmentStatusNegotiating,
	AssignmentStatusAccepted,
	AssignmentStatusPaymentPending,
	AssignmentStatusPaymentUploaded,
	AssignmentStatusPaymentVerified,
	AssignmentStatusInProgress,
	AssignmentStatusCompleted,
	AssignmentStatusRejected,
	AssignmentStatusCancelled,
}

// String implements fmt.Stringer.
func (s AssignmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AssignmentStatus.
func (s AssignmentStatus) IsValid() bool {
	return slices.Contains(validAssignmentStatuses, s)
}

// IsTerminal reports whether no further transition may leave the status.
func (s AssignmentStatus) IsTerminal() bool {
	switch s {
	case AssignmentStatusCompleted, AssignmentStatusRejected, AssignmentStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
