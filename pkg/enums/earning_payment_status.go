package enums

import (
	"fmt"
	"slices"
)

// EarningPaymentStatus tracks whether a consultant earning was paid out.
type EarningPaymentStatus string

const (
	EarningPaymentStatusPending EarningPaymentStatus = "pending"
	EarningPaymentStatusPaid    EarningPaymentStatus = "paid"
	EarningPaymentStatusOnHold  EarningPaymentStatus = "on_hold"
)

var validEarningPaymentStatuses = []EarningPaymentStatus{
	EarningPaymentStatusPending,
	EarningPaymentStatusPaid,
	EarningPaymentStatusOnHold,
}

// String implements fmt.Stringer.
func (s EarningPaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EarningPaymentStatus.
func (s EarningPaymentStatus) IsValid() bool {
	return slices.Contains(validEarningPaymentStatuses, s)
}

// ParseEarningPaymentStatus converts raw input into an EarningPaymentStatus.
func ParseEarningPaymentStatus(value string) (EarningPaymentStatus, error) {
	for _, candidate := range validEarningPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning payment status %q", value)
}
