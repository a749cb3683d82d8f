package enums

import (
	"fmt"
	"slices"
)

// PaymentType identifies the recipient class of a disbursement.
type PaymentType string

const (
	PaymentTypeConsultant   PaymentType = "consultant"
	PaymentTypeCEO          PaymentType = "ceo"
	PaymentTypeAccountant   PaymentType = "accountant"
	PaymentTypeITSpecialist PaymentType = "it_specialist"
	PaymentTypeOtherTeam    PaymentType = "other_team"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeConsultant,
	PaymentTypeCEO,
	PaymentTypeAccountant,
	PaymentTypeITSpecialist,
	PaymentTypeOtherTeam,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	return slices.Contains(validPaymentTypes, p)
}

// IsTeamPool reports whether payments of this type draw from the team fee.
func (p PaymentType) IsTeamPool() bool {
	return p.IsValid() && p != PaymentTypeConsultant
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
