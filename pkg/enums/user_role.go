package enums

import (
	"fmt"
	"slices"
)

// UserRole is the platform-wide role carried in the access token. Doctors are
// the consultants who price and deliver assignments.
type UserRole string

const (
	UserRoleClient       UserRole = "client"
	UserRoleDoctor       UserRole = "doctor"
	UserRoleAdmin        UserRole = "admin"
	UserRoleManagement   UserRole = "management"
	UserRoleAccountant   UserRole = "accountant"
	UserRoleITSpecialist UserRole = "it_specialist"
)

var validUserRoles = []UserRole{
	UserRoleClient,
	UserRoleDoctor,
	UserRoleAdmin,
	UserRoleManagement,
	UserRoleAccountant,
	UserRoleITSpecialist,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	return slices.Contains(validUserRoles, r)
}

// IsStaff reports whether the role administers the platform.
func (r UserRole) IsStaff() bool {
	return r == UserRoleAdmin || r == UserRoleManagement
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
