package authz

import (
	"fmt"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID uint64
	Role   enums.UserRole
}

// System is the actor used by scheduled sweeps.
var System = Actor{}

// IsSystem reports whether the actor is the scheduler rather than a user.
func (a Actor) IsSystem() bool {
	return a.UserID == 0 && a.Role == ""
}

// Subject is what a capability is checked against. Assignment capabilities
// fill the party fields; balance capabilities fill OwnerID.
type Subject struct {
	ClientID     uint64
	ConsultantID *uint64
	Status       enums.AssignmentStatus
	OwnerID      uint64
}

// ForAssignment builds a Subject from an assignment row.
func ForAssignment(a models.AssignmentRequest) Subject {
	return Subject{
		ClientID:     a.ClientID,
		ConsultantID: a.ConsultantID,
		Status:       a.Status,
	}
}

// ForOwner builds a Subject for per-user resources such as balances.
func ForOwner(userID uint64) Subject {
	return Subject{OwnerID: userID}
}

// Decision is the tagged result of a capability check.
type Decision struct {
	Allowed    bool
	Capability Capability
	Rule       string
	Reason     string
}

// Err converts a denial into a FORBIDDEN error; allowed decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, d.Reason).
		WithDetails(map[string]any{"capability": string(d.Capability)})
}

// Guard evaluates the capability table.
type Guard struct {
	rules map[Capability][]rule
}

// NewGuard returns a guard over the default capability table.
func NewGuard() *Guard {
	return &Guard{rules: defaultRules()}
}

// Check evaluates every rule registered for capability and allows the first match.
func (g *Guard) Check(actor Actor, capability Capability, subject Subject) Decision {
	rules, ok := g.rules[capability]
	if !ok {
		return Decision{
			Capability: capability,
			Reason:     fmt.Sprintf("unknown capability %q", capability),
		}
	}
	if !actor.Role.IsValid() || actor.UserID == 0 {
		return Decision{Capability: capability, Reason: "unauthenticated actor"}
	}
	for _, r := range rules {
		if r.allows(actor, subject) {
			return Decision{Allowed: true, Capability: capability, Rule: r.name}
		}
	}
	return Decision{
		Capability: capability,
		Reason:     fmt.Sprintf("%s may not %s", actor.Role, capability),
	}
}

// Require is Check followed by Err.
func (g *Guard) Require(actor Actor, capability Capability, subject Subject) error {
	return g.Check(actor, capability, subject).Err()
}
