package authz

import "github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"

// Capability is an operation subject to authorization.
type Capability string

const (
	CapCreateAssignment Capability = "create_assignment"
	CapViewAssignment   Capability = "view_assignment"
	CapViewFiles        Capability = "view_files"
	CapPostMessage      Capability = "post_message"
	CapRate             Capability = "rate"
	CapViewBalance      Capability = "view_balance"
	CapManageEarnings   Capability = "manage_earnings"
	CapRecordPayment    Capability = "record_payment"
	CapViewTeamBalances Capability = "view_team_balances"
	CapListAll          Capability = "list_all_assignments"
)

// ForAction maps a lifecycle action onto its capability.
func ForAction(action enums.AssignmentAction) Capability {
	return Capability(action)
}

type predicate func(Actor, Subject) bool

type rule struct {
	name  string
	allow predicate
}

func (r rule) allows(actor Actor, subject Subject) bool {
	return r.allow(actor, subject)
}

var (
	clientOwner = rule{"client_owner", func(a Actor, s Subject) bool {
		return a.Role == enums.UserRoleClient && s.ClientID == a.UserID
	}}
	assignedConsultant = rule{"assigned_consultant", func(a Actor, s Subject) bool {
		return a.Role == enums.UserRoleDoctor && s.ConsultantID != nil && *s.ConsultantID == a.UserID
	}}
	unassignedConsultant = rule{"unassigned_consultant", func(a Actor, s Subject) bool {
		return a.Role == enums.UserRoleDoctor && s.ConsultantID == nil
	}}
	openPoolConsultant = rule{"open_pool_consultant", func(a Actor, s Subject) bool {
		return a.Role == enums.UserRoleDoctor && s.ConsultantID == nil &&
			s.Status == enums.AssignmentStatusPendingReview
	}}
	staff = rule{"staff", func(a Actor, _ Subject) bool {
		return a.Role.IsStaff()
	}}
	accountant = rule{"accountant", func(a Actor, _ Subject) bool {
		return a.Role == enums.UserRoleAccountant
	}}
	anyClient = rule{"client", func(a Actor, _ Subject) bool {
		return a.Role == enums.UserRoleClient
	}}
	selfConsultant = rule{"self_consultant", func(a Actor, s Subject) bool {
		return a.Role == enums.UserRoleDoctor && s.OwnerID == a.UserID
	}}
)

func defaultRules() map[Capability][]rule {
	return map[Capability][]rule{
		ForAction(enums.AssignmentActionProposePrice):   {assignedConsultant, unassignedConsultant},
		ForAction(enums.AssignmentActionNegotiate):      {clientOwner, assignedConsultant},
		ForAction(enums.AssignmentActionAccept):         {clientOwner},
		ForAction(enums.AssignmentActionRequestPayment): {assignedConsultant, staff},
		ForAction(enums.AssignmentActionUploadPayment):  {clientOwner},
		ForAction(enums.AssignmentActionVerifyPayment):  {accountant, staff},
		ForAction(enums.AssignmentActionRejectPayment):  {accountant, staff},
		ForAction(enums.AssignmentActionSubmitWork):     {assignedConsultant},
		ForAction(enums.AssignmentActionSubmitFinal):    {assignedConsultant},
		ForAction(enums.AssignmentActionReview):         {clientOwner},
		ForAction(enums.AssignmentActionReject):         {assignedConsultant, staff},
		ForAction(enums.AssignmentActionCancel):         {clientOwner, staff},

		CapCreateAssignment: {anyClient},
		CapViewAssignment:   {clientOwner, assignedConsultant, openPoolConsultant, staff, accountant},
		CapViewFiles:        {clientOwner, assignedConsultant, staff, accountant},
		CapPostMessage:      {clientOwner, assignedConsultant, staff},
		CapRate:             {clientOwner},
		CapViewBalance:      {selfConsultant, staff, accountant},
		CapManageEarnings:   {accountant, staff},
		CapRecordPayment:    {accountant, staff},
		CapViewTeamBalances: {accountant, staff},
		CapListAll:          {staff, accountant},
	}
}
