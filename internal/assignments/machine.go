package assignments

import (
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/storage"
)

var adjacency = map[enums.AssignmentStatus][]enums.AssignmentStatus{
	enums.AssignmentStatusPendingReview: {
		enums.AssignmentStatusPriceProposed,
		enums.AssignmentStatusRejected,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusPriceProposed: {
		enums.AssignmentStatusNegotiating,
		enums.AssignmentStatusAccepted,
		enums.AssignmentStatusRejected,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusNegotiating: {
		enums.AssignmentStatusNegotiating,
		enums.AssignmentStatusAccepted,
		enums.AssignmentStatusRejected,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusAccepted: {
		enums.AssignmentStatusPaymentPending,
		enums.AssignmentStatusPaymentUploaded,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusPaymentPending: {
		enums.AssignmentStatusPaymentUploaded,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusPaymentUploaded: {
		enums.AssignmentStatusPaymentVerified,
		enums.AssignmentStatusPaymentPending,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusPaymentVerified: {
		enums.AssignmentStatusInProgress,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusInProgress: {
		enums.AssignmentStatusInProgress,
		enums.AssignmentStatusCompleted,
		enums.AssignmentStatusCancelled,
	},
}

// CanTransition reports whether to is in the adjacency list of from.
func CanTransition(from, to enums.AssignmentStatus) bool {
	return slices.Contains(adjacency[from], to)
}

// Targets lists the statuses reachable from from in one step.
func Targets(from enums.AssignmentStatus) []enums.AssignmentStatus {
	return slices.Clone(adjacency[from])
}

// clientCancellable lists the states a client may still walk away from.
var clientCancellable = []enums.AssignmentStatus{
	enums.AssignmentStatusPendingReview,
	enums.AssignmentStatusPriceProposed,
	enums.AssignmentStatusNegotiating,
	enums.AssignmentStatusAccepted,
	enums.AssignmentStatusPaymentPending,
}

var (
	negotiable  = []enums.AssignmentStatus{enums.AssignmentStatusPriceProposed, enums.AssignmentStatusNegotiating}
	declinable  = []enums.AssignmentStatus{enums.AssignmentStatusPendingReview, enums.AssignmentStatusPriceProposed, enums.AssignmentStatusNegotiating}
	payable     = []enums.AssignmentStatus{enums.AssignmentStatusAccepted, enums.AssignmentStatusPaymentPending}
	deliverable = []enums.AssignmentStatus{enums.AssignmentStatusPaymentVerified, enums.AssignmentStatusInProgress}
)

// change is the write plan for a single transition.
type change struct {
	action    enums.AssignmentAction
	from      enums.AssignmentStatus
	to        enums.AssignmentStatus
	expect    Expectation
	updates   map[string]any
	message   string
	blob      storage.Kind
	completes bool
}

func conflict(a models.AssignmentRequest, action enums.AssignmentAction) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "cannot %s an assignment in status %s", action, a.Status).
		WithDetails(map[string]any{
			"status":               a.Status,
			"client_review_status": a.ClientReviewStatus,
			"allowed_targets":      Targets(a.Status),
		})
}

// plan validates the origin state for in.Action and builds the writes.
func plan(a models.AssignmentRequest, in TransitionInput, now time.Time) (*change, error) {
	p := in.Payload
	c := &change{
		action:  in.Action,
		from:    a.Status,
		expect:  Expectation{Status: a.Status},
		updates: map[string]any{"updated_at": now},
	}
	requireOrigin := func(origins []enums.AssignmentStatus) error {
		if !slices.Contains(origins, a.Status) {
			return conflict(a, in.Action)
		}
		return nil
	}

	switch in.Action {
	case enums.AssignmentActionProposePrice:
		if err := requireOrigin([]enums.AssignmentStatus{enums.AssignmentStatusPendingReview}); err != nil {
			return nil, err
		}
		c.to = enums.AssignmentStatusPriceProposed
		c.updates["proposed_price"] = *p.Price
		c.updates["price_proposed_at"] = now
		if a.ConsultantID == nil {
			c.updates["consultant_id"] = in.Actor.UserID
		}
		c.message = fmt.Sprintf("Price proposed: $%s", p.Price.StringFixed(2))

	case enums.AssignmentActionNegotiate:
		if err := requireOrigin(negotiable); err != nil {
			return nil, err
		}
		c.to = enums.AssignmentStatusNegotiating
		c.updates["negotiated_price"] = *p.Price
		c.message = fmt.Sprintf("Negotiated price of $%s proposed by %s", p.Price.StringFixed(2), partyLabel(a, in.Actor))

	case enums.AssignmentActionAccept:
		if err := requireOrigin(negotiable); err != nil {
			return nil, err
		}
		price := a.EffectivePrice()
		c.to = enums.AssignmentStatusAccepted
		c.updates["final_price"] = price
		c.updates["accepted_at"] = now
		c.message = fmt.Sprintf("Price of $%s accepted. Awaiting payment.", price.StringFixed(2))

	case enums.AssignmentActionRequestPayment:
		if err := requireOrigin([]enums.AssignmentStatus{enums.AssignmentStatusAccepted}); err != nil {
			return nil, err
		}
		c.to = enums.AssignmentStatusPaymentPending
		c.message = fmt.Sprintf("Payment of $%s requested. Please upload your receipt.", a.EffectivePrice().StringFixed(2))

	case enums.AssignmentActionUploadPayment:
		if err := requireOrigin(payable); err != nil {
			return nil, err
		}
		c.to = enums.AssignmentStatusPaymentUploaded
		c.blob = storage.KindReceipt
		c.updates["payment_receipt_filename"] = p.File.Filename
		c.updates["payment_uploaded_at"] = now
		if method := textOrNil(p.PaymentMethod); method != nil {
			c.updates["payment_method"] = *method
		}
		c.message = "Payment receipt uploaded. Awaiting verification."

	case enums.AssignmentActionVerifyPayment:
		if err := requireOrigin([]enums.AssignmentStatus{enums.AssignmentStatusPaymentUploaded}); err != nil {
			return nil, err
		}
		c.to = enums.AssignmentStatusPaymentVerified
		c.updates["payment_verified_at"] = now
		c.message = "Payment verified. Work can begin."

	case enums.AssignmentActionRejectPayment:
		if err := requireOrigin([]enums.AssignmentStatus{enums.AssignmentStatusPaymentUploaded}); err != nil {
			return nil, err
		}
		c.to = enums.AssignmentStatusPaymentPending
		c.message = withReason("Payment receipt could not be verified", p.Reason)

	case enums.AssignmentActionSubmitWork:
		if err := requireOrigin(deliverable); err != nil {
			return nil, err
		}
		c.to = enums.AssignmentStatusInProgress
		c.blob = storage.KindWork
		c.updates["work_file_name"] = p.File.Filename
		c.updates["work_submitted_at"] = now
		c.updates["work_notes"] = textOrNil(p.Notes)
		c.message = fmt.Sprintf("Work file uploaded: %s", p.File.Filename)

	case enums.AssignmentActionSubmitFinal:
		if err := requireOrigin(deliverable); err != nil {
			return nil, err
		}
		review := a.ClientReviewStatus
		c.expect.ReviewStatus = &review
		c.to = enums.AssignmentStatusInProgress
		c.blob = storage.KindFinal
		c.updates["final_submission_filename"] = p.File.Filename
		c.updates["final_submitted_at"] = now
		c.updates["final_notes"] = textOrNil(p.Notes)
		c.updates["client_review_status"] = enums.ClientReviewStatusPending
		c.message = fmt.Sprintf("Final submission delivered: %s. Awaiting client review.", p.File.Filename)

	case enums.AssignmentActionReview:
		if a.Status != enums.AssignmentStatusInProgress || a.ClientReviewStatus != enums.ClientReviewStatusPending {
			return nil, conflict(a, in.Action)
		}
		pending := enums.ClientReviewStatusPending
		c.expect.ReviewStatus = &pending
		c.updates["client_reviewed_at"] = now
		c.updates["client_review_notes"] = textOrNil(p.Notes)
		if p.Decision == enums.ReviewDecisionAccept {
			c.to = enums.AssignmentStatusCompleted
			c.completes = true
			c.updates["client_review_status"] = enums.ClientReviewStatusAccepted
			c.updates["completed_at"] = now
			c.message = "Client accepted the final submission. Assignment completed."
		} else {
			c.to = enums.AssignmentStatusInProgress
			c.updates["client_review_status"] = enums.ClientReviewStatusRejected
			c.updates["revision_count"] = gorm.Expr("revision_count + ?", 1)
			c.message = withReason("Client requested revisions", p.Notes)
		}

	case enums.AssignmentActionReject:
		if err := requireOrigin(declinable); err != nil {
			return nil, err
		}
		c.to = enums.AssignmentStatusRejected
		c.updates["cancellation_reason"] = textOrNil(p.Reason)
		c.message = withReason("Request declined", p.Reason)

	case enums.AssignmentActionCancel:
		if a.Status.IsTerminal() {
			return nil, conflict(a, in.Action)
		}
		if !in.Actor.Role.IsStaff() && !slices.Contains(clientCancellable, a.Status) {
			return nil, conflict(a, in.Action)
		}
		c.to = enums.AssignmentStatusCancelled
		c.updates["cancellation_reason"] = textOrNil(p.Reason)
		c.message = withReason(fmt.Sprintf("Request cancelled by %s", partyLabel(a, in.Actor)), p.Reason)

	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown action %q", in.Action)
	}

	if !CanTransition(c.from, c.to) {
		return nil, conflict(a, in.Action)
	}
	if c.to != c.from {
		c.updates["status"] = c.to
	}
	return c, nil
}

// alreadyApplied reports whether a retry of in would change nothing because
// the assignment already reflects its outcome.
func alreadyApplied(a models.AssignmentRequest, in TransitionInput) bool {
	p := in.Payload
	switch in.Action {
	case enums.AssignmentActionProposePrice:
		return a.Status == enums.AssignmentStatusPriceProposed &&
			a.IsConsultant(in.Actor.UserID) &&
			a.ProposedPrice != nil && p.Price != nil && a.ProposedPrice.Equal(*p.Price)
	case enums.AssignmentActionNegotiate:
		return a.Status == enums.AssignmentStatusNegotiating &&
			a.NegotiatedPrice != nil && p.Price != nil && a.NegotiatedPrice.Equal(*p.Price)
	case enums.AssignmentActionAccept:
		return a.Status == enums.AssignmentStatusAccepted
	case enums.AssignmentActionRequestPayment, enums.AssignmentActionRejectPayment:
		return a.Status == enums.AssignmentStatusPaymentPending
	case enums.AssignmentActionUploadPayment:
		return a.Status == enums.AssignmentStatusPaymentUploaded &&
			p.File != nil && sameText(a.PaymentReceiptFilename, p.File.Filename)
	case enums.AssignmentActionVerifyPayment:
		return a.Status == enums.AssignmentStatusPaymentVerified
	case enums.AssignmentActionSubmitWork:
		return false
	case enums.AssignmentActionSubmitFinal:
		return a.Status == enums.AssignmentStatusInProgress &&
			a.ClientReviewStatus == enums.ClientReviewStatusPending &&
			p.File != nil && sameText(a.FinalSubmissionFilename, p.File.Filename)
	case enums.AssignmentActionReview:
		if p.Decision == enums.ReviewDecisionAccept {
			return a.Status == enums.AssignmentStatusCompleted && a.ClientReviewStatus == enums.ClientReviewStatusAccepted
		}
		return a.Status == enums.AssignmentStatusInProgress && a.ClientReviewStatus == enums.ClientReviewStatusRejected
	case enums.AssignmentActionReject:
		return a.Status == enums.AssignmentStatusRejected
	case enums.AssignmentActionCancel:
		return a.Status == enums.AssignmentStatusCancelled
	default:
		return false
	}
}

func sameText(stored *string, value string) bool {
	return stored != nil && *stored == value
}

func withReason(prefix string, reason *string) string {
	if clean := textOrNil(reason); clean != nil {
		return fmt.Sprintf("%s: %s", prefix, *clean)
	}
	return prefix + "."
}

func partyLabel(a models.AssignmentRequest, actor authz.Actor) string {
	switch {
	case a.IsClient(actor.UserID):
		return "client"
	case a.IsConsultant(actor.UserID):
		return "consultant"
	case actor.Role.IsStaff():
		return "administrator"
	default:
		return string(actor.Role)
	}
}
