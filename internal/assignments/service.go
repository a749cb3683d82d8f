package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/notifications"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/pagination"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/storage"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type messageAppender interface {
	AppendSystem(ctx context.Context, tx *gorm.DB, assignmentID uint64, text string, at time.Time) error
}

type earningsRecorder interface {
	RecordCompletion(ctx context.Context, tx *gorm.DB, assignment models.AssignmentRequest, at time.Time) (*models.ConsultantEarning, error)
}

type transitionObserver interface {
	ObserveTransition(action, outcome string)
}

// Service is the assignment lifecycle: creation, scoped reads and transitions.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.AssignmentRequest, error)
	Get(ctx context.Context, actor authz.Actor, id uint64) (*models.AssignmentRequest, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Transition(ctx context.Context, input TransitionInput) (*models.AssignmentRequest, error)
	OpenFile(ctx context.Context, actor authz.Actor, id uint64, kind FileKind) (*File, error)
}

// Deps groups the collaborators of the lifecycle service. Notifier, Metrics
// and Logger are optional.
type Deps struct {
	Repo     Repository
	Tx       txRunner
	Guard    *authz.Guard
	Messages messageAppender
	Earnings earningsRecorder
	Blobs    storage.Store
	Notifier notifications.Notifier
	Metrics  transitionObserver
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	guard    *authz.Guard
	messages messageAppender
	earnings earningsRecorder
	blobs    storage.Store
	notifier notifications.Notifier
	metrics  transitionObserver
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates and wires the lifecycle dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Guard == nil {
		return nil, fmt.Errorf("authorization guard required")
	}
	if deps.Messages == nil {
		return nil, fmt.Errorf("message appender required")
	}
	if deps.Earnings == nil {
		return nil, fmt.Errorf("earnings recorder required")
	}
	if deps.Blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	return &service{
		repo:     deps.Repo,
		tx:       deps.Tx,
		guard:    deps.Guard,
		messages: deps.Messages,
		earnings: deps.Earnings,
		blobs:    deps.Blobs,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.AssignmentRequest, error) {
	now := s.now().UTC()
	if err := input.validate(now); err != nil {
		return nil, err
	}
	if err := s.guard.Require(input.Actor, authz.CapCreateAssignment, authz.Subject{ClientID: input.Actor.UserID}); err != nil {
		return nil, err
	}

	assignment := &models.AssignmentRequest{
		ClientID:           input.Actor.UserID,
		ConsultantID:       input.ConsultantID,
		Title:              strings.TrimSpace(input.Title),
		Description:        strings.TrimSpace(input.Description),
		Deadline:           input.Deadline,
		ProposedBudget:     input.ProposedBudget,
		Status:             enums.AssignmentStatusPendingReview,
		ClientReviewStatus: enums.ClientReviewStatusNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}
		return s.messages.AppendSystem(ctx, tx, assignment.ID, "Request submitted. Awaiting consultant review.", now)
	})
	if err != nil {
		return nil, err
	}

	if assignment.ConsultantID != nil {
		s.notify(ctx, notifications.Event{
			Type:         enums.NotificationTypeAssignmentUpdate,
			AssignmentID: assignment.ID,
			Title:        "New assignment request",
			Message:      assignment.Title,
			Recipients:   []uint64{*assignment.ConsultantID},
		})
	}
	return assignment, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uint64) (*models.AssignmentRequest, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	assignment, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(actor, authz.CapViewAssignment, authz.ForAssignment(*assignment)); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	actor := params.Actor
	query := listQuery{Limit: params.Limit}

	switch {
	case actor.Role == enums.UserRoleClient:
		if params.ClientID != nil && *params.ClientID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "clients may only list their own requests")
		}
		self := actor.UserID
		query.ClientID = &self
	case actor.Role == enums.UserRoleDoctor:
		if params.ConsultantID != nil && *params.ConsultantID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "consultants may only list their own assignments")
		}
		self := actor.UserID
		query.ConsultantID = &self
		query.OpenPool = params.ConsultantID == nil
	default:
		if err := s.guard.Require(actor, authz.CapListAll, authz.Subject{}); err != nil {
			return nil, err
		}
		query.ClientID = params.ClientID
		query.ConsultantID = params.ConsultantID
	}

	if strings.TrimSpace(params.Status) != "" {
		status, err := enums.ParseAssignmentStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// Transition applies one lifecycle action. The status change, its system
// message and any earnings row commit together; notification happens after
// commit and never fails the call.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.AssignmentRequest, error) {
	result, applied, err := s.transition(ctx, input)
	s.observe(input.Action, applied, err)
	if err != nil {
		return nil, err
	}
	if applied != nil {
		s.notify(ctx, eventFor(*result, applied, input.Actor))
	}
	return result, nil
}

func (s *service) transition(ctx context.Context, input TransitionInput) (*models.AssignmentRequest, *change, error) {
	if err := input.validate(); err != nil {
		return nil, nil, err
	}

	var (
		result    *models.AssignmentRequest
		applied   *change
		storedRef string
		discard   bool
	)
	now := s.now().UTC()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, input.AssignmentID)
		if err != nil {
			return err
		}
		if err := s.guard.Require(input.Actor, authz.ForAction(input.Action), authz.ForAssignment(*current)); err != nil {
			return err
		}
		if alreadyApplied(*current, input) {
			result = current
			return nil
		}

		c, err := plan(*current, input, now)
		if err != nil {
			return err
		}

		if c.blob != "" {
			obj, err := s.blobs.Put(ctx, c.blob, input.Payload.File.Data, input.Payload.File.Filename)
			if err != nil {
				return blobError(err)
			}
			storedRef = obj.Ref
			c.updates[refColumn(c.blob)] = obj.Ref
		}

		ok, err := repo.CompareAndUpdate(ctx, current.ID, c.expect, c.updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assignment")
		}
		if !ok {
			// Lost a race: the row moved between load and update.
			latest, err := s.load(ctx, repo, current.ID)
			if err != nil {
				return err
			}
			if alreadyApplied(*latest, input) {
				result = latest
				discard = true
				return nil
			}
			return conflict(*latest, input.Action)
		}

		if err := s.messages.AppendSystem(ctx, tx, current.ID, c.message, now); err != nil {
			return err
		}

		updated, err := s.load(ctx, repo, current.ID)
		if err != nil {
			return err
		}
		if c.completes {
			if _, err := s.earnings.RecordCompletion(ctx, tx, *updated, now); err != nil {
				return err
			}
		}
		result = updated
		applied = c
		return nil
	})
	if err != nil || discard {
		s.discardBlob(ctx, storedRef)
	}
	if err != nil {
		return nil, nil, err
	}
	return result, applied, nil
}

func (s *service) OpenFile(ctx context.Context, actor authz.Actor, id uint64, kind FileKind) (*File, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	assignment, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(actor, authz.CapViewFiles, authz.ForAssignment(*assignment)); err != nil {
		return nil, err
	}

	var ref, name *string
	switch kind {
	case FileKindReceipt:
		ref, name = assignment.PaymentReceipt, assignment.PaymentReceiptFilename
	case FileKindWork:
		ref, name = assignment.WorkFile, assignment.WorkFileName
	case FileKindFinal:
		ref, name = assignment.FinalSubmissionFile, assignment.FinalSubmissionFilename
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown file kind %q", kind)
	}
	if ref == nil || *ref == "" {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "no %s file uploaded", kind)
	}

	blob, err := s.blobs.Get(ctx, *ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "%s file missing from storage", kind)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read file")
	}
	file := &File{ContentType: blob.ContentType, Data: blob.Data}
	if name != nil {
		file.Filename = *name
	}
	return file, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uint64) (*models.AssignmentRequest, error) {
	assignment, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	return assignment, nil
}

func (s *service) discardBlob(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.blobs.Delete(ctx, ref); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "blob_ref", ref), "failed to discard orphaned blob", err)
	}
}

func (s *service) notify(ctx context.Context, event notifications.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithAssignmentID(ctx, event.AssignmentID), "assignment notification failed", err)
	}
}

func (s *service) observe(action enums.AssignmentAction, applied *change, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "noop"
	switch {
	case err != nil:
		outcome = "error"
		if typed := pkgerrors.As(err); typed != nil {
			outcome = strings.ToLower(string(typed.Code()))
		}
	case applied != nil:
		outcome = "applied"
	}
	s.metrics.ObserveTransition(string(action), outcome)
}

func blobError(err error) error {
	if errors.Is(err, storage.ErrRejected) {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store file")
}

func refColumn(kind storage.Kind) string {
	switch kind {
	case storage.KindReceipt:
		return "payment_receipt"
	case storage.KindWork:
		return "work_file"
	default:
		return "final_submission_file"
	}
}

// eventFor tells the other parties about an applied transition.
func eventFor(a models.AssignmentRequest, c *change, actor authz.Actor) notifications.Event {
	recipients := make([]uint64, 0, 2)
	for _, id := range []uint64{a.ClientID, consultantOf(a)} {
		if id != 0 && id != actor.UserID {
			recipients = append(recipients, id)
		}
	}
	eventType := enums.NotificationTypeAssignmentUpdate
	switch c.action {
	case enums.AssignmentActionRequestPayment, enums.AssignmentActionUploadPayment,
		enums.AssignmentActionVerifyPayment, enums.AssignmentActionRejectPayment:
		eventType = enums.NotificationTypePaymentAlert
	}
	return notifications.Event{
		Type:         eventType,
		AssignmentID: a.ID,
		Title:        fmt.Sprintf("%s: %s", a.Title, strings.ReplaceAll(string(c.to), "_", " ")),
		Message:      c.message,
		Recipients:   recipients,
		NotifyOps:    c.action == enums.AssignmentActionUploadPayment,
	}
}

func consultantOf(a models.AssignmentRequest) uint64 {
	if a.ConsultantID == nil {
		return 0
	}
	return *a.ConsultantID
}
