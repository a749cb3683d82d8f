package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/storage"
)

const maxMessageLength = 5000

type assignmentFinder interface {
	FindByID(ctx context.Context, id uint64) (*models.AssignmentRequest, error)
}

// Attachment is an uploaded file accompanying a message.
type Attachment struct {
	Filename string
	Data     []byte
}

// PostInput carries a human message.
type PostInput struct {
	AssignmentID uint64
	Actor        authz.Actor
	Text         string
	Attachment   *Attachment
}

// Service lists and appends assignment messages.
type Service interface {
	List(ctx context.Context, actor authz.Actor, assignmentID uint64) ([]models.AssignmentMessage, error)
	Post(ctx context.Context, input PostInput) (*models.AssignmentMessage, error)
	AppendSystem(ctx context.Context, tx *gorm.DB, assignmentID uint64, text string, at time.Time) error
}

type service struct {
	repo        Repository
	assignments assignmentFinder
	guard       *authz.Guard
	blobs       storage.Store
	now         func() time.Time
}

// NewService wires message dependencies. blobs may be nil when attachments are disabled.
func NewService(repo Repository, assignments assignmentFinder, guard *authz.Guard, blobs storage.Store) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("messages repository required")
	}
	if assignments == nil {
		return nil, fmt.Errorf("assignment finder required")
	}
	if guard == nil {
		return nil, fmt.Errorf("authorization guard required")
	}
	return &service{
		repo:        repo,
		assignments: assignments,
		guard:       guard,
		blobs:       blobs,
		now:         time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, assignmentID uint64) ([]models.AssignmentMessage, error) {
	if _, err := s.authorize(ctx, actor, assignmentID, authz.CapViewAssignment); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	return rows, nil
}

func (s *service) Post(ctx context.Context, input PostInput) (*models.AssignmentMessage, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" && input.Attachment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message text or attachment required")
	}
	if len(text) > maxMessageLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "message exceeds %d characters", maxMessageLength)
	}
	if input.Attachment != nil && s.blobs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "attachments are not available")
	}
	if _, err := s.authorize(ctx, input.Actor, input.AssignmentID, authz.CapPostMessage); err != nil {
		return nil, err
	}

	senderID := input.Actor.UserID
	msg := &models.AssignmentMessage{
		AssignmentID: input.AssignmentID,
		SenderID:     &senderID,
		Message:      text,
		MessageType:  enums.MessageTypeGeneral,
		CreatedAt:    s.now().UTC(),
	}
	if input.Attachment != nil {
		obj, err := s.blobs.Put(ctx, storage.KindAttachment, input.Attachment.Data, input.Attachment.Filename)
		if err != nil {
			if errors.Is(err, storage.ErrRejected) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store attachment")
		}
		filename := input.Attachment.Filename
		msg.Attachment = &obj.Ref
		msg.AttachmentFilename = &filename
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		if msg.Attachment != nil {
			_ = s.blobs.Delete(ctx, *msg.Attachment)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
	}
	return msg, nil
}

// AppendSystem writes a lifecycle notice inside the caller's transaction.
func (s *service) AppendSystem(ctx context.Context, tx *gorm.DB, assignmentID uint64, text string, at time.Time) error {
	msg := &models.AssignmentMessage{
		AssignmentID: assignmentID,
		Message:      text,
		MessageType:  enums.MessageTypeSystem,
		CreatedAt:    at.UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append system message")
	}
	return nil
}

func (s *service) authorize(ctx context.Context, actor authz.Actor, assignmentID uint64, capability authz.Capability) (*models.AssignmentRequest, error) {
	if assignmentID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	if err := s.guard.Require(actor, capability, authz.ForAssignment(*assignment)); err != nil {
		return nil, err
	}
	return assignment, nil
}
