package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/mailer"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/pagination"
)

// Notifier is the side-effect channel used after lifecycle changes commit.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Service defines notification list/read operations plus dispatch.
type Service interface {
	Notifier
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uint64) error
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
}

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type service struct {
	repo     Repository
	mail     mailSender
	opsEmail string
	now      func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID     uint64
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// Option tweaks the service at construction.
type Option func(*service)

// WithMailer enables e-mail delivery of ops-facing events to opsEmail.
func WithMailer(sender mailSender, opsEmail string) Option {
	return func(s *service) {
		s.mail = sender
		s.opsEmail = strings.TrimSpace(opsEmail)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires notifications dependencies.
func NewService(repo Repository, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	svc := &service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Notify records one in-app notification per recipient and, for ops-facing
// events, e-mails the operations mailbox. Callers treat failures as non-fatal.
func (s *service) Notify(ctx context.Context, event Event) error {
	if !event.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification type invalid")
	}
	now := s.now().UTC()
	recipients := event.recipients()
	rows := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		row := models.Notification{
			UserID:    userID,
			Type:      event.Type,
			Title:     event.Title,
			Message:   event.Message,
			Link:      event.link(),
			CreatedAt: now,
		}
		if event.AssignmentID != 0 {
			id := event.AssignmentID
			row.AssignmentID = &id
		}
		rows = append(rows, row)
	}
	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notifications")
	}

	if !event.NotifyOps || s.mail == nil || s.opsEmail == "" {
		return nil
	}
	msg := mailer.Message{
		To:      []string{s.opsEmail},
		Subject: event.Title,
		HTML:    renderEmail(event),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send notification email")
	}
	return nil
}

func renderEmail(event Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>%s</h3><p>%s</p>", html.EscapeString(event.Title), html.EscapeString(event.Message))
	if event.AssignmentID != 0 {
		fmt.Fprintf(&b, "<p>Assignment #%d</p>", event.AssignmentID)
	}
	return b.String()
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listNotificationsParams{
		UserID:     params.UserID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uint64) error {
	if userID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
