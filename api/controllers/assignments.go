package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sumo1993/medconsult-liberia-sub003/api/responses"
	"github.com/sumo1993/medconsult-liberia-sub003/api/validators"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/assignments"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

type createAssignmentRequest struct {
	Title          string           `json:"title" validate:"required,notblank,max=255"`
	Description    string           `json:"description" validate:"required,notblank"`
	Deadline       *time.Time       `json:"deadline"`
	ConsultantID   *uint64          `json:"consultant_id" validate:"omitempty,gt=0"`
	ProposedBudget *decimal.Decimal `json:"proposed_budget" validate:"omitempty,money"`
}

type transitionRequest struct {
	Price         *decimal.Decimal `json:"price" validate:"omitempty,money"`
	Notes         *string          `json:"notes"`
	Reason        *string          `json:"reason"`
	PaymentMethod *string          `json:"payment_method"`
	Decision      string           `json:"decision" validate:"omitempty,oneof=accept reject"`
}

// CreateAssignment opens a new consultation request for the calling client.
func CreateAssignment(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req createAssignmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), assignments.CreateInput{
			Actor:          actor,
			Title:          validators.SanitizeString(req.Title, 255),
			Description:    strings.TrimSpace(req.Description),
			Deadline:       req.Deadline,
			ConsultantID:   req.ConsultantID,
			ProposedBudget: req.ProposedBudget,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListAssignments returns the assignments visible to the caller.
func ListAssignments(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		limit, err := parseLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.ParseQueryID(r, "clientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		consultantID, err := validators.ParseQueryID(r, "consultantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), assignments.ListParams{
			Actor:        actor,
			ClientID:     clientID,
			ConsultantID: consultantID,
			Status:       strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:        limit,
			Cursor:       strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetAssignment returns one assignment when the caller may view it.
func GetAssignment(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParsePathID(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

// TransitionAssignment applies a lifecycle action. File-bearing actions are
// sent as multipart forms with the blob in the "file" field; the rest accept
// an optional JSON body.
func TransitionAssignment(svc assignments.Service, maxUpload int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParsePathID(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseAssignmentAction(chi.URLParam(r, "action"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown action"))
			return
		}

		var payload assignments.Payload
		if validators.IsMultipart(r) {
			payload, err = multipartPayload(w, r, maxUpload)
		} else {
			payload, err = jsonPayload(r)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithAssignmentID(r.Context(), id)
			r = r.WithContext(logg.WithField(ctx, "action", string(action)))
		}
		updated, err := svc.Transition(r.Context(), assignments.TransitionInput{
			AssignmentID: id,
			Action:       action,
			Actor:        actor,
			Payload:      payload,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func jsonPayload(r *http.Request) (assignments.Payload, error) {
	var req transitionRequest
	if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
		return assignments.Payload{}, err
	}
	return assignments.Payload{
		Price:         req.Price,
		Notes:         req.Notes,
		Reason:        req.Reason,
		PaymentMethod: req.PaymentMethod,
		Decision:      enums.ReviewDecision(strings.ToLower(req.Decision)),
	}, nil
}

func multipartPayload(w http.ResponseWriter, r *http.Request, maxUpload int64) (assignments.Payload, error) {
	if err := validators.ParseMultipart(w, r, maxUpload); err != nil {
		return assignments.Payload{}, err
	}
	payload := assignments.Payload{
		Notes:         validators.FormString(r, "notes"),
		Reason:        validators.FormString(r, "reason"),
		PaymentMethod: validators.FormString(r, "payment_method"),
	}
	if decision := validators.FormString(r, "decision"); decision != nil {
		payload.Decision = enums.ReviewDecision(strings.ToLower(*decision))
	}
	if raw := validators.FormString(r, "price"); raw != nil && *raw != "" {
		price, err := decimal.NewFromString(*raw)
		if err != nil {
			return assignments.Payload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a decimal amount")
		}
		payload.Price = &price
	}
	upload, err := validators.FormFile(r, "file", maxUpload)
	if err != nil {
		return assignments.Payload{}, err
	}
	if upload != nil {
		payload.File = &assignments.FileUpload{Filename: upload.Filename, Data: upload.Data}
	}
	return payload, nil
}

// DownloadAssignmentFile streams a receipt, work or final file.
func DownloadAssignmentFile(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "assignments")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParsePathID(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind := assignments.FileKind(strings.ToLower(chi.URLParam(r, "kind")))
		file, err := svc.OpenFile(r.Context(), actor, id, kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		name := file.Filename
		if name == "" {
			name = fmt.Sprintf("assignment-%d-%s", id, kind)
		}
		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(file.Data)
	}
}
