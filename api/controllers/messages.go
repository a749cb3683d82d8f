package controllers

import (
	"net/http"

	"github.com/sumo1993/medconsult-liberia-sub003/api/responses"
	"github.com/sumo1993/medconsult-liberia-sub003/api/validators"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/messages"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

type postMessageRequest struct {
	Text string `json:"text" validate:"required,notblank,max=5000"`
}

// ListMessages returns the conversation of one assignment.
func ListMessages(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "messages")
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

		items, err := svc.List(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// PostMessage appends a message, optionally with an attachment sent as a
// multipart "attachment" field.
func PostMessage(svc messages.Service, maxUpload int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "messages")
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

		input := messages.PostInput{AssignmentID: id, Actor: actor}
		if validators.IsMultipart(r) {
			if err := validators.ParseMultipart(w, r, maxUpload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if text := validators.FormString(r, "text"); text != nil {
				input.Text = *text
			}
			upload, err := validators.FormFile(r, "attachment", maxUpload)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if upload != nil {
				input.Attachment = &messages.Attachment{Filename: upload.Filename, Data: upload.Data}
			}
		} else {
			var req postMessageRequest
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Text = req.Text
		}

		msg, err := svc.Post(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}
