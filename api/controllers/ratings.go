package controllers

import (
	"net/http"

	"github.com/sumo1993/medconsult-liberia-sub003/api/responses"
	"github.com/sumo1993/medconsult-liberia-sub003/api/validators"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/ratings"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

type recordRatingRequest struct {
	Rating int     `json:"rating"`
	Review *string `json:"review"`
}

// RecordRating stores the client's rating of a completed assignment and
// returns the consultant's refreshed aggregate.
func RecordRating(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "ratings")
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

		var req recordRatingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.RecordRating(r.Context(), ratings.RecordInput{
			AssignmentID: id,
			Actor:        actor,
			Rating:       req.Rating,
			Review:       req.Review,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// GetConsultantRating returns a consultant's rating aggregate.
func GetConsultantRating(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "ratings")
			return
		}
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}
		id, err := validators.ParsePathID(r, "consultantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.GetConsultantRating(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
