package controllers

import (
	"net/http"

	"github.com/sumo1993/medconsult-liberia-sub003/api/middleware"
	"github.com/sumo1993/medconsult-liberia-sub003/api/responses"
	"github.com/sumo1993/medconsult-liberia-sub003/api/validators"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/pagination"
)

func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (authz.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return authz.Actor{}, false
	}
	return actor, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeInternal, "%s service unavailable", name))
}

func parseLimit(r *http.Request) (int, error) {
	return validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
}

// actorEndpoint produces the response payload for an authenticated caller.
type actorEndpoint func(r *http.Request, actor authz.Actor) (any, error)

// actorHandler authenticates the caller, runs fn and writes its result with
// status. ready is false when the backing service was not wired.
func actorHandler(logg *logger.Logger, name string, ready bool, status int, fn actorEndpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready {
			serviceUnavailable(w, r, logg, name)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		payload, err := fn(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, payload)
	}
}
