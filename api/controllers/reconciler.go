package controllers

import (
	"net/http"
	"time"

	"github.com/sumo1993/medconsult-liberia-sub003/api/responses"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/reconciler"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

// SweepTimeouts runs one auto-cancel pass on behalf of an external scheduler.
// Rows cancelled before a failure are reported in the error details.
func SweepTimeouts(svc reconciler.Service, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reconciler")
			return
		}

		cancelled, err := svc.SweepTimeouts(r.Context(), now().UTC())
		if cancelled == nil {
			cancelled = []uint64{}
		}
		if err != nil {
			typed := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "timeout sweep incomplete").
				WithDetails(map[string]any{"cancelled": cancelled})
			responses.WriteError(r.Context(), logg, w, typed)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"cancelled": cancelled,
			"count":     len(cancelled),
		})
	}
}

// SweepReminders runs one deadline reminder pass.
func SweepReminders(svc reconciler.Service, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reconciler")
			return
		}

		result, err := svc.SweepReminders(r.Context(), now().UTC())
		if err != nil {
			typed := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reminder sweep incomplete")
			if result != nil {
				typed = typed.WithDetails(result)
			}
			responses.WriteError(r.Context(), logg, w, typed)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
