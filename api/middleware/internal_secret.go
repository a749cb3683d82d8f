package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/sumo1993/medconsult-liberia-sub003/api/responses"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

// SharedSecret guards internal endpoints called by external schedulers. An
// empty secret disables the routes entirely.
func SharedSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "not found"))
				return
			}
			presented := []byte(bearerToken(r))
			if subtle.ConstantTimeCompare(presented, expected) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid scheduler credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
