package middleware

import (
	"context"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

// UserIDFromContext returns the authenticated user id, or 0.
func UserIDFromContext(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxUserID).(uint64); ok {
		return v
	}
	return 0
}

// RoleFromContext returns the authenticated role, or "".
func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

// ActorFromContext builds the authorization actor for the request. The
// second value is false when the request is unauthenticated.
func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	actor := authz.Actor{UserID: UserIDFromContext(ctx), Role: RoleFromContext(ctx)}
	return actor, actor.UserID != 0 && actor.Role != ""
}

// WithActor injects the caller identity, as the auth middleware does.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, actor.UserID)
	return context.WithValue(ctx, ctxRole, actor.Role)
}
