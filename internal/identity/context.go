package identity

import (
	"context"

	"backoffice-chat/internal/domain/actor"
)

type ctxKey string

const actorCtxKey ctxKey = "actor"

// WithActor stores the resolved actor in the request context.
func WithActor(ctx context.Context, a actor.Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, a)
}

// ActorFromContext returns the actor the auth middleware resolved.
func ActorFromContext(ctx context.Context) (actor.Actor, bool) {
	a, ok := ctx.Value(actorCtxKey).(actor.Actor)
	return a, ok
}
