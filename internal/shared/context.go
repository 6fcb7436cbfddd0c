package shared

import "context"

type actorContextKey struct{}

type originContextKey struct{}

// Origin describes where a request came from. Both fields are optional.
type Origin struct {
	Address     string
	ClientAgent string
}

// ContextWithActor stores the authenticated user ID in context.
func ContextWithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, userID)
}

// ActorFromContext extracts the authenticated user ID from context.
func ActorFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorContextKey{}).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// ContextWithOrigin stores the request origin in context for handlers.
// Services never read it; handlers pass it on explicitly.
func ContextWithOrigin(ctx context.Context, origin Origin) context.Context {
	return context.WithValue(ctx, originContextKey{}, origin)
}

// OriginFromContext returns the request origin stored by the middleware.
func OriginFromContext(ctx context.Context) Origin {
	origin, _ := ctx.Value(originContextKey{}).(Origin)
	return origin
}
