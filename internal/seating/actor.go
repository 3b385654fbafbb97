package seating

import "context"

// Actor identifies the operator on whose behalf an engine call runs.  It
// is only used for audit logging and event attribution.
type Actor struct {
	UserID uint64
	Role   string
}

type actorKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored in ctx, or the zero Actor.
func ActorFrom(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}
