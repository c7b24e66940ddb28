package shared

import "context"

// SystemActor is recorded when no authenticated actor is present, e.g. background jobs.
const SystemActor = "system"

type actorContextKey struct{}

// ContextWithActor stores the authenticated actor (token subject) in context.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor, falling back to SystemActor.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	if actor == "" {
		return SystemActor
	}
	return actor
}
