package utils

import (
	"context"
)

type contextKey string

const (
	ContextActorKey contextKey = "actor"
)

// Actor identifies who a write is attributed to.
type Actor struct {
	ID   string
	Role string
	// Defaulted is true when the caller sent no identity and the configured
	// system actor was substituted.
	Defaulted bool
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ContextActorKey, a)
}

func GetActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ContextActorKey).(Actor)
	return a, ok
}

// ActorID returns the actor id attached to ctx, or fallback when none is.
func ActorID(ctx context.Context, fallback string) string {
	if a, ok := GetActorFromContext(ctx); ok && a.ID != "" {
		return a.ID
	}
	return fallback
}
