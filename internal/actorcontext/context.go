package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/ferrolab/certline/internal/workflow"
)

// Actor identifies the authenticated caller for the current request.
type Actor struct {
	ID   snowflake.ID
	Name string
	Role workflow.Role
}

type actorContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext returns the actor from context, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.Role == "" {
		return Actor{}, false
	}
	return actor, true
}

// ParseActorID parses a caller-supplied actor ID string.
func ParseActorID(raw string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
