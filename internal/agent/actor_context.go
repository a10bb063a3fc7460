package agent

import (
	"context"

	"github.com/haasonsaas/nexus/pkg/ids"
)

type actorContextKey struct{}

// ContextWithActor returns a context carrying the actor ID a tool call is
// being dispatched on behalf of. The tool processor sets this before every
// Tool.Execute so tools can recover which actor invoked them without the
// signature growing a parameter every tool implementation has to thread.
func ContextWithActor(ctx context.Context, actorID ids.ActorID) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorIDFromContext returns the actor ID stored on ctx by ContextWithActor,
// or the zero ActorID if none was set.
func ActorIDFromContext(ctx context.Context) ids.ActorID {
	actorID, _ := ctx.Value(actorContextKey{}).(ids.ActorID)
	return actorID
}
