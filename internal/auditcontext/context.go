// Package auditcontext carries the acting identity through a request so
// audit writes deep in the stack can attribute the change.
package auditcontext

import "context"

type key string

var actorKey key = "audit_actor"

type actor struct {
	Type string
	ID   string
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey, actor{Type: actorType, ID: actorID})
}

// ActorFromContext returns the actor type and ID set on the context.
// ok=false means the request was never attributed.
func ActorFromContext(ctx context.Context) (string, string, bool) {
	a, ok := ctx.Value(actorKey).(actor)
	if !ok {
		return "", "", false
	}
	return a.Type, a.ID, true
}
