package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookly/internal/app/commands"
	"bookly/internal/app/identity"
	"bookly/internal/app/queries"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// Authorization rejects commands the authorizer refuses and tags the active span with the actor.
func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := authorize(ctx, a, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := authorize(ctx, a, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}

func authorize(ctx context.Context, a Authorizer, message any) error {
	if p, ok := message.(identity.Principal); ok {
		if actor := p.ActorIdentity(); actor.Authenticated() {
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("actor.id", actor.UserID))
		}
	}
	return a.Authorize(ctx, message)
}
