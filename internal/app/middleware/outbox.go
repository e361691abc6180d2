package middleware

import (
	"context"

	"bookly/internal/app/commands"
	"bookly/internal/app/outbox"
)

// OutboxWake nudges the relay after a successful command so staged events go out without
// waiting for the next poll. It must wrap the Transaction middleware.
func OutboxWake(relay outbox.Waker) CommandMiddleware {
	if relay == nil {
		panic("middleware: outbox relay required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err == nil {
				relay.Wake()
			}
			return res, err
		})
	}
}
