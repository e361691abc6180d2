package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookly/internal/app/commands"
	"bookly/internal/app/notices"
	"bookly/internal/app/policies"
)

// Notifications dispatches notifications queued by a command once it succeeded.
// Delivery is best effort: failures are logged and never change the command result.
func Notifications(notifier policies.Notifier, logger *slog.Logger) CommandMiddleware {
	if notifier == nil {
		panic("middleware: notifier required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			execCtx, collector := notices.WithCollector(ctx)
			res, err := nextFn(execCtx, cmd)
			if err != nil {
				collector.Drain()
				return nil, err
			}
			now := time.Now().UTC()
			for _, n := range collector.Drain() {
				if n.ID == "" {
					n.ID = uuid.NewString()
				}
				if n.CreatedAt.IsZero() {
					n.CreatedAt = now
				}
				if notifyErr := notifier.Notify(context.WithoutCancel(ctx), n); notifyErr != nil && logger != nil {
					logger.Warn("notification dispatch failed",
						"command", cmd.Key(),
						"type", n.Type,
						"user_id", n.UserID,
						"error", notifyErr,
					)
				}
			}
			return res, nil
		})
	}
}
