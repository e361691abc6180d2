package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"bookly/internal/app/policies"
	domainnotification "bookly/internal/domain/notification"
	"bookly/internal/infra/inbox"
)

// Consumer turns broker messages back into notifications and delivers each id once.
type Consumer struct {
	Inbox   inbox.Inbox
	Deliver policies.Notifier
	Logger  *slog.Logger
}

func (c Consumer) Handle(ctx context.Context, body []byte, headers map[string]string) error {
	var msg domainnotification.Notification
	if err := json.Unmarshal(body, &msg); err != nil {
		// A malformed message will never decode; drop it instead of redelivering.
		c.warn("notification dropped", "error", err)
		return nil
	}
	if err := msg.Validate(); err != nil {
		c.warn("notification dropped", "notification_id", msg.ID, "error", err)
		return nil
	}
	if c.Inbox != nil && msg.ID != "" {
		seen, err := c.Inbox.Seen(ctx, msg.ID)
		if err != nil {
			return fmt.Errorf("notify: inbox: %w", err)
		}
		if seen {
			return nil
		}
	}
	if c.Deliver == nil {
		return nil
	}
	return c.Deliver.Notify(ctx, msg)
}

func (c Consumer) warn(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Warn(msg, args...)
	}
}
