package policies

import (
	"context"

	"bookly/internal/domain/notification"
)

// Notifier hands a notification to whatever stores or delivers it.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification) error
}
