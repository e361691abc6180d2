package memory

import (
	"context"
	"sort"
	"sync"

	domainnotification "bookly/internal/domain/notification"
)

// NotificationRepository keeps delivered in-app notifications per recipient.
type NotificationRepository struct {
	mu     sync.RWMutex
	byUser map[string][]domainnotification.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{byUser: make(map[string][]domainnotification.Notification)}
}

func (r *NotificationRepository) Save(ctx context.Context, n domainnotification.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[n.UserID] = append(r.byUser[n.UserID], n)
	return nil
}

// ListByUser returns the newest notifications first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domainnotification.Notification, error) {
	r.mu.RLock()
	items := append([]domainnotification.Notification(nil), r.byUser[userID]...)
	r.mu.RUnlock()
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var _ domainnotification.Repository = (*NotificationRepository)(nil)
