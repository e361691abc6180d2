package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"bookly/internal/app/policies"
	domainnotification "bookly/internal/domain/notification"
)

// Publisher matches the broker producers (Kafka and RabbitMQ).
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// StoreNotifier keeps notifications for the in-app inbox.
type StoreNotifier struct {
	Repo domainnotification.Repository
}

func (n StoreNotifier) Notify(ctx context.Context, msg domainnotification.Notification) error {
	if n.Repo == nil {
		return errors.New("notify: repository required")
	}
	return n.Repo.Save(ctx, msg)
}

// BrokerNotifier publishes notifications for out-of-process delivery, keyed by recipient.
type BrokerNotifier struct {
	Publisher Publisher
	Topic     string
}

func (n BrokerNotifier) Notify(ctx context.Context, msg domainnotification.Notification) error {
	if n.Publisher == nil {
		return errors.New("notify: publisher required")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	headers := map[string]string{
		"content-type":      "application/json",
		"notification-id":   msg.ID,
		"notification-type": string(msg.Type),
	}
	if err := n.Publisher.Publish(ctx, n.Topic, msg.UserID, payload, headers); err != nil {
		return fmt.Errorf("notify: publish %s: %w", msg.ID, err)
	}
	return nil
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []policies.Notifier

func (f Fanout) Notify(ctx context.Context, msg domainnotification.Notification) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier is the console deliverer used by the notifier process.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, msg domainnotification.Notification) error {
	if n.Logger == nil {
		return nil
	}
	n.Logger.Info("notification delivered",
		"notification_id", msg.ID,
		"user_id", msg.UserID,
		"type", msg.Type,
		"title", msg.Title,
		"message", msg.Message,
	)
	return nil
}

var (
	_ policies.Notifier = StoreNotifier{}
	_ policies.Notifier = BrokerNotifier{}
	_ policies.Notifier = Fanout{}
	_ policies.Notifier = LogNotifier{}
)
