package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainnotification "bookly/internal/domain/notification"
)

type NotificationRepository struct {
	col *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{col: db.Collection(colNotifications)}
}

// Save is keyed by notification id so a redelivered message is stored once.
func (r *NotificationRepository) Save(ctx context.Context, n domainnotification.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	_, err := r.col.UpdateByID(ctx, n.ID, bson.M{"$setOnInsert": notificationDocument(n)}, options.Update().SetUpsert(true))
	return err
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domainnotification.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainnotification.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, domainnotification.Notification{
			ID:        d.ID,
			UserID:    d.UserID,
			Type:      domainnotification.Type(d.Type),
			Title:     d.Title,
			Message:   d.Message,
			Payload:   d.Payload,
			CreatedAt: d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

type notificationDoc struct {
	ID        string         `bson:"_id"`
	UserID    string         `bson:"user_id"`
	Type      string         `bson:"type"`
	Title     string         `bson:"title"`
	Message   string         `bson:"message"`
	Payload   map[string]any `bson:"payload,omitempty"`
	CreatedAt time.Time      `bson:"created_at"`
}

func notificationDocument(n domainnotification.Notification) notificationDoc {
	return notificationDoc{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt.UTC(),
	}
}

var _ domainnotification.Repository = (*NotificationRepository)(nil)
