package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookly/internal/app/middleware"
	domainnotification "bookly/internal/domain/notification"
)

// IdempotencyStore keeps results in idempotency_keys with a per-row expiry.
type IdempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{db: db, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var m idempotencyModel
	err := s.db.WithContext(ctx).
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key, time.Now().UTC()).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return m.toRecord(), true, nil
}

// Save upserts the record and drops rows that have already expired.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	m := newIdempotencyModel(rec, s.ttl)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expires_at <= ?", time.Now().UTC()).Delete(&idempotencyModel{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
	})
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Save ignores duplicates so a redelivered message is stored once.
func (r *NotificationRepository) Save(ctx context.Context, n domainnotification.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}
	m := notificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Payload:   payload,
		CreatedAt: n.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domainnotification.Notification, error) {
	db := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	var rows []notificationModel
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domainnotification.Notification, 0, len(rows))
	for _, m := range rows {
		n := domainnotification.Notification{
			ID:        m.ID,
			UserID:    m.UserID,
			Type:      domainnotification.Type(m.Type),
			Title:     m.Title,
			Message:   m.Message,
			CreatedAt: m.CreatedAt.UTC(),
		}
		if len(m.Payload) > 0 {
			if err := json.Unmarshal(m.Payload, &n.Payload); err != nil {
				return nil, err
			}
		}
		out = append(out, n)
	}
	return out, nil
}

var (
	_ middleware.IdempotencyStore   = (*IdempotencyStore)(nil)
	_ domainnotification.Repository = (*NotificationRepository)(nil)
)
