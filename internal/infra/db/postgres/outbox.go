package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "bookly/internal/app/outbox"
	infraoutbox "bookly/internal/infra/outbox"
)

// OutboxStore writes events in the command transaction and serves them to the relay worker.
type OutboxStore struct {
	db *gorm.DB
}

func NewOutboxStore(db *gorm.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	doc := infraoutbox.NewEventDocument(record, time.Now().UTC())
	headers, err := json.Marshal(doc.Headers)
	if err != nil {
		return err
	}
	m := outboxModel{
		ID:          doc.ID,
		Name:        doc.Name,
		Payload:     doc.Payload,
		OccurredAt:  doc.OccurredAt,
		Aggregate:   doc.Aggregate,
		Headers:     headers,
		State:       doc.State,
		NextAttempt: doc.NextAttempt,
		CreatedAt:   doc.CreatedAt,
	}
	return conn(ctx, s.db).Create(&m).Error
}

// Claim takes the oldest claimable record; SKIP LOCKED lets several workers poll in parallel.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	var claimed *infraoutbox.EventDocument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var m outboxModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("(state IN ? AND next_attempt <= ?) OR (state = ? AND claimed_at < ?)",
				[]string{infraoutbox.StateNew, infraoutbox.StateFailed}, now,
				infraoutbox.StateClaimed, now.Add(-infraoutbox.ClaimTimeout)).
			Order("created_at").
			Take(&m).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		m.State = infraoutbox.StateClaimed
		m.ClaimedBy = workerID
		m.ClaimedAt = now
		if err := tx.Model(&outboxModel{}).Where("id = ?", m.ID).Updates(map[string]any{
			"state":      m.State,
			"claimed_by": workerID,
			"claimed_at": now,
		}).Error; err != nil {
			return err
		}
		doc, err := m.toDocument()
		if err != nil {
			return err
		}
		claimed = doc
		return nil
	})
	return claimed, err
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).Updates(map[string]any{
		"state":   infraoutbox.StateSent,
		"sent_at": time.Now().UTC(),
	}).Error
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return s.db.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).Updates(map[string]any{
		"state":        infraoutbox.StateFailed,
		"next_attempt": next,
		"last_error":   errMsg,
		"attempts":     gorm.Expr("attempts + 1"),
	}).Error
}

func (m outboxModel) toDocument() (*infraoutbox.EventDocument, error) {
	headers := map[string]string{}
	if len(m.Headers) > 0 {
		if err := json.Unmarshal(m.Headers, &headers); err != nil {
			return nil, err
		}
	}
	return &infraoutbox.EventDocument{
		ID:          m.ID,
		Name:        m.Name,
		Payload:     m.Payload,
		OccurredAt:  m.OccurredAt.UTC(),
		Aggregate:   m.Aggregate,
		Headers:     headers,
		State:       m.State,
		Attempts:    m.Attempts,
		NextAttempt: m.NextAttempt.UTC(),
		ClaimedBy:   m.ClaimedBy,
		ClaimedAt:   m.ClaimedAt.UTC(),
		CreatedAt:   m.CreatedAt.UTC(),
		SentAt:      m.SentAt.UTC(),
		LastError:   m.LastError,
	}, nil
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
