package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookly/internal/app/middleware"
)

const colIdempotency = "app_idempotency"

// IdempotencyStore keeps one document per key. Each document carries its own
// expires_at, which a TTL index with zero delay uses to remove it.
type IdempotencyStore struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewIdempotencyStore(db *mongo.Database, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	col := db.Collection(colIdempotency)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return &IdempotencyStore{col: col, ttl: ttl}
}

type resultDocument struct {
	Key         string    `bson:"_id"`
	Command     string    `bson:"command"`
	Fingerprint string    `bson:"fingerprint,omitempty"`
	Payload     []byte    `bson:"payload,omitempty"`
	OccurredAt  time.Time `bson:"occurred_at"`
	ExpiresAt   time.Time `bson:"expires_at"`
}

// Get ignores documents past expiry that the TTL monitor has not removed yet.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var doc resultDocument
	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": time.Now().UTC()}}
	err := s.col.FindOne(ctx, filter).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return middleware.IdempotencyRecord{}, false, nil
	case err != nil:
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{
		Key:         doc.Key,
		Command:     doc.Command,
		Fingerprint: doc.Fingerprint,
		Payload:     doc.Payload,
		OccurredAt:  doc.OccurredAt.UTC(),
	}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	occurred := rec.OccurredAt.UTC()
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	doc := resultDocument{
		Key:         rec.Key,
		Command:     rec.Command,
		Fingerprint: rec.Fingerprint,
		Payload:     rec.Payload,
		OccurredAt:  occurred,
		ExpiresAt:   occurred.Add(s.ttl),
	}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	return err
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
