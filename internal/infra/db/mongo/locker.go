package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"bookly/internal/app/locking"
)

const defaultLockPoll = 25 * time.Millisecond

// Locker implements advisory locks as documents keyed by the lock key. A TTL index on
// expires_at removes locks of crashed holders; expired documents are also taken over on acquire.
type Locker struct {
	col  *mongo.Collection
	ttl  time.Duration
	poll time.Duration
}

func NewLocker(db *mongo.Database, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{col: db.Collection(colLocks), ttl: ttl, poll: defaultLockPoll}
}

type lockDocument struct {
	Key       string    `bson:"_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func (l *Locker) Lock(ctx context.Context, key locking.Key) (locking.Release, error) {
	token := uuid.NewString()
	for {
		ok, err := l.tryAcquire(ctx, key, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if ok {
			return l.releaser(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *Locker) tryAcquire(ctx context.Context, key locking.Key, token string) (bool, error) {
	now := time.Now().UTC()
	doc := lockDocument{Key: string(key), Token: token, ExpiresAt: now.Add(l.ttl)}
	_, err := l.col.InsertOne(ctx, doc)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, err
	}
	res, err := l.col.UpdateOne(ctx,
		bson.M{"_id": string(key), "expires_at": bson.M{"$lt": now}},
		bson.M{"$set": bson.M{"token": token, "expires_at": doc.ExpiresAt}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (l *Locker) releaser(key locking.Key, token string) locking.Release {
	stop := locking.KeepAlive(l.ttl, func(ctx context.Context) (bool, error) {
		res, err := l.col.UpdateOne(ctx,
			bson.M{"_id": string(key), "token": token},
			bson.M{"$set": bson.M{"expires_at": time.Now().UTC().Add(l.ttl)}},
		)
		if err != nil {
			return true, err
		}
		return res.MatchedCount == 1, nil
	})
	return func(ctx context.Context) error {
		stop()
		_, err := l.col.DeleteOne(ctx, bson.M{"_id": string(key), "token": token})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	}
}

var _ locking.Locker = (*Locker)(nil)
