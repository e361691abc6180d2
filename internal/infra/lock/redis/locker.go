package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"bookly/internal/app/locking"
)

const (
	keyPrefix   = "bookly:lock:"
	defaultPoll = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry forward while the key still holds the caller's token.
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker takes slot locks with SET NX PX. Held locks are extended in the background,
// so the TTL only bounds how long a crashed holder blocks a slot.
type Locker struct {
	rdb  goredis.UniversalClient
	ttl  time.Duration
	poll time.Duration
}

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}

func NewLocker(rdb goredis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{rdb: rdb, ttl: ttl, poll: defaultPoll}
}

func (l *Locker) Lock(ctx context.Context, key locking.Key) (locking.Release, error) {
	token := uuid.NewString()
	redisKey := keyPrefix + string(key)
	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *Locker) releaser(redisKey, token string) locking.Release {
	stop := locking.KeepAlive(l.ttl, func(ctx context.Context) (bool, error) {
		n, err := extendScript.Run(ctx, l.rdb, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
		return n == 1, err
	})
	return func(ctx context.Context) error {
		stop()
		err := releaseScript.Run(ctx, l.rdb, []string{redisKey}, token).Err()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return err
	}
}

var _ locking.Locker = (*Locker)(nil)
