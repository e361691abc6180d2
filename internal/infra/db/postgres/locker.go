package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"time"

	"gorm.io/gorm"

	"bookly/internal/app/locking"
)

const defaultLockPoll = 25 * time.Millisecond

// Locker takes session-level advisory locks on a dedicated connection per key.
// A lock dies with its connection, so a crashed holder never needs a TTL to expire.
type Locker struct {
	db   *gorm.DB
	poll time.Duration
}

func NewLocker(db *gorm.DB) *Locker {
	return &Locker{db: db, poll: defaultLockPoll}
}

func (l *Locker) Lock(ctx context.Context, key locking.Key) (locking.Release, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, err
	}
	c, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	for {
		var ok bool
		err := c.QueryRowContext(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", string(key)).Scan(&ok)
		if err != nil {
			_ = c.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if ok {
			return l.releaser(c, key), nil
		}
		select {
		case <-ctx.Done():
			_ = c.Close()
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *Locker) releaser(c *sql.Conn, key locking.Key) locking.Release {
	var once sync.Once
	var err error
	return func(ctx context.Context) error {
		once.Do(func() {
			if _, err = c.ExecContext(ctx, "SELECT pg_advisory_unlock(hashtext($1))", string(key)); err != nil {
				// Discard the connection instead of pooling it with the lock still held.
				_ = c.Raw(func(any) error { return driver.ErrBadConn })
				return
			}
			err = c.Close()
		})
		return err
	}
}

var _ locking.Locker = (*Locker)(nil)
