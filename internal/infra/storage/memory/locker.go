package memory

import (
	"context"
	"sync"

	"bookly/internal/app/locking"
)

// Locker is an in-process keyed mutex. Waiters give up when their context ends.
type Locker struct {
	mu   sync.Mutex
	held map[locking.Key]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{held: make(map[locking.Key]chan struct{})}
}

func (l *Locker) Lock(ctx context.Context, key locking.Key) (locking.Release, error) {
	for {
		l.mu.Lock()
		wait, busy := l.held[key]
		if !busy {
			ch := make(chan struct{})
			l.held[key] = ch
			l.mu.Unlock()
			return l.releaser(key, ch), nil
		}
		l.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Locker) releaser(key locking.Key, ch chan struct{}) locking.Release {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			if l.held[key] == ch {
				delete(l.held, key)
			}
			l.mu.Unlock()
			close(ch)
		})
		return nil
	}
}

var _ locking.Locker = (*Locker)(nil)
