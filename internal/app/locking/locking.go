package locking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"bookly/internal/app/uow"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
)

var (
	ErrLockTimeout = errors.New("locking: timed out waiting for slot lock")
	// ErrStaleScope means a handler needs a key the lock middleware did not acquire.
	ErrStaleScope = errors.New("locking: lock scope changed while waiting")
)

// Key identifies the serialization domain of check-then-act booking operations.
type Key string

// SlotKey is the key for one resource on one calendar date.
func SlotKey(resourceID domainresource.ID, date timeslot.Date) Key {
	return Key(fmt.Sprintf("slot:%s:%s", resourceID, date))
}

// Release gives a held lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

type Locker interface {
	Lock(ctx context.Context, key Key) (Release, error)
}

// Scoped is implemented by commands that must run under slot locks.
// LockScope resolves the keys from the current store state.
type Scoped interface {
	LockScope(ctx context.Context, unit uow.UnitOfWork) ([]Key, error)
}

// Normalize sorts and de-duplicates keys so every caller acquires them in the same order.
func Normalize(keys []Key) []Key {
	out := make([]Key, 0, len(keys))
	seen := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type heldKey struct{}

type heldSet map[Key]struct{}

// WithHeld marks keys as held by the current command.
func WithHeld(ctx context.Context, keys []Key) context.Context {
	set := make(heldSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return context.WithValue(ctx, heldKey{}, set)
}

// Require fails with ErrStaleScope when the command runs under a lock scope that lacks key.
// Outside of the lock middleware it is a no-op.
func Require(ctx context.Context, keys ...Key) error {
	set, ok := ctx.Value(heldKey{}).(heldSet)
	if !ok {
		return nil
	}
	for _, k := range keys {
		if _, held := set[k]; !held {
			return fmt.Errorf("%w: %s", ErrStaleScope, k)
		}
	}
	return nil
}

// Held lists the keys held for the current command.
func Held(ctx context.Context) []Key {
	set, ok := ctx.Value(heldKey{}).(heldSet)
	if !ok {
		return nil
	}
	out := make([]Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return Normalize(out)
}

// KeepAlive calls extend every ttl/3 until stop is called or extend reports the lock
// is no longer held. Failed extensions are retried on the next tick.
func KeepAlive(ttl time.Duration, extend func(ctx context.Context) (bool, error)) (stop func()) {
	interval := ttl / 3
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				callCtx, callCancel := context.WithTimeout(ctx, interval)
				held, err := extend(callCtx)
				callCancel()
				if err == nil && !held {
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
