package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bookly/internal/app/commands"
	"bookly/internal/app/locking"
	"bookly/internal/app/notices"
	"bookly/internal/app/uow"
)

const defaultLockAttempts = 3

type IntervalLockOptions struct {
	// Wait bounds how long a command waits for its slot locks.
	Wait     time.Duration
	Attempts int
	Logger   *slog.Logger
}

// IntervalLock serializes commands implementing locking.Scoped per (resource, date).
// Keys are resolved from a read-only unit, acquired in sorted order and held until the
// rest of the chain, including commit, returns.
func IntervalLock(locker locking.Locker, factory uow.UoWFactory, opts IntervalLockOptions) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	if factory == nil {
		panic("middleware: uow factory required")
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = defaultLockAttempts
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			scoped, ok := cmd.(locking.Scoped)
			if !ok {
				return nextFn(ctx, cmd)
			}
			var lastErr error
			for attempt := 1; attempt <= attempts; attempt++ {
				keys, err := resolveScope(ctx, factory, scoped)
				if err != nil {
					return nil, err
				}
				res, err := runLocked(ctx, locker, opts.Wait, keys, func(lockedCtx context.Context) (any, error) {
					return nextFn(lockedCtx, cmd)
				})
				if !errors.Is(err, locking.ErrStaleScope) {
					return res, err
				}
				lastErr = err
				notices.Reset(ctx)
				if opts.Logger != nil {
					opts.Logger.Debug("lock scope changed, retrying", "command", cmd.Key(), "attempt", attempt, "error", err)
				}
			}
			return nil, lastErr
		})
	}
}

func resolveScope(ctx context.Context, factory uow.UoWFactory, scoped locking.Scoped) ([]locking.Key, error) {
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	readCtx := uow.Attach(ctx, unit)
	defer func() { _ = unit.Rollback(readCtx) }()
	keys, err := scoped.LockScope(readCtx, unit)
	if err != nil {
		return nil, err
	}
	return locking.Normalize(keys), nil
}

func runLocked(ctx context.Context, locker locking.Locker, wait time.Duration, keys []locking.Key, fn func(context.Context) (any, error)) (any, error) {
	releases := make([]locking.Release, 0, len(keys))
	defer func() {
		// Locks are released even when the request context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		for i := len(releases) - 1; i >= 0; i-- {
			_ = releases[i](releaseCtx)
		}
	}()
	for _, key := range keys {
		lockCtx, cancel := lockContext(ctx, wait)
		release, err := locker.Lock(lockCtx, key)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("%w: %s", locking.ErrLockTimeout, key)
			}
			return nil, err
		}
		releases = append(releases, release)
	}
	return fn(locking.WithHeld(ctx, keys))
}

func lockContext(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}
