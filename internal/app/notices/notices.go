package notices

import (
	"context"
	"sync"

	"bookly/internal/domain/notification"
)

// Collector buffers notifications produced while a command runs.
type Collector struct {
	mu    sync.Mutex
	items []notification.Notification
}

type ctxKey struct{}

func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, ctxKey{}, c), c
}

func FromContext(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Collector)
	return c, ok
}

// Emit queues notifications on the collector in ctx. It reports false when there is none.
func Emit(ctx context.Context, ns ...notification.Notification) bool {
	c, ok := FromContext(ctx)
	if !ok {
		return false
	}
	c.mu.Lock()
	c.items = append(c.items, ns...)
	c.mu.Unlock()
	return true
}

// Reset drops queued notifications from ctx, used before a command is retried.
func Reset(ctx context.Context) {
	if c, ok := FromContext(ctx); ok {
		c.mu.Lock()
		c.items = nil
		c.mu.Unlock()
	}
}

func (c *Collector) Drain() []notification.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.items
	c.items = nil
	return out
}
