package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bookly/internal/app/commands"
	"bookly/internal/app/notices"
	"bookly/internal/domain/notification"
)

type failingNotifier struct {
	mu    sync.Mutex
	tried []notification.Notification
}

func (n *failingNotifier) Notify(_ context.Context, note notification.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tried = append(n.tried, note)
	return errors.New("smtp down")
}

type bookRoom struct {
	Fail bool
}

func (bookRoom) Key() string { return "test.book" }

func newBookBus(notifier *failingNotifier, stored *[]string) commands.Bus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookRoom, string](bus, bookRoom{}.Key(), commands.HandlerFunc[bookRoom, string](func(ctx context.Context, c bookRoom) (string, error) {
		notices.Emit(ctx,
			notification.Notification{UserID: "u-alice", Type: notification.TypeBookingPending},
			notification.Notification{UserID: "u-manager", Type: notification.TypeBookingPending},
		)
		if c.Fail {
			return "", errors.New("overlap")
		}
		*stored = append(*stored, "b-1")
		return "b-1", nil
	}))
	return ChainCommands(bus, Notifications(notifier, nil))
}

func TestNotificationFailureKeepsResult(t *testing.T) {
	notifier := &failingNotifier{}
	var stored []string
	bus := newBookBus(notifier, &stored)

	id, err := commands.Dispatch[bookRoom, string](context.Background(), bus, bookRoom{})
	if err != nil {
		t.Fatalf("notifier errors must not fail the command: %v", err)
	}
	if id != "b-1" || len(stored) != 1 {
		t.Fatalf("expected stored booking b-1, got %q stored=%v", id, stored)
	}
	if len(notifier.tried) != 2 {
		t.Fatalf("expected both notifications attempted, got %d", len(notifier.tried))
	}
	for _, n := range notifier.tried {
		if n.ID == "" || n.CreatedAt.IsZero() {
			t.Fatalf("notification not stamped: %+v", n)
		}
	}
}

func TestNotificationsDroppedOnFailure(t *testing.T) {
	notifier := &failingNotifier{}
	var stored []string
	bus := newBookBus(notifier, &stored)

	if _, err := commands.Dispatch[bookRoom, string](context.Background(), bus, bookRoom{Fail: true}); err == nil {
		t.Fatal("expected the command error")
	}
	if len(notifier.tried) != 0 || len(stored) != 0 {
		t.Fatalf("failed command must not notify, tried=%d stored=%v", len(notifier.tried), stored)
	}
}
