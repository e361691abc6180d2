package locking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"bookly/internal/domain/shared/timeslot"
)

func TestSlotKey(t *testing.T) {
	got := SlotKey("room-5", timeslot.NewDate(2025, 6, 1))
	if got != "slot:room-5:2025-06-01" {
		t.Fatalf("SlotKey = %q", got)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]Key{"b", "", "a", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Normalize = %v", got)
	}
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	if err := Require(ctx, "slot:x:2025-01-01"); err != nil {
		t.Fatalf("Require without scope must pass: %v", err)
	}
	ctx = WithHeld(ctx, []Key{"slot:a:2025-01-01"})
	if err := Require(ctx, "slot:a:2025-01-01"); err != nil {
		t.Fatalf("held key must pass: %v", err)
	}
	if err := Require(ctx, "slot:b:2025-01-01"); !errors.Is(err, ErrStaleScope) {
		t.Fatalf("expected ErrStaleScope, got %v", err)
	}
	if held := Held(ctx); len(held) != 1 || held[0] != "slot:a:2025-01-01" {
		t.Fatalf("Held = %v", held)
	}
}

func TestKeepAliveExtendsUntilStopped(t *testing.T) {
	var calls int32
	stop := KeepAlive(30*time.Millisecond, func(context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return true, nil
	})
	time.Sleep(100 * time.Millisecond)
	stop()
	stop()
	seen := atomic.LoadInt32(&calls)
	if seen < 2 {
		t.Fatalf("expected repeated extensions, got %d", seen)
	}
	time.Sleep(40 * time.Millisecond)
	if atomic.LoadInt32(&calls) != seen {
		t.Fatalf("extensions continued after stop")
	}
}

func TestKeepAliveStopsWhenLockLost(t *testing.T) {
	var calls int32
	stop := KeepAlive(15*time.Millisecond, func(context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, nil
	})
	defer stop()
	time.Sleep(60 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt after the lock was lost, got %d", n)
	}
}
