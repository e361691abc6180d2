package queries

import (
	"context"
	"errors"
	"testing"
)

type schedule struct{ Date string }

func (schedule) Key() string { return "test.schedule" }

func TestAsk(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[schedule, []string](bus, schedule{}.Key(), HandlerFunc[schedule, []string](func(_ context.Context, q schedule) ([]string, error) {
		return []string{q.Date}, nil
	}))

	got, err := Ask[schedule, []string](context.Background(), bus, schedule{Date: "2025-06-01"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(got) != 1 || got[0] != "2025-06-01" {
		t.Fatalf("unexpected result %v", got)
	}
	if _, err := Ask[schedule, string](context.Background(), bus, schedule{}); !errors.Is(err, ErrResultType) {
		t.Fatalf("expected ErrResultType, got %v", err)
	}
	if keys := bus.Keys(); len(keys) != 1 || keys[0] != "test.schedule" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestAskUnknown(t *testing.T) {
	_, err := NewInMemoryBus().Ask(context.Background(), schedule{})
	if !errors.Is(err, ErrHandlerNotFound) {
		t.Fatalf("expected ErrHandlerNotFound, got %v", err)
	}
}
