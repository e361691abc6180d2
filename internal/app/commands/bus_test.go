package commands

import (
	"context"
	"errors"
	"testing"
)

type reserve struct{ Slot string }

func (reserve) Key() string { return "test.reserve" }

type release struct{}

func (release) Key() string { return "test.release" }

func TestDispatchTyped(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[reserve, string](bus, reserve{}.Key(), HandlerFunc[reserve, string](func(_ context.Context, cmd reserve) (string, error) {
		return "held " + cmd.Slot, nil
	}))

	got, err := Dispatch[reserve, string](context.Background(), bus, reserve{Slot: "10:00-11:00"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != "held 10:00-11:00" {
		t.Fatalf("unexpected result %q", got)
	}

	if _, err := Dispatch[reserve, int](context.Background(), bus, reserve{}); !errors.Is(err, ErrResultType) {
		t.Fatalf("expected ErrResultType, got %v", err)
	}
	if _, err := Dispatch[release, string](context.Background(), bus, release{}); !errors.Is(err, ErrHandlerNotFound) {
		t.Fatalf("expected ErrHandlerNotFound, got %v", err)
	}
	if _, err := Dispatch[reserve, string](context.Background(), nil, reserve{}); !errors.Is(err, ErrNilBus) {
		t.Fatalf("expected ErrNilBus, got %v", err)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[release, struct{}](func(context.Context, release) (struct{}, error) { return struct{}{}, nil })
	RegisterHandler[release, struct{}](bus, release{}.Key(), h)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on duplicate registration")
		}
	}()
	RegisterHandler[release, struct{}](bus, release{}.Key(), h)
}

func TestKeysSorted(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[reserve, string](bus, "b.key", HandlerFunc[reserve, string](func(context.Context, reserve) (string, error) { return "", nil }))
	RegisterHandler[reserve, string](bus, "a.key", HandlerFunc[reserve, string](func(context.Context, reserve) (string, error) { return "", nil }))
	keys := bus.Keys()
	if len(keys) != 2 || keys[0] != "a.key" || keys[1] != "b.key" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestMismatchedCommandType(t *testing.T) {
	bus := NewInMemoryBus()
	// A reserve handler registered under the release key.
	RegisterHandler[reserve, string](bus, release{}.Key(), HandlerFunc[reserve, string](func(context.Context, reserve) (string, error) { return "", nil }))
	if _, err := bus.Dispatch(context.Background(), release{}); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
}
