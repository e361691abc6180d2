package resource

import (
	"errors"
	"testing"
	"time"

	"bookly/internal/domain/shared/timeslot"
)

func TestNewValidatesInput(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	if _, err := New(CreateParams{ID: "r1", Category: CategoryRoom, Now: now}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if _, err := New(CreateParams{ID: "r1", Name: "Room", Category: "spaceship", Now: now}); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	r, err := New(CreateParams{ID: "r1", Name: " Room A ", Category: "ROOM", Capacity: 8, Now: now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Name != "Room A" || r.Category != CategoryRoom || r.Status != StatusAvailable {
		t.Fatalf("unexpected resource: %+v", r)
	}
}

func TestAccepts(t *testing.T) {
	hours, _ := timeslot.ParseSlot("08:00", "18:00")
	r := &Resource{ID: "r1", Status: StatusAvailable, OpeningHours: &hours}

	inside, _ := timeslot.ParseSlot("09:00", "10:00")
	if err := r.Accepts(inside); err != nil {
		t.Fatalf("expected slot inside opening hours to be accepted: %v", err)
	}
	edge, _ := timeslot.ParseSlot("17:00", "18:00")
	if err := r.Accepts(edge); err != nil {
		t.Fatalf("slot ending at closing time must be accepted: %v", err)
	}
	late, _ := timeslot.ParseSlot("17:30", "18:30")
	if err := r.Accepts(late); !errors.Is(err, ErrOutsideOpenedHours) {
		t.Fatalf("expected ErrOutsideOpenedHours, got %v", err)
	}

	r.Status = StatusBusy
	if err := r.Accepts(inside); err != nil {
		t.Fatalf("busy resources stay bookable: %v", err)
	}
	r.Status = StatusMaintenance
	if err := r.Accepts(inside); !errors.Is(err, ErrUnderMaintenance) {
		t.Fatalf("expected ErrUnderMaintenance, got %v", err)
	}
}

func TestWindowCoversWholeDay(t *testing.T) {
	r := &Resource{Status: StatusAvailable}
	w := r.Window()
	if w.String() != "00:00-24:00" {
		t.Fatalf("Window = %s", w)
	}
	late, err := timeslot.ParseSlot("23:00", "24:00")
	if err != nil {
		t.Fatalf("ParseSlot: %v", err)
	}
	if err := r.Accepts(late); err != nil || !w.Contains(late) {
		t.Fatalf("slot ending at midnight must be bookable, err=%v", err)
	}
}
