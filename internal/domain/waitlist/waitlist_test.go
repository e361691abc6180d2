package waitlist

import (
	"errors"
	"testing"
	"time"

	"bookly/internal/domain/shared/timeslot"
)

var base = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func entry(t *testing.T, id EntryID, priority int, created time.Time, start, end string) *Entry {
	t.Helper()
	slot, err := timeslot.ParseSlot(start, end)
	if err != nil {
		t.Fatalf("ParseSlot: %v", err)
	}
	e, err := NewEntry(CreateParams{
		ID:         id,
		ResourceID: "room-a",
		UserID:     "u-" + string(id),
		Date:       timeslot.NewDate(2025, 6, 1),
		Slot:       slot,
		Priority:   priority,
		CreatedAt:  created,
	})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	return e
}

func TestRankOrdering(t *testing.T) {
	low := entry(t, "a", 0, base, "10:00", "11:00")
	highLate := entry(t, "b", 5, base.Add(time.Minute), "10:00", "11:00")
	highEarly := entry(t, "c", 5, base, "10:00", "11:00")

	entries := []*Entry{low, highLate, highEarly}
	SortByRank(entries)
	got := []EntryID{entries[0].ID, entries[1].ID, entries[2].ID}
	want := []EntryID{"c", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order = %v, want %v", got, want)
		}
	}
}

func TestFirstCandidate(t *testing.T) {
	date := timeslot.NewDate(2025, 6, 1)
	freed, _ := timeslot.ParseSlot("10:00", "11:00")

	tooLong := entry(t, "a", 9, base, "10:00", "12:00")
	inside := entry(t, "b", 1, base, "10:15", "10:45")
	exact := entry(t, "c", 1, base.Add(-time.Minute), "10:00", "11:00")
	removed := entry(t, "d", 10, base, "10:00", "11:00")
	_ = removed.Remove("u-d", base)

	got := FirstCandidate([]*Entry{tooLong, inside, exact, removed}, "room-a", date, freed)
	if got == nil || got.ID != "c" {
		t.Fatalf("expected entry c, got %+v", got)
	}
	if FirstCandidate([]*Entry{tooLong}, "room-a", date, freed) != nil {
		t.Fatal("entry wider than the freed slot must not be picked")
	}
	if FirstCandidate([]*Entry{exact}, "room-b", date, freed) != nil {
		t.Fatal("entry for another resource must not be picked")
	}
}

func TestPromoteAndRemove(t *testing.T) {
	e := entry(t, "a", 0, base, "10:00", "11:00")
	if err := e.Promote("b1", base); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if e.Status != StatusPromoted || e.BookingID != "b1" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if err := e.Promote("b2", base); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := e.Remove("admin", base); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	r := entry(t, "b", 0, base, "10:00", "11:00")
	if err := r.Remove("u-b", base); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Remove("u-b", base); err == nil || err.Error() != "waiting list entry is already removed" {
		t.Fatalf("unexpected error %v", err)
	}
}
