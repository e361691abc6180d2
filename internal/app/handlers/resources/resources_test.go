package resources

import (
	"testing"

	"bookly/internal/domain/shared/timeslot"
)

func slot(t *testing.T, start, end string) timeslot.Slot {
	t.Helper()
	s, err := timeslot.ParseSlot(start, end)
	if err != nil {
		t.Fatalf("ParseSlot(%s, %s): %v", start, end, err)
	}
	return s
}

func TestFreeWindows(t *testing.T) {
	window := slot(t, "08:00", "18:00")
	taken := []timeslot.Slot{
		slot(t, "07:00", "08:30"),
		slot(t, "10:00", "11:00"),
		slot(t, "11:00", "12:00"),
		slot(t, "11:30", "12:30"),
		slot(t, "17:00", "19:00"),
	}
	got := FreeWindows(window, taken)
	want := []string{"08:30-10:00", "12:30-17:00"}
	if len(got) != len(want) {
		t.Fatalf("FreeWindows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("FreeWindows[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if all := FreeWindows(window, nil); len(all) != 1 || all[0] != window {
		t.Fatalf("empty day should be fully free, got %v", all)
	}
}
