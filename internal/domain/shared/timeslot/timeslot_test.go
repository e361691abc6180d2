package timeslot

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		raw     string
		want    Clock
		wantErr bool
	}{
		{raw: "00:00", want: 0},
		{raw: "10:30", want: 630},
		{raw: "23:59", want: 1439},
		{raw: "24:00", want: EndOfDay},
		{raw: "24:01", wantErr: true},
		{raw: "9:00", wantErr: true},
		{raw: "09:60", wantErr: true},
		{raw: "ab:cd", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseClock(%q) expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseClock(%q) unexpected error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseClock(%q) = %d, want %d", tc.raw, got, tc.want)
		}
		if got.String() != tc.raw {
			t.Fatalf("String() = %q, want %q", got.String(), tc.raw)
		}
	}
}

func TestSlotOverlapIsHalfOpen(t *testing.T) {
	base := mustSlot(t, "10:00", "11:00")
	cases := []struct {
		name  string
		other Slot
		want  bool
	}{
		{"identical", mustSlot(t, "10:00", "11:00"), true},
		{"partial tail", mustSlot(t, "10:30", "11:30"), true},
		{"partial head", mustSlot(t, "09:30", "10:30"), true},
		{"contained", mustSlot(t, "10:15", "10:45"), true},
		{"containing", mustSlot(t, "09:00", "12:00"), true},
		{"back to back after", mustSlot(t, "11:00", "12:00"), false},
		{"back to back before", mustSlot(t, "09:00", "10:00"), false},
		{"disjoint", mustSlot(t, "13:00", "14:00"), false},
	}
	for _, tc := range cases {
		if got := base.Overlaps(tc.other); got != tc.want {
			t.Fatalf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
		if got := tc.other.Overlaps(base); got != tc.want {
			t.Fatalf("%s: overlap must be symmetric", tc.name)
		}
	}
}

func TestSlotValidation(t *testing.T) {
	if _, err := ParseSlot("11:00", "10:00"); err != ErrInvalidSlot {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
	if _, err := ParseSlot("10:00", "10:00"); err != ErrInvalidSlot {
		t.Fatalf("expected ErrInvalidSlot for empty slot, got %v", err)
	}
	if _, err := ParseSlot("24:00", "24:00"); err == nil {
		t.Fatalf("24:00 must not start a slot")
	}
	late := mustSlot(t, "23:00", "24:00")
	if late.Minutes() != 60 || late.String() != "23:00-24:00" {
		t.Fatalf("unexpected end-of-day slot %s", late)
	}
	s := mustSlot(t, "10:00", "11:30")
	if s.Hours() != 1.5 {
		t.Fatalf("Hours = %v, want 1.5", s.Hours())
	}
	if !mustSlot(t, "08:00", "18:00").Contains(s) {
		t.Fatalf("expected opening hours to contain slot")
	}
	if mustSlot(t, "10:30", "18:00").Contains(s) {
		t.Fatalf("slot starting before the window must not be contained")
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2025-06-01" {
		t.Fatalf("String = %q", d.String())
	}
	if _, err := ParseDate("01/06/2025"); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	next := d.AddDays(1)
	if !d.Before(next) || !next.After(d) || d.Compare(d) != 0 {
		t.Fatalf("unexpected ordering between %s and %s", d, next)
	}
	loc := time.FixedZone("UTC+10", 10*3600)
	late := time.Date(2025, 5, 31, 20, 0, 0, 0, time.UTC).In(loc)
	if got := DateOf(late); got != d {
		t.Fatalf("DateOf in location = %s, want %s", got, d)
	}
}

func mustSlot(t *testing.T, start, end string) Slot {
	t.Helper()
	s, err := ParseSlot(start, end)
	if err != nil {
		t.Fatalf("ParseSlot(%s, %s): %v", start, end, err)
	}
	return s
}
