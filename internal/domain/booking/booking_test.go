package booking

import (
	"errors"
	"testing"
	"time"

	"bookly/internal/domain/shared/timeslot"
)

var testNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newPending(t *testing.T, id BookingID, start, end string) *Booking {
	t.Helper()
	slot, err := timeslot.ParseSlot(start, end)
	if err != nil {
		t.Fatalf("ParseSlot: %v", err)
	}
	b, err := NewBooking(CreateParams{
		ID:         id,
		ResourceID: "room-a",
		UserID:     "u1",
		Date:       timeslot.NewDate(2025, 6, 2),
		Slot:       slot,
		CreatedAt:  testNow,
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	return b
}

func TestNewBookingStartsPending(t *testing.T) {
	b := newPending(t, "b1", "10:00", "11:30")
	if b.Status != StatusPending {
		t.Fatalf("status = %s, want pending", b.Status)
	}
	if b.Duration() != 1.5 {
		t.Fatalf("duration = %v, want 1.5", b.Duration())
	}
	evts := b.PendingEvents()
	if len(evts) != 1 || evts[0].EventName() != "booking.requested" {
		t.Fatalf("unexpected events: %+v", evts)
	}
}

func TestNewBookingRejectsInvertedSlot(t *testing.T) {
	_, err := NewBooking(CreateParams{
		ID:         "b1",
		ResourceID: "room-a",
		UserID:     "u1",
		Date:       timeslot.NewDate(2025, 6, 2),
		Slot:       timeslot.Slot{Start: 600, End: 600},
		CreatedAt:  testNow,
	})
	if !errors.Is(err, timeslot.ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestTransitions(t *testing.T) {
	cases := []struct {
		name  string
		steps []func(b *Booking) error
		final Status
		fail  bool
	}{
		{
			name:  "approve pending",
			steps: []func(*Booking) error{approve},
			final: StatusApproved,
		},
		{
			name:  "reject pending",
			steps: []func(*Booking) error{reject},
			final: StatusRejected,
		},
		{
			name:  "cancel pending",
			steps: []func(*Booking) error{cancel},
			final: StatusCancelled,
		},
		{
			name:  "cancel approved",
			steps: []func(*Booking) error{approve, cancel},
			final: StatusCancelled,
		},
		{
			name:  "approve twice",
			steps: []func(*Booking) error{approve, approve},
			final: StatusApproved,
			fail:  true,
		},
		{
			name:  "reject approved",
			steps: []func(*Booking) error{approve, reject},
			final: StatusApproved,
			fail:  true,
		},
		{
			name:  "cancel twice",
			steps: []func(*Booking) error{cancel, cancel},
			final: StatusCancelled,
			fail:  true,
		},
		{
			name:  "approve rejected",
			steps: []func(*Booking) error{reject, approve},
			final: StatusRejected,
			fail:  true,
		},
		{
			name:  "cancel rejected",
			steps: []func(*Booking) error{reject, cancel},
			final: StatusRejected,
			fail:  true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newPending(t, "b1", "10:00", "11:00")
			var err error
			for _, step := range tc.steps {
				if err = step(b); err != nil {
					break
				}
			}
			if tc.fail {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Status != tc.final {
				t.Fatalf("status = %s, want %s", b.Status, tc.final)
			}
		})
	}
}

func TestTransitionErrorMessage(t *testing.T) {
	b := newPending(t, "b1", "10:00", "11:00")
	_ = b.Approve("admin", testNow)
	err := b.Approve("admin", testNow)
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.Error() != "booking is already approved" {
		t.Fatalf("message = %q", te.Error())
	}
}

func TestOverlapQuery(t *testing.T) {
	existing := newPending(t, "b1", "10:00", "11:00")
	date := existing.Date

	cases := []struct {
		name       string
		start, end string
		want       bool
	}{
		{"inside", "10:15", "10:45", true},
		{"covering", "09:00", "12:00", true},
		{"overlap start", "09:30", "10:30", true},
		{"overlap end", "10:30", "11:30", true},
		{"identical", "10:00", "11:00", true},
		{"back to back after", "11:00", "12:00", false},
		{"back to back before", "09:00", "10:00", false},
		{"disjoint", "13:00", "14:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot, _ := timeslot.ParseSlot(tc.start, tc.end)
			q := OverlapQuery{ResourceID: "room-a", Date: date, Slot: slot}
			if got := AnyOverlap(q, []*Booking{existing}); got != tc.want {
				t.Fatalf("AnyOverlap = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOverlapIgnoresNonBlockingAndOtherScopes(t *testing.T) {
	slot, _ := timeslot.ParseSlot("10:00", "11:00")
	q := OverlapQuery{ResourceID: "room-a", Date: timeslot.NewDate(2025, 6, 2), Slot: slot}

	cancelled := newPending(t, "b1", "10:00", "11:00")
	_ = cancelled.Cancel("u1", "", testNow)
	rejected := newPending(t, "b2", "10:00", "11:00")
	_ = rejected.Reject("admin", "", testNow)
	otherResource := newPending(t, "b3", "10:00", "11:00")
	otherResource.ResourceID = "room-b"
	otherDay := newPending(t, "b4", "10:00", "11:00")
	otherDay.Date = otherDay.Date.AddDays(1)

	if AnyOverlap(q, []*Booking{cancelled, rejected, otherResource, otherDay}) {
		t.Fatal("non-blocking or out-of-scope bookings must not conflict")
	}

	self := newPending(t, "b5", "10:00", "11:00")
	q.Exclude = self.ID
	if AnyOverlap(q, []*Booking{self}) {
		t.Fatal("excluded booking must not conflict with itself")
	}
}

func TestReschedule(t *testing.T) {
	b := newPending(t, "b1", "10:00", "11:00")
	b.ClearEvents()
	slot, _ := timeslot.ParseSlot("12:00", "13:00")
	if err := b.Reschedule(b.Date, slot, testNow); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if b.Slot != slot {
		t.Fatalf("slot not updated: %v", b.Slot)
	}
	evts := b.PendingEvents()
	if len(evts) != 1 {
		t.Fatalf("expected one event, got %d", len(evts))
	}
	moved, ok := evts[0].(BookingRescheduled)
	if !ok || moved.PreviousSlot.String() != "10:00-11:00" {
		t.Fatalf("unexpected event %+v", evts[0])
	}

	_ = b.Cancel("u1", "", testNow)
	if err := b.Reschedule(b.Date, slot, testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for cancelled booking, got %v", err)
	}
}

func TestValidateDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2025, 6, 1, 22, 30, 0, 0, time.UTC) // already June 2 in loc
	if err := ValidateDate(timeslot.NewDate(2025, 6, 1), now, loc); !errors.Is(err, ErrDateInPast) {
		t.Fatalf("expected ErrDateInPast, got %v", err)
	}
	if err := ValidateDate(timeslot.NewDate(2025, 6, 2), now, loc); err != nil {
		t.Fatalf("today must be accepted: %v", err)
	}
}

func TestParseRecurrence(t *testing.T) {
	date := timeslot.NewDate(2025, 6, 2)
	if r, err := ParseRecurrence(false, "bogus", "", date); err != nil || r.Recurring {
		t.Fatalf("non-recurring input should be ignored: %+v %v", r, err)
	}
	if _, err := ParseRecurrence(true, "yearly", "", date); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("expected ErrInvalidRecurrence, got %v", err)
	}
	if _, err := ParseRecurrence(true, "weekly", "2025-06-01", date); !errors.Is(err, ErrRecurrenceEnd) {
		t.Fatalf("expected ErrRecurrenceEnd, got %v", err)
	}
	r, err := ParseRecurrence(true, "Weekly", "2025-07-01", date)
	if err != nil {
		t.Fatalf("ParseRecurrence: %v", err)
	}
	if r.Pattern != PatternWeekly || r.Until.String() != "2025-07-01" {
		t.Fatalf("unexpected recurrence %+v", r)
	}
}

func approve(b *Booking) error { return b.Approve("admin", testNow) }
func reject(b *Booking) error  { return b.Reject("admin", "", testNow) }
func cancel(b *Booking) error  { return b.Cancel("u1", "", testNow) }
