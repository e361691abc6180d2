package notices

import (
	"context"
	"testing"
	"time"

	domainbooking "bookly/internal/domain/booking"
	"bookly/internal/domain/notification"
	"bookly/internal/domain/shared/timeslot"
)

func TestCollector(t *testing.T) {
	if Emit(context.Background(), notification.Notification{UserID: "u1"}) {
		t.Fatal("Emit without collector must report false")
	}
	ctx, c := WithCollector(context.Background())
	Emit(ctx, notification.Notification{UserID: "u1"}, notification.Notification{UserID: "u2"})
	Reset(ctx)
	Emit(ctx, notification.Notification{UserID: "u3"})
	got := c.Drain()
	if len(got) != 1 || got[0].UserID != "u3" {
		t.Fatalf("Drain = %+v", got)
	}
	if len(c.Drain()) != 0 {
		t.Fatal("Drain must empty the collector")
	}
}

func TestPendingAudiences(t *testing.T) {
	slot, _ := timeslot.ParseSlot("10:00", "11:00")
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: "b1", ResourceID: "r5", UserID: "u1",
		Date: timeslot.NewDate(2025, 6, 1), Slot: slot, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	requester := BookingPendingForRequester(b, "Room 5")
	staff := BookingPendingForStaff(b, "Room 5", "m1")
	if requester.Type != notification.TypeBookingPending || staff.Type != notification.TypeBookingPending {
		t.Fatal("both copies must be booking_pending")
	}
	if requester.Payload["audience"] == staff.Payload["audience"] {
		t.Fatal("payloads must be distinguishable")
	}
	if staff.UserID != "m1" || requester.UserID != "u1" {
		t.Fatalf("unexpected recipients %s %s", requester.UserID, staff.UserID)
	}

	_ = b.Reject("m1", "double booked", time.Now())
	n := BookingCancelled(b, "", "double booked")
	if n.Type != notification.TypeBookingCancellation || n.Payload["reason"] != "double booked" || n.Title != "Booking rejected" {
		t.Fatalf("unexpected rejection notice %+v", n)
	}
}
