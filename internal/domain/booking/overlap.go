package booking

import (
	"bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
)

// OverlapQuery asks whether a candidate interval collides with a blocking booking
// for the same resource on the same date.
type OverlapQuery struct {
	ResourceID resource.ID
	Date       timeslot.Date
	Slot       timeslot.Slot
	// Exclude skips one booking, used when a booking is re-checked against its own slot.
	Exclude BookingID
}

// Matches reports whether b blocks the queried interval.
func (q OverlapQuery) Matches(b *Booking) bool {
	if b == nil || !b.Status.Blocking() {
		return false
	}
	if q.Exclude != "" && b.ID == q.Exclude {
		return false
	}
	if b.ResourceID != q.ResourceID || b.Date != q.Date {
		return false
	}
	return b.Slot.Overlaps(q.Slot)
}

// AnyOverlap runs the query over an in-memory candidate set.
func AnyOverlap(q OverlapQuery, candidates []*Booking) bool {
	for _, b := range candidates {
		if q.Matches(b) {
			return true
		}
	}
	return false
}

func (b *Booking) OverlapQuery() OverlapQuery {
	return OverlapQuery{ResourceID: b.ResourceID, Date: b.Date, Slot: b.Slot, Exclude: b.ID}
}
