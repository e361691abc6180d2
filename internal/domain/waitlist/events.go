package waitlist

import (
	"time"

	"bookly/internal/domain/booking"
	"bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
)

type EntryAdded struct {
	EntryID    EntryID
	ResourceID resource.ID
	UserID     string
	Date       timeslot.Date
	Slot       timeslot.Slot
	Priority   int
	At         time.Time
}

func (e EntryAdded) EventName() string     { return "waitlist.entry_added" }
func (e EntryAdded) AggregateID() string   { return string(e.EntryID) }
func (e EntryAdded) OccurredAt() time.Time { return e.At }

type EntryPromoted struct {
	EntryID   EntryID
	BookingID booking.BookingID
	UserID    string
	At        time.Time
}

func (e EntryPromoted) EventName() string     { return "waitlist.entry_promoted" }
func (e EntryPromoted) AggregateID() string   { return string(e.EntryID) }
func (e EntryPromoted) OccurredAt() time.Time { return e.At }

type EntryRemoved struct {
	EntryID EntryID
	ActorID string
	At      time.Time
}

func (e EntryRemoved) EventName() string     { return "waitlist.entry_removed" }
func (e EntryRemoved) AggregateID() string   { return string(e.EntryID) }
func (e EntryRemoved) OccurredAt() time.Time { return e.At }
