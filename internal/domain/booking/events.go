package booking

import (
	"time"

	"bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
)

type BookingRequested struct {
	BookingID  BookingID
	ResourceID resource.ID
	UserID     string
	Date       timeslot.Date
	StartTime  timeslot.Clock
	EndTime    timeslot.Clock
	Status     Status
	At         time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingApproved struct {
	BookingID BookingID
	ActorID   string
	At        time.Time
}

func (e BookingApproved) EventName() string     { return "booking.approved" }
func (e BookingApproved) AggregateID() string   { return string(e.BookingID) }
func (e BookingApproved) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	BookingID BookingID
	ActorID   string
	Reason    string
	At        time.Time
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return string(e.BookingID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	ActorID   string
	Reason    string
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingRescheduled struct {
	BookingID    BookingID
	PreviousDate timeslot.Date
	PreviousSlot timeslot.Slot
	Date         timeslot.Date
	Slot         timeslot.Slot
	At           time.Time
}

func (e BookingRescheduled) EventName() string     { return "booking.rescheduled" }
func (e BookingRescheduled) AggregateID() string   { return string(e.BookingID) }
func (e BookingRescheduled) OccurredAt() time.Time { return e.At }
