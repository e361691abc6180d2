package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookly/internal/domain/resource"
	"bookly/internal/domain/shared/events"
	"bookly/internal/domain/shared/timeslot"
)

var (
	ErrNotFound          = errors.New("booking: not found")
	ErrInvalidTransition = errors.New("booking: invalid state transition")
	ErrSlotTaken         = errors.New("booking: time slot is already booked")
	ErrUserRequired      = errors.New("booking: user id required")
	ErrResourceRequired  = errors.New("booking: resource id required")
	ErrConcurrentUpdate  = errors.New("booking: concurrent update detected")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("booking: unknown status %q", raw)
}

// Blocking reports whether a booking in this status occupies its slot.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusApproved
}

// BlockingStatuses are the statuses the overlap check considers.
var BlockingStatuses = []Status{StatusPending, StatusApproved}

// TransitionError is returned for a transition the state machine does not allow.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("booking is already %s", e.From)
	}
	return fmt.Sprintf("cannot move a %s booking to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type Booking struct {
	ID         BookingID
	ResourceID resource.ID
	UserID     string
	Date       timeslot.Date
	Slot       timeslot.Slot
	Status     Status
	Notes      string
	Recurrence Recurrence
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	HasOverlap(ctx context.Context, q OverlapQuery) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]*Booking, error)
}

// ListFilter narrows List results. Zero fields match everything.
type ListFilter struct {
	ResourceID resource.ID
	UserID     string
	Date       timeslot.Date
	Statuses   []Status
	Limit      int
}

func (f ListFilter) Matches(b *Booking) bool {
	if f.ResourceID != "" && b.ResourceID != f.ResourceID {
		return false
	}
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if !f.Date.IsZero() && b.Date != f.Date {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

type CreateParams struct {
	ID         BookingID
	ResourceID resource.ID
	UserID     string
	Date       timeslot.Date
	Slot       timeslot.Slot
	Notes      string
	Recurrence Recurrence
	// Approved creates the booking directly in the approved state (waiting-list promotion).
	Approved  bool
	CreatedAt time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("booking: id required")
	}
	if strings.TrimSpace(params.UserID) == "" {
		return nil, ErrUserRequired
	}
	if strings.TrimSpace(string(params.ResourceID)) == "" {
		return nil, ErrResourceRequired
	}
	if params.Date.IsZero() {
		return nil, timeslot.ErrInvalidDate
	}
	if err := params.Slot.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		ResourceID: params.ResourceID,
		UserID:     params.UserID,
		Date:       params.Date,
		Slot:       params.Slot,
		Status:     StatusPending,
		Notes:      strings.TrimSpace(params.Notes),
		Recurrence: params.Recurrence,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if params.Approved {
		b.Status = StatusApproved
	}
	b.Record(BookingRequested{
		BookingID:  b.ID,
		ResourceID: b.ResourceID,
		UserID:     b.UserID,
		Date:       b.Date,
		StartTime:  b.Slot.Start,
		EndTime:    b.Slot.End,
		Status:     b.Status,
		At:         now,
	})
	return b, nil
}

// Duration is the booked length in fractional hours.
func (b *Booking) Duration() float64 {
	return b.Slot.Hours()
}

func (b *Booking) OwnedBy(userID string) bool {
	return userID != "" && b.UserID == userID
}

func (b *Booking) Approve(actorID string, now time.Time) error {
	if b.Status != StatusPending {
		return &TransitionError{From: b.Status, To: StatusApproved}
	}
	b.Status = StatusApproved
	b.UpdatedAt = now.UTC()
	b.Record(BookingApproved{BookingID: b.ID, ActorID: actorID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Reject(actorID, reason string, now time.Time) error {
	if b.Status != StatusPending {
		return &TransitionError{From: b.Status, To: StatusRejected}
	}
	b.Status = StatusRejected
	b.UpdatedAt = now.UTC()
	b.Record(BookingRejected{BookingID: b.ID, ActorID: actorID, Reason: reason, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(actorID, reason string, now time.Time) error {
	switch b.Status {
	case StatusPending, StatusApproved:
	default:
		return &TransitionError{From: b.Status, To: StatusCancelled}
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, ActorID: actorID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Reschedule moves a blocking booking to another date or slot. Callers must re-run the overlap check.
func (b *Booking) Reschedule(date timeslot.Date, slot timeslot.Slot, now time.Time) error {
	if !b.Status.Blocking() {
		return &TransitionError{From: b.Status, To: b.Status}
	}
	if err := slot.Validate(); err != nil {
		return err
	}
	if date == b.Date && slot == b.Slot {
		return nil
	}
	prevDate, prevSlot := b.Date, b.Slot
	b.Date = date
	b.Slot = slot
	b.UpdatedAt = now.UTC()
	b.Record(BookingRescheduled{
		BookingID:    b.ID,
		PreviousDate: prevDate,
		PreviousSlot: prevSlot,
		Date:         date,
		Slot:         slot,
		At:           b.UpdatedAt,
	})
	return nil
}

func (b *Booking) UpdateNotes(notes string, now time.Time) {
	b.Notes = strings.TrimSpace(notes)
	b.UpdatedAt = now.UTC()
}
