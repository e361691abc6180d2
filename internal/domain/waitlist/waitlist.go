package waitlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bookly/internal/domain/booking"
	"bookly/internal/domain/resource"
	"bookly/internal/domain/shared/events"
	"bookly/internal/domain/shared/timeslot"
)

var (
	ErrNotFound          = errors.New("waitlist: entry not found")
	ErrInvalidTransition = errors.New("waitlist: invalid state transition")
	ErrSlotUnavailable   = errors.New("waitlist: resource is not available for the requested slot")
	ErrUserRequired      = errors.New("waitlist: user id required")
	ErrResourceRequired  = errors.New("waitlist: resource id required")
	ErrConcurrentUpdate  = errors.New("waitlist: concurrent update detected")
)

type EntryID string

type Status string

const (
	StatusActive   Status = "active"
	StatusPromoted Status = "promoted"
	StatusRemoved  Status = "removed"
)

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("waiting list entry is already %s", e.From)
	}
	return fmt.Sprintf("waiting list entry is %s and cannot become %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type Entry struct {
	ID         EntryID
	ResourceID resource.ID
	UserID     string
	Date       timeslot.Date
	Slot       timeslot.Slot
	Priority   int
	Status     Status
	BookingID  booking.BookingID
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id EntryID) (*Entry, error)
	Save(ctx context.Context, entry *Entry) error
	// ListActive returns active entries for the resource and date in rank order.
	ListActive(ctx context.Context, resourceID resource.ID, date timeslot.Date) ([]*Entry, error)
}

type CreateParams struct {
	ID         EntryID
	ResourceID resource.ID
	UserID     string
	Date       timeslot.Date
	Slot       timeslot.Slot
	Priority   int
	CreatedAt  time.Time
}

func NewEntry(params CreateParams) (*Entry, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("waitlist: id required")
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
	e := &Entry{
		ID:         params.ID,
		ResourceID: params.ResourceID,
		UserID:     params.UserID,
		Date:       params.Date,
		Slot:       params.Slot,
		Priority:   params.Priority,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	e.Record(EntryAdded{
		EntryID:    e.ID,
		ResourceID: e.ResourceID,
		UserID:     e.UserID,
		Date:       e.Date,
		Slot:       e.Slot,
		Priority:   e.Priority,
		At:         now,
	})
	return e, nil
}

func (e *Entry) OwnedBy(userID string) bool {
	return userID != "" && e.UserID == userID
}

// FitsWithin reports whether the entry wants a slot inside the freed interval.
func (e *Entry) FitsWithin(resourceID resource.ID, date timeslot.Date, freed timeslot.Slot) bool {
	return e.Status == StatusActive &&
		e.ResourceID == resourceID &&
		e.Date == date &&
		freed.Contains(e.Slot)
}

func (e *Entry) Promote(bookingID booking.BookingID, now time.Time) error {
	if e.Status != StatusActive {
		return &TransitionError{From: e.Status, To: StatusPromoted}
	}
	e.Status = StatusPromoted
	e.BookingID = bookingID
	e.UpdatedAt = now.UTC()
	e.Record(EntryPromoted{EntryID: e.ID, BookingID: bookingID, UserID: e.UserID, At: e.UpdatedAt})
	return nil
}

func (e *Entry) Remove(actorID string, now time.Time) error {
	if e.Status != StatusActive {
		return &TransitionError{From: e.Status, To: StatusRemoved}
	}
	e.Status = StatusRemoved
	e.UpdatedAt = now.UTC()
	e.Record(EntryRemoved{EntryID: e.ID, ActorID: actorID, At: e.UpdatedAt})
	return nil
}

// Less orders entries by priority desc, then created_at asc, then id.
func Less(a, b *Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func SortByRank(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return Less(entries[i], entries[j]) })
}

// FirstCandidate returns the best-ranked entry fitting the freed interval, or nil.
func FirstCandidate(entries []*Entry, resourceID resource.ID, date timeslot.Date, freed timeslot.Slot) *Entry {
	var best *Entry
	for _, e := range entries {
		if !e.FitsWithin(resourceID, date, freed) {
			continue
		}
		if best == nil || Less(e, best) {
			best = e
		}
	}
	return best
}
