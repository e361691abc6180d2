package promotion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookly/internal/app/locking"
	"bookly/internal/app/notices"
	"bookly/internal/app/outbox"
	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/events"
	"bookly/internal/domain/shared/timeslot"
	"bookly/internal/domain/shared/validation"
	domainwaitlist "bookly/internal/domain/waitlist"
)

// Promoter turns waiting-list entries into approved bookings when an interval frees up.
// It runs inside the caller's unit of work and slot lock.
type Promoter struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	NewID   func() string
	Now     func() time.Time
	// Location decides which calendar day is today.
	Location *time.Location
}

// CheckAndPromote promotes the best-ranked active entry that fits the freed interval.
// It returns nil without side effects when no entry fits or the slot is taken again.
func (p *Promoter) CheckAndPromote(ctx context.Context, unit uow.UnitOfWork, resourceID domainresource.ID, date timeslot.Date, freed timeslot.Slot) (*domainbooking.Booking, error) {
	if err := locking.Require(ctx, locking.SlotKey(resourceID, date)); err != nil {
		return nil, err
	}
	if domainbooking.ValidateDate(date, p.now(), p.Location) != nil {
		return nil, nil
	}
	entries, err := unit.WaitingList().ListActive(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}
	candidate := domainwaitlist.FirstCandidate(entries, resourceID, date, freed)
	if candidate == nil {
		return nil, nil
	}
	b, err := p.promote(ctx, unit, candidate)
	if errors.Is(err, domainwaitlist.ErrSlotUnavailable) {
		p.debug("promotion skipped, slot still taken", "entry_id", candidate.ID, "resource_id", resourceID, "date", date.String())
		return nil, nil
	}
	return b, err
}

// PromoteEntry promotes one entry explicitly. Entries for past dates are refused.
func (p *Promoter) PromoteEntry(ctx context.Context, unit uow.UnitOfWork, entry *domainwaitlist.Entry) (*domainbooking.Booking, error) {
	if entry.Status != domainwaitlist.StatusActive {
		return nil, &domainwaitlist.TransitionError{From: entry.Status, To: domainwaitlist.StatusPromoted}
	}
	if err := domainbooking.ValidateDate(entry.Date, p.now(), p.Location); err != nil {
		return nil, validation.Field("date", "The waiting list date has already passed.")
	}
	if err := locking.Require(ctx, locking.SlotKey(entry.ResourceID, entry.Date)); err != nil {
		return nil, err
	}
	return p.promote(ctx, unit, entry)
}

func (p *Promoter) promote(ctx context.Context, unit uow.UnitOfWork, entry *domainwaitlist.Entry) (*domainbooking.Booking, error) {
	res, err := unit.Resources().ByID(ctx, entry.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := res.Accepts(entry.Slot); err != nil {
		return nil, domainwaitlist.ErrSlotUnavailable
	}
	taken, err := unit.Bookings().HasOverlap(ctx, domainbooking.OverlapQuery{
		ResourceID: entry.ResourceID,
		Date:       entry.Date,
		Slot:       entry.Slot,
	})
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domainwaitlist.ErrSlotUnavailable
	}

	now := p.now()
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(p.newID()),
		ResourceID: entry.ResourceID,
		UserID:     entry.UserID,
		Date:       entry.Date,
		Slot:       entry.Slot,
		Approved:   true,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if err := entry.Promote(booking.ID, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := unit.WaitingList().Save(ctx, entry); err != nil {
		return nil, err
	}
	pending := append(booking.Drain(), entry.Drain()...)
	if err := p.record(ctx, pending); err != nil {
		return nil, err
	}
	notices.Emit(ctx, notices.WaitingListPromoted(entry, booking, res.Name))
	if p.Logger != nil {
		p.Logger.Info("waiting list entry promoted",
			"entry_id", entry.ID,
			"booking_id", booking.ID,
			"resource_id", entry.ResourceID,
			"user_id", entry.UserID,
		)
	}
	return booking, nil
}

func (p *Promoter) record(ctx context.Context, evs []events.DomainEvent) error {
	encoder := p.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	return outbox.RecordDomainEvents(ctx, p.Outbox, encoder, evs)
}

func (p *Promoter) debug(msg string, args ...any) {
	if p.Logger != nil {
		p.Logger.Debug(msg, args...)
	}
}

func (p *Promoter) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *Promoter) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}
