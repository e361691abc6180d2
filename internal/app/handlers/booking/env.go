package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookly/internal/app/locking"
	"bookly/internal/app/outbox"
	"bookly/internal/app/promotion"
	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/events"
	"bookly/internal/domain/shared/timeslot"
	"bookly/internal/domain/shared/validation"
)

// Env holds the collaborators shared by booking handlers.
type Env struct {
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Promoter *promotion.Promoter
	Logger   *slog.Logger
	// Location decides what "today" means for date validation.
	Location *time.Location
	Clock    func() time.Time
	NewID    func() string
}

func (e Env) now() time.Time {
	if e.Clock != nil {
		return e.Clock().UTC()
	}
	return time.Now().UTC()
}

func (e Env) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Env) record(ctx context.Context, evs []events.DomainEvent) error {
	encoder := e.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	return outbox.RecordDomainEvents(ctx, e.Outbox, encoder, evs)
}

func (e Env) info(msg string, args ...any) {
	if e.Logger != nil {
		e.Logger.Info(msg, args...)
	}
}

func (e Env) warn(msg string, args ...any) {
	if e.Logger != nil {
		e.Logger.Warn(msg, args...)
	}
}

// promoteFreed hands a freed interval to the waiting list.
func (e Env) promoteFreed(ctx context.Context, unit uow.UnitOfWork, resourceID domainresource.ID, date timeslot.Date, slot timeslot.Slot) (*domainbooking.Booking, error) {
	if e.Promoter == nil {
		return nil, nil
	}
	return e.Promoter.CheckAndPromote(ctx, unit, resourceID, date, slot)
}

// validateDate maps past dates to a field error.
func (e Env) validateDate(date timeslot.Date) error {
	if err := domainbooking.ValidateDate(date, e.now(), e.Location); err != nil {
		return validation.Field("date", "The date must be today or a later date.")
	}
	return nil
}

func loadBooking(ctx context.Context, unit uow.UnitOfWork, id string) (*domainbooking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
	if err != nil {
		return nil, err
	}
	if err := locking.Require(ctx, locking.SlotKey(b.ResourceID, b.Date)); err != nil {
		return nil, err
	}
	return b, nil
}

// bookingScope resolves the slot key of a stored booking. Unknown ids yield no keys so the
// handler can report not found.
func bookingScope(ctx context.Context, unit uow.UnitOfWork, id string) ([]locking.Key, error) {
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
	if errors.Is(err, domainbooking.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []locking.Key{locking.SlotKey(b.ResourceID, b.Date)}, nil
}

func resourceName(ctx context.Context, unit uow.UnitOfWork, id domainresource.ID) string {
	res, err := unit.Resources().ByID(ctx, id)
	if err != nil {
		return ""
	}
	return res.Name
}

// resourceRuleError maps registry constraints to field errors.
func resourceRuleError(err error) error {
	switch {
	case errors.Is(err, domainresource.ErrUnderMaintenance):
		return validation.Field("resource_id", "The selected resource is under maintenance.")
	case errors.Is(err, domainresource.ErrOutsideOpenedHours):
		return validation.Field("time", "The selected time is outside the resource opening hours.")
	default:
		return err
	}
}

// checkFree fails with ErrSlotTaken when q collides with a blocking booking.
func checkFree(ctx context.Context, unit uow.UnitOfWork, q domainbooking.OverlapQuery) error {
	taken, err := unit.Bookings().HasOverlap(ctx, q)
	if err != nil {
		return err
	}
	if taken {
		return domainbooking.ErrSlotTaken
	}
	return nil
}
