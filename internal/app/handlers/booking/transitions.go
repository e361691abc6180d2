package booking

import (
	"context"
	"strings"

	"bookly/internal/app/commands"
	"bookly/internal/app/dto"
	handlersupport "bookly/internal/app/handlers/support"
	"bookly/internal/app/identity"
	"bookly/internal/app/locking"
	"bookly/internal/app/notices"
	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
)

const (
	approveBookingKey = "booking.approve"
	rejectBookingKey  = "booking.reject"
	cancelBookingKey  = "booking.cancel"
)

type ApproveBookingCommand struct {
	Actor     identity.Actor
	BookingID string
}

func (c ApproveBookingCommand) Key() string                   { return approveBookingKey }
func (c ApproveBookingCommand) ActorIdentity() identity.Actor { return c.Actor }
func (c ApproveBookingCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]locking.Key, error) {
	return bookingScope(ctx, unit, c.BookingID)
}

type RejectBookingCommand struct {
	Actor     identity.Actor
	BookingID string
	Reason    string
}

func (c RejectBookingCommand) Key() string                   { return rejectBookingKey }
func (c RejectBookingCommand) ActorIdentity() identity.Actor { return c.Actor }
func (c RejectBookingCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]locking.Key, error) {
	return bookingScope(ctx, unit, c.BookingID)
}

type CancelBookingCommand struct {
	Actor     identity.Actor
	BookingID string
	Reason    string
}

func (c CancelBookingCommand) Key() string                   { return cancelBookingKey }
func (c CancelBookingCommand) ActorIdentity() identity.Actor { return c.Actor }
func (c CancelBookingCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]locking.Key, error) {
	return bookingScope(ctx, unit, c.BookingID)
}

// approve moves b to approved after re-checking that its slot is still free.
func (e Env) approve(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, actor identity.Actor) error {
	if err := actor.RequireStaff(); err != nil {
		return err
	}
	if err := b.Approve(actor.UserID, e.now()); err != nil {
		return err
	}
	if err := checkFree(ctx, unit, b.OverlapQuery()); err != nil {
		return err
	}
	notices.Emit(ctx, notices.BookingApproved(b, resourceName(ctx, unit, b.ResourceID)))
	return nil
}

func (e Env) reject(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, actor identity.Actor, reason string) error {
	if err := actor.RequireStaff(); err != nil {
		return err
	}
	if err := b.Reject(actor.UserID, reason, e.now()); err != nil {
		return err
	}
	notices.Emit(ctx, notices.BookingCancelled(b, resourceName(ctx, unit, b.ResourceID), reason))
	return nil
}

func (e Env) cancel(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, actor identity.Actor, reason string) error {
	if err := actor.RequireOwnerOrStaff(b.UserID); err != nil {
		return err
	}
	if err := b.Cancel(actor.UserID, reason, e.now()); err != nil {
		return err
	}
	if !b.OwnedBy(actor.UserID) {
		notices.Emit(ctx, notices.BookingCancelled(b, resourceName(ctx, unit, b.ResourceID), reason))
	}
	return nil
}

// persist saves b and relays its events.
func (e Env) persist(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	return e.record(ctx, b.Drain())
}

type ApproveBookingHandler struct {
	Env
}

func (h *ApproveBookingHandler) Handle(ctx context.Context, cmd ApproveBookingCommand) (*dto.BookingOutcome, error) {
	if err := cmd.Actor.RequireStaff(); err != nil {
		return nil, err
	}
	unit, err := handlersupport.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := loadBooking(ctx, unit, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if err := h.approve(ctx, unit, b, cmd.Actor); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	h.info("booking approved", "booking_id", b.ID, "resource_id", b.ResourceID, "actor_id", cmd.Actor.UserID)
	return &dto.BookingOutcome{Booking: dto.MapBooking(b)}, nil
}

type RejectBookingHandler struct {
	Env
}

func (h *RejectBookingHandler) Handle(ctx context.Context, cmd RejectBookingCommand) (*dto.BookingOutcome, error) {
	if err := cmd.Actor.RequireStaff(); err != nil {
		return nil, err
	}
	unit, err := handlersupport.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := loadBooking(ctx, unit, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(cmd.Reason)
	if err := h.reject(ctx, unit, b, cmd.Actor, reason); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	promoted, err := h.promoteFreed(ctx, unit, b.ResourceID, b.Date, b.Slot)
	if err != nil {
		return nil, err
	}
	h.info("booking rejected", "booking_id", b.ID, "resource_id", b.ResourceID, "actor_id", cmd.Actor.UserID, "promoted", promoted != nil)
	return &dto.BookingOutcome{Booking: dto.MapBooking(b), PromotedBooking: dto.MapBookingPtr(promoted)}, nil
}

type CancelBookingHandler struct {
	Env
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.BookingOutcome, error) {
	if err := cmd.Actor.Require(); err != nil {
		return nil, err
	}
	unit, err := handlersupport.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := loadBooking(ctx, unit, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(cmd.Reason)
	if err := h.cancel(ctx, unit, b, cmd.Actor, reason); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	promoted, err := h.promoteFreed(ctx, unit, b.ResourceID, b.Date, b.Slot)
	if err != nil {
		return nil, err
	}
	h.info("booking cancelled", "booking_id", b.ID, "resource_id", b.ResourceID, "actor_id", cmd.Actor.UserID, "promoted", promoted != nil)
	return &dto.BookingOutcome{Booking: dto.MapBooking(b), PromotedBooking: dto.MapBookingPtr(promoted)}, nil
}

var (
	_ commands.Handler[ApproveBookingCommand, *dto.BookingOutcome] = (*ApproveBookingHandler)(nil)
	_ commands.Handler[RejectBookingCommand, *dto.BookingOutcome]  = (*RejectBookingHandler)(nil)
	_ commands.Handler[CancelBookingCommand, *dto.BookingOutcome]  = (*CancelBookingHandler)(nil)
)
