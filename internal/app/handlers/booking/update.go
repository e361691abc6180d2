package booking

import (
	"context"
	"strings"

	"bookly/internal/app/commands"
	"bookly/internal/app/dto"
	handlersupport "bookly/internal/app/handlers/support"
	"bookly/internal/app/identity"
	"bookly/internal/app/locking"
	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	"bookly/internal/domain/shared/timeslot"
	"bookly/internal/domain/shared/validation"
)

const updateBookingKey = "booking.update"

// UpdateBookingCommand changes a subset of booking fields. Nil fields are left as they are.
type UpdateBookingCommand struct {
	Actor     identity.Actor
	BookingID string
	Date      *string
	StartTime *string
	EndTime   *string
	Notes     *string
	Status    *string
}

func (c UpdateBookingCommand) Key() string                   { return updateBookingKey }
func (c UpdateBookingCommand) ActorIdentity() identity.Actor { return c.Actor }

func (c UpdateBookingCommand) changesWindow() bool {
	return c.Date != nil || c.StartTime != nil || c.EndTime != nil
}

func (c UpdateBookingCommand) Validate() error {
	verr := &validation.Error{}
	if c.Date != nil {
		parseDateField(verr, *c.Date)
	}
	if c.StartTime != nil {
		parseClockField(verr, "start_time", "start time", *c.StartTime)
	}
	if c.EndTime != nil {
		parseClockField(verr, "end_time", "end time", *c.EndTime)
	}
	if c.Status != nil {
		if _, err := domainbooking.ParseStatus(*c.Status); err != nil {
			verr.Add("status", "The selected status is invalid.")
		} else if c.changesWindow() {
			verr.Add("status", "The status cannot be changed together with the date or time.")
		}
	}
	if c.Notes != nil && len(*c.Notes) > 1000 {
		verr.Add("notes", "The notes may not be greater than 1000 characters.")
	}
	return verr.Err()
}

// LockScope covers the stored slot and, when the date moves, the target one.
func (c UpdateBookingCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]locking.Key, error) {
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(c.BookingID))
	if err != nil {
		return bookingScope(ctx, unit, c.BookingID)
	}
	keys := []locking.Key{locking.SlotKey(b.ResourceID, b.Date)}
	if c.Date != nil {
		if d, err := timeslot.ParseDate(*c.Date); err == nil {
			keys = append(keys, locking.SlotKey(b.ResourceID, d))
		}
	}
	return keys, nil
}

type UpdateBookingHandler struct {
	Env
}

func (h *UpdateBookingHandler) Handle(ctx context.Context, cmd UpdateBookingCommand) (*dto.BookingOutcome, error) {
	if err := cmd.Actor.Require(); err != nil {
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
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
	if err := cmd.Actor.RequireOwnerOrStaff(b.UserID); err != nil {
		return nil, err
	}

	type interval struct {
		date timeslot.Date
		slot timeslot.Slot
	}
	var freed []interval

	if cmd.Notes != nil {
		b.UpdateNotes(*cmd.Notes, h.now())
	}
	if cmd.changesWindow() {
		date, slot, err := h.targetWindow(b, cmd)
		if err != nil {
			return nil, err
		}
		if date != b.Date || slot != b.Slot {
			if !b.Status.Blocking() {
				return nil, &domainbooking.TransitionError{From: b.Status, To: b.Status}
			}
			if err := h.validateDate(date); err != nil {
				return nil, err
			}
			res, err := unit.Resources().ByID(ctx, b.ResourceID)
			if err != nil {
				return nil, err
			}
			if err := res.Accepts(slot); err != nil {
				return nil, resourceRuleError(err)
			}
			if err := locking.Require(ctx, locking.SlotKey(b.ResourceID, date)); err != nil {
				return nil, err
			}
			if err := checkFree(ctx, unit, domainbooking.OverlapQuery{ResourceID: b.ResourceID, Date: date, Slot: slot, Exclude: b.ID}); err != nil {
				return nil, err
			}
			freed = append(freed, interval{date: b.Date, slot: b.Slot})
			if err := b.Reschedule(date, slot, h.now()); err != nil {
				return nil, err
			}
		}
	}
	if cmd.Status != nil {
		target, _ := domainbooking.ParseStatus(*cmd.Status)
		switch target {
		case domainbooking.StatusApproved:
			err = h.approve(ctx, unit, b, cmd.Actor)
		case domainbooking.StatusRejected:
			err = h.reject(ctx, unit, b, cmd.Actor, "")
			freed = append(freed, interval{date: b.Date, slot: b.Slot})
		case domainbooking.StatusCancelled:
			err = h.cancel(ctx, unit, b, cmd.Actor, "")
			freed = append(freed, interval{date: b.Date, slot: b.Slot})
		default:
			err = &domainbooking.TransitionError{From: b.Status, To: target}
		}
		if err != nil {
			return nil, err
		}
	}

	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	out := &dto.BookingOutcome{Booking: dto.MapBooking(b)}
	for _, iv := range freed {
		promoted, err := h.promoteFreed(ctx, unit, b.ResourceID, iv.date, iv.slot)
		if err != nil {
			return nil, err
		}
		if promoted != nil && out.PromotedBooking == nil {
			out.PromotedBooking = dto.MapBookingPtr(promoted)
		}
	}
	h.info("booking updated", "booking_id", b.ID, "resource_id", b.ResourceID, "actor_id", cmd.Actor.UserID, "status", b.Status)
	return out, nil
}

// targetWindow merges the requested fields over the stored window.
func (h *UpdateBookingHandler) targetWindow(b *domainbooking.Booking, cmd UpdateBookingCommand) (timeslot.Date, timeslot.Slot, error) {
	date, start, end := b.Date, b.Slot.Start, b.Slot.End
	if cmd.Date != nil {
		d, err := timeslot.ParseDate(*cmd.Date)
		if err != nil {
			return date, b.Slot, validation.Field("date", "The date does not match the format Y-m-d.")
		}
		date = d
	}
	if cmd.StartTime != nil {
		c, err := timeslot.ParseClock(strings.TrimSpace(*cmd.StartTime))
		if err != nil {
			return date, b.Slot, validation.Field("start_time", "The start time does not match the format H:i.")
		}
		start = c
	}
	if cmd.EndTime != nil {
		c, err := timeslot.ParseClock(strings.TrimSpace(*cmd.EndTime))
		if err != nil {
			return date, b.Slot, validation.Field("end_time", "The end time does not match the format H:i.")
		}
		end = c
	}
	slot, err := timeslot.NewSlot(start, end)
	if err != nil {
		return date, b.Slot, validation.Field("end_time", "The end time must be a time after start time.")
	}
	return date, slot, nil
}

var _ commands.Handler[UpdateBookingCommand, *dto.BookingOutcome] = (*UpdateBookingHandler)(nil)
