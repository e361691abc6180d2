package booking

import (
	"context"
	"strconv"
	"strings"

	"bookly/internal/app/commands"
	"bookly/internal/app/dto"
	handlersupport "bookly/internal/app/handlers/support"
	"bookly/internal/app/identity"
	"bookly/internal/app/locking"
	"bookly/internal/app/middleware"
	"bookly/internal/app/notices"
	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	"bookly/internal/domain/shared/validation"
	domainuser "bookly/internal/domain/user"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	CommandID          string
	Actor              identity.Actor
	ResourceID         string
	Date               string
	StartTime          string
	EndTime            string
	Notes              string
	IsRecurring        bool
	RecurringFrequency string
	RecurringUntil     string
	IdempotencyKeyV    string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) ActorIdentity() identity.Actor { return c.Actor }

func (c CreateBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return createBookingKey + ":" + c.Actor.UserID + ":" + c.IdempotencyKeyV
}

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c CreateBookingCommand) RequestFingerprint() string {
	return middleware.Fingerprint(strings.TrimSpace(c.ResourceID), c.Date, c.StartTime, c.EndTime,
		c.Notes, strconv.FormatBool(c.IsRecurring), c.RecurringFrequency, c.RecurringUntil)
}

type createInput struct {
	resourceID domainresource.ID
	date       timeslot.Date
	slot       timeslot.Slot
	recurrence domainbooking.Recurrence
}

func (c CreateBookingCommand) parse() (createInput, error) {
	verr := &validation.Error{}
	in := createInput{resourceID: domainresource.ID(strings.TrimSpace(c.ResourceID))}
	if in.resourceID == "" {
		verr.Add("resource_id", "The resource id field is required.")
	}
	in.date, in.slot = parseWindow(verr, c.Date, c.StartTime, c.EndTime)
	if !in.date.IsZero() {
		in.recurrence = parseRecurrence(verr, c.IsRecurring, c.RecurringFrequency, c.RecurringUntil, in.date)
	}
	if len(c.Notes) > 1000 {
		verr.Add("notes", "The notes may not be greater than 1000 characters.")
	}
	return in, verr.Err()
}

func (c CreateBookingCommand) Validate() error {
	_, err := c.parse()
	return err
}

func (c CreateBookingCommand) LockScope(context.Context, uow.UnitOfWork) ([]locking.Key, error) {
	in, err := c.parse()
	if err != nil {
		return nil, nil
	}
	return []locking.Key{locking.SlotKey(in.resourceID, in.date)}, nil
}

type CreateBookingHandler struct {
	Env
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.Booking, error) {
	if err := cmd.Actor.Require(); err != nil {
		return nil, err
	}
	in, err := cmd.parse()
	if err != nil {
		return nil, err
	}
	if err := h.validateDate(in.date); err != nil {
		return nil, err
	}
	unit, err := handlersupport.UnitFromContext(ctx)
	if err != nil {
		return nil, err
	}
	res, err := unit.Resources().ByID(ctx, in.resourceID)
	if err != nil {
		return nil, err
	}
	if err := res.Accepts(in.slot); err != nil {
		return nil, resourceRuleError(err)
	}
	if err := locking.Require(ctx, locking.SlotKey(in.resourceID, in.date)); err != nil {
		return nil, err
	}
	if err := checkFree(ctx, unit, domainbooking.OverlapQuery{ResourceID: in.resourceID, Date: in.date, Slot: in.slot}); err != nil {
		return nil, err
	}

	id := cmd.CommandID
	if id == "" {
		id = h.newID()
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.BookingID(id),
		ResourceID: in.resourceID,
		UserID:     cmd.Actor.UserID,
		Date:       in.date,
		Slot:       in.slot,
		Notes:      cmd.Notes,
		Recurrence: in.recurrence,
		CreatedAt:  h.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := h.record(ctx, booking.Drain()); err != nil {
		return nil, err
	}

	notices.Emit(ctx, notices.BookingPendingForRequester(booking, res.Name))
	staff, err := unit.Users().ListByRoles(ctx, domainuser.StaffRoles...)
	if err != nil {
		h.warn("staff lookup failed, approval request not broadcast", "booking_id", booking.ID, "error", err)
	}
	for _, member := range staff {
		notices.Emit(ctx, notices.BookingPendingForStaff(booking, res.Name, string(member.ID)))
	}

	h.info("booking requested",
		"booking_id", booking.ID,
		"resource_id", booking.ResourceID,
		"actor_id", cmd.Actor.UserID,
		"date", booking.Date.String(),
		"slot", booking.Slot.String(),
	)
	out := dto.MapBooking(booking)
	return &out, nil
}

var _ commands.Handler[CreateBookingCommand, *dto.Booking] = (*CreateBookingHandler)(nil)
var (
	_ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
	_ middleware.Fingerprinted     = CreateBookingCommand{}
)
var _ locking.Scoped = CreateBookingCommand{}
