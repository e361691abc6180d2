package booking

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"bookly/internal/app/dto"
	handlersupport "bookly/internal/app/handlers/support"
	"bookly/internal/app/identity"
	"bookly/internal/app/queries"
	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	"bookly/internal/domain/shared/validation"
)

const (
	getBookingKey    = "booking.get"
	listBookingsKey  = "booking.list"
	defaultListLimit = 200
)

type GetBookingQuery struct {
	Actor     identity.Actor
	BookingID string
}

func (q GetBookingQuery) Key() string                   { return getBookingKey }
func (q GetBookingQuery) ActorIdentity() identity.Actor { return q.Actor }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	if err := q.Actor.Require(); err != nil {
		return dto.Booking{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(strings.TrimSpace(q.BookingID)))
	if err != nil {
		return dto.Booking{}, err
	}
	if err := q.Actor.RequireOwnerOrStaff(b.UserID); err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b), nil
}

// ListBookingsQuery lists bookings. Non-staff actors and Mine queries only see the actor's own bookings.
type ListBookingsQuery struct {
	Actor      identity.Actor
	ResourceID string
	Date       string
	Status     string
	Mine       bool
}

func (q ListBookingsQuery) Key() string                   { return listBookingsKey }
func (q ListBookingsQuery) ActorIdentity() identity.Actor { return q.Actor }

func (q ListBookingsQuery) filter() (domainbooking.ListFilter, error) {
	verr := &validation.Error{}
	f := domainbooking.ListFilter{
		ResourceID: domainresource.ID(strings.TrimSpace(q.ResourceID)),
		Limit:      defaultListLimit,
	}
	if raw := strings.TrimSpace(q.Date); raw != "" {
		d, err := timeslot.ParseDate(raw)
		if err != nil {
			verr.Add("date", "The date does not match the format Y-m-d.")
		}
		f.Date = d
	}
	if raw := strings.TrimSpace(q.Status); raw != "" {
		s, err := domainbooking.ParseStatus(raw)
		if err != nil {
			verr.Add("status", "The selected status is invalid.")
		}
		f.Statuses = []domainbooking.Status{s}
	}
	if q.Mine || !q.Actor.IsStaff() {
		f.UserID = q.Actor.UserID
	}
	return f, verr.Err()
}

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	if err := q.Actor.Require(); err != nil {
		return dto.BookingCollection{}, err
	}
	filter, err := q.filter()
	if err != nil {
		return dto.BookingCollection{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Bookings().List(execCtx, filter)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	SortForDisplay(items)
	if h.Logger != nil {
		h.Logger.Debug("bookings listed", "actor_id", q.Actor.UserID, "count", len(items), "resource_id", filter.ResourceID)
	}
	return dto.MapBookings(items), nil
}

// SortForDisplay orders bookings by date, start time and creation.
func SortForDisplay(items []*domainbooking.Booking) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.Slot.Start != b.Slot.Start {
			return a.Slot.Start < b.Slot.Start
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

var (
	_ queries.Handler[GetBookingQuery, dto.Booking]             = (*GetBookingHandler)(nil)
	_ queries.Handler[ListBookingsQuery, dto.BookingCollection] = (*ListBookingsHandler)(nil)
)
