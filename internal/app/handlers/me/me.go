package me

import (
	"context"
	"log/slog"

	"bookly/internal/app/dto"
	bookingapp "bookly/internal/app/handlers/booking"
	handlersupport "bookly/internal/app/handlers/support"
	"bookly/internal/app/identity"
	"bookly/internal/app/queries"
	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	"bookly/internal/domain/notification"
)

const (
	listMyBookingsKey      = "me.bookings.list"
	listMyNotificationsKey = "me.notifications.list"
	defaultNotificationCap = 50
)

type ListMyBookingsQuery struct {
	Actor identity.Actor
}

func (q ListMyBookingsQuery) Key() string                   { return listMyBookingsKey }
func (q ListMyBookingsQuery) ActorIdentity() identity.Actor { return q.Actor }

type ListMyBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListMyBookingsHandler) Handle(ctx context.Context, q ListMyBookingsQuery) (dto.BookingCollection, error) {
	if err := q.Actor.Require(); err != nil {
		return dto.BookingCollection{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	bookings, err := unit.Bookings().List(execCtx, domainbooking.ListFilter{UserID: q.Actor.UserID})
	if err != nil {
		return dto.BookingCollection{}, err
	}
	bookingapp.SortForDisplay(bookings)
	if h.Logger != nil {
		h.Logger.Debug("own bookings listed", "user_id", q.Actor.UserID, "count", len(bookings))
	}
	return dto.MapBookings(bookings), nil
}

type ListMyNotificationsQuery struct {
	Actor identity.Actor
	Limit int
}

func (q ListMyNotificationsQuery) Key() string                   { return listMyNotificationsKey }
func (q ListMyNotificationsQuery) ActorIdentity() identity.Actor { return q.Actor }

type ListMyNotificationsHandler struct {
	Notifications notification.Repository
}

func (h *ListMyNotificationsHandler) Handle(ctx context.Context, q ListMyNotificationsQuery) (dto.NotificationCollection, error) {
	if err := q.Actor.Require(); err != nil {
		return dto.NotificationCollection{}, err
	}
	limit := q.Limit
	if limit <= 0 || limit > defaultNotificationCap {
		limit = defaultNotificationCap
	}
	items, err := h.Notifications.ListByUser(ctx, q.Actor.UserID, limit)
	if err != nil {
		return dto.NotificationCollection{}, err
	}
	if items == nil {
		items = []notification.Notification{}
	}
	return dto.NotificationCollection{Items: items}, nil
}

var (
	_ queries.Handler[ListMyBookingsQuery, dto.BookingCollection]           = (*ListMyBookingsHandler)(nil)
	_ queries.Handler[ListMyNotificationsQuery, dto.NotificationCollection] = (*ListMyNotificationsHandler)(nil)
)
