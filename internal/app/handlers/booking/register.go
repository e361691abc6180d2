package booking

import (
	"bookly/internal/app/commands"
	"bookly/internal/app/dto"
	"bookly/internal/app/queries"
	"bookly/internal/app/uow"
)

// Register wires the booking commands onto the bus.
func Register(bus *commands.InMemoryBus, env Env) {
	commands.RegisterHandler[CreateBookingCommand, *dto.Booking](bus, createBookingKey, &CreateBookingHandler{Env: env})
	commands.RegisterHandler[UpdateBookingCommand, *dto.BookingOutcome](bus, updateBookingKey, &UpdateBookingHandler{Env: env})
	commands.RegisterHandler[ApproveBookingCommand, *dto.BookingOutcome](bus, approveBookingKey, &ApproveBookingHandler{Env: env})
	commands.RegisterHandler[RejectBookingCommand, *dto.BookingOutcome](bus, rejectBookingKey, &RejectBookingHandler{Env: env})
	commands.RegisterHandler[CancelBookingCommand, *dto.BookingOutcome](bus, cancelBookingKey, &CancelBookingHandler{Env: env})
}

// RegisterQueries wires the booking read side onto the query bus.
func RegisterQueries(bus *queries.InMemoryBus, factory uow.UoWFactory, env Env) {
	queries.RegisterHandler[GetBookingQuery, dto.Booking](bus, getBookingKey, &GetBookingHandler{UoWFactory: factory})
	queries.RegisterHandler[ListBookingsQuery, dto.BookingCollection](bus, listBookingsKey, &ListBookingsHandler{UoWFactory: factory, Logger: env.Logger})
}
