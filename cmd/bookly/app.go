package main

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"bookly/internal/app/commands"
	"bookly/internal/app/dto"
	bookingapp "bookly/internal/app/handlers/booking"
	meapp "bookly/internal/app/handlers/me"
	resourcesapp "bookly/internal/app/handlers/resources"
	waitlistapp "bookly/internal/app/handlers/waitlist"
	"bookly/internal/app/identity"
	"bookly/internal/app/middleware"
	"bookly/internal/app/outbox"
	"bookly/internal/app/promotion"
	"bookly/internal/app/queries"
	authsvc "bookly/internal/app/services/auth"
	"bookly/internal/infra/config"
	ginserver "bookly/internal/infra/http/gin"
	"bookly/internal/infra/obs"
	"bookly/internal/infra/security"
)

type application struct {
	commands commands.Bus
	queries  queries.Bus
	auth     *authsvc.Service
	handlers ginserver.Handlers
}

// buildApplication wires handlers, middleware chains and HTTP adapters onto the infrastructure.
// A nil clock means wall time.
func buildApplication(cfg config.Config, in *infrastructure, logger *slog.Logger, clock func() time.Time) application {
	encoder := outbox.JSONEventEncoder{}
	promoter := &promotion.Promoter{
		Outbox:   in.outbox,
		Encoder:  encoder,
		Logger:   logger,
		Now:      clock,
		Location: cfg.Location(),
	}
	env := bookingapp.Env{
		Outbox:   in.outbox,
		Encoder:  encoder,
		Promoter: promoter,
		Logger:   logger,
		Location: cfg.Location(),
		Clock:    clock,
	}

	commandBus := commands.NewInMemoryBus()
	bookingapp.Register(commandBus, env)
	waitlistapp.Register(commandBus, &waitlistapp.Handlers{
		Outbox:   in.outbox,
		Encoder:  encoder,
		Promoter: promoter,
		Logger:   logger,
		Location: cfg.Location(),
		Clock:    clock,
	})

	queryBus := queries.NewInMemoryBus()
	bookingapp.RegisterQueries(queryBus, in.factory, env)
	queries.RegisterHandler[waitlistapp.ListEntriesQuery, dto.WaitingListCollection](queryBus, waitlistapp.ListEntriesQuery{}.Key(), &waitlistapp.ListEntriesHandler{UoWFactory: in.factory})
	queries.RegisterHandler[resourcesapp.ListResourcesQuery, dto.ResourceCollection](queryBus, resourcesapp.ListResourcesQuery{}.Key(), &resourcesapp.ListResourcesHandler{UoWFactory: in.factory})
	queries.RegisterHandler[resourcesapp.GetScheduleQuery, dto.Schedule](queryBus, resourcesapp.GetScheduleQuery{}.Key(), &resourcesapp.GetScheduleHandler{UoWFactory: in.factory})
	queries.RegisterHandler[meapp.ListMyBookingsQuery, dto.BookingCollection](queryBus, meapp.ListMyBookingsQuery{}.Key(), &meapp.ListMyBookingsHandler{UoWFactory: in.factory, Logger: logger})
	queries.RegisterHandler[meapp.ListMyNotificationsQuery, dto.NotificationCollection](queryBus, meapp.ListMyNotificationsQuery{}.Key(), &meapp.ListMyNotificationsHandler{Notifications: in.notifications})

	logger.Debug("handlers registered", "commands", commandBus.Keys(), "queries", queryBus.Keys())

	tracer := otel.Tracer("bookly")
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Tracing(tracer),
		middleware.Authorization(identity.RequireAuthenticated{}),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Idempotency(in.idempotency, nil),
		middleware.Notifications(in.notifier, logger),
		middleware.OutboxWake(in.relayWorker),
		middleware.IntervalLock(in.locker, in.factory, middleware.IntervalLockOptions{
			Wait:   cfg.LockWait,
			Logger: logger,
		}),
		middleware.Transaction(in.factory, nil),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryTracing(tracer),
		middleware.QueryAuthorization(identity.RequireAuthenticated{}),
	)

	auth := &authsvc.Service{
		Users:      in.users,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.JWTCodec{Secret: cfg.SigningSecret()},
		SessionTTL: cfg.JWTTTL,
		Logger:     logger,
	}

	return application{
		commands: commandBusWithMiddleware,
		queries:  queryBusWithMiddleware,
		auth:     auth,
		handlers: ginserver.Handlers{
			Auth:        ginserver.AuthHandler{Service: auth, Logger: logger},
			Booking:     ginserver.BookingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
			WaitingList: ginserver.WaitingListHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
			Resources:   ginserver.ResourceHandler{Queries: queryBusWithMiddleware, Logger: logger},
			Me:          ginserver.MeHandler{Queries: queryBusWithMiddleware, Logger: logger},
			AuthMiddleware: ginserver.AuthMiddleware{
				Tokens: auth,
				Logger: logger,
			}.Handle,
			RateLimiter: obs.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		},
	}
}
