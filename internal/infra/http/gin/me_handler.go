package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"bookly/internal/app/dto"
	meapp "bookly/internal/app/handlers/me"
	"bookly/internal/app/queries"
)

type MeHTTP interface {
	ListBookings(c *gin.Context)
	ListNotifications(c *gin.Context)
}

type MeHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h MeHandler) ListBookings(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	result, err := queries.Ask[meapp.ListMyBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, meapp.ListMyBookingsQuery{Actor: actor})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) ListNotifications(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	q := meapp.ListMyNotificationsQuery{Actor: actor, Limit: limit}
	result, err := queries.Ask[meapp.ListMyNotificationsQuery, dto.NotificationCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ MeHTTP = MeHandler{}
