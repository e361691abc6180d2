package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookly/internal/app/commands"
	"bookly/internal/app/dto"
	bookingapp "bookly/internal/app/handlers/booking"
	"bookly/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Update(c *gin.Context)
	Approve(c *gin.Context)
	Reject(c *gin.Context)
	Cancel(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ResourceID         string `json:"resource_id" binding:"required"`
	Date               string `json:"date" binding:"required"`
	StartTime          string `json:"start_time" binding:"required"`
	EndTime            string `json:"end_time" binding:"required"`
	Notes              string `json:"notes" binding:"max=1000"`
	IsRecurring        bool   `json:"is_recurring"`
	RecurringFrequency string `json:"recurring_frequency"`
	RecurringUntil     string `json:"recurring_until"`
}

type updateBookingRequest struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Notes     *string `json:"notes"`
	Status    *string `json:"status"`
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

func (h BookingHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		CommandID:          generateCommandID(),
		Actor:              actor,
		ResourceID:         req.ResourceID,
		Date:               req.Date,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Notes:              req.Notes,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
		RecurringUntil:     req.RecurringUntil,
		IdempotencyKeyV:    c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	q := bookingapp.GetBookingQuery{Actor: actor, BookingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) List(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	q := bookingapp.ListBookingsQuery{
		Actor:      actor,
		ResourceID: c.Query("resource_id"),
		Date:       c.Query("date"),
		Status:     c.Query("status"),
	}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.UpdateBookingCommand{
		Actor:     actor,
		BookingID: c.Param("id"),
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
		Status:    req.Status,
	}
	result, err := commands.Dispatch[bookingapp.UpdateBookingCommand, *dto.BookingOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Approve(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	cmd := bookingapp.ApproveBookingCommand{Actor: actor, BookingID: c.Param("id")}
	result, err := commands.Dispatch[bookingapp.ApproveBookingCommand, *dto.BookingOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Reject(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	reason, ok := h.reason(c)
	if !ok {
		return
	}
	cmd := bookingapp.RejectBookingCommand{Actor: actor, BookingID: c.Param("id"), Reason: reason}
	result, err := commands.Dispatch[bookingapp.RejectBookingCommand, *dto.BookingOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	reason, ok := h.reason(c)
	if !ok {
		return
	}
	cmd := bookingapp.CancelBookingCommand{Actor: actor, BookingID: c.Param("id"), Reason: reason}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.BookingOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// reason reads the optional {"reason": ...} body of reject and cancel.
func (h BookingHandler) reason(c *gin.Context) (string, bool) {
	if c.Request.ContentLength == 0 {
		return "", true
	}
	var req reasonRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return "", false
	}
	return req.Reason, true
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
