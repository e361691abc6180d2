package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"bookly/internal/app/commands"
	"bookly/internal/app/dto"
	waitlistapp "bookly/internal/app/handlers/waitlist"
	"bookly/internal/app/queries"
)

type WaitingListHTTP interface {
	Add(c *gin.Context)
	List(c *gin.Context)
	Remove(c *gin.Context)
	Promote(c *gin.Context)
}

type WaitingListHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type addEntryRequest struct {
	ResourceID string `json:"resource_id" binding:"required"`
	UserID     string `json:"user_id"`
	Date       string `json:"date" binding:"required"`
	StartTime  string `json:"start_time" binding:"required"`
	EndTime    string `json:"end_time" binding:"required"`
	Priority   *int   `json:"priority" binding:"omitempty,gte=0"`
}

func (h WaitingListHandler) Add(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	var req addEntryRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := waitlistapp.AddEntryCommand{
		CommandID:       generateCommandID(),
		Actor:           actor,
		ResourceID:      req.ResourceID,
		UserID:          req.UserID,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Priority:        req.Priority,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[waitlistapp.AddEntryCommand, *dto.WaitingListEntry](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h WaitingListHandler) List(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	q := waitlistapp.ListEntriesQuery{
		Actor:      actor,
		ResourceID: c.Query("resource_id"),
		Date:       c.Query("date"),
	}
	result, err := queries.Ask[waitlistapp.ListEntriesQuery, dto.WaitingListCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h WaitingListHandler) Remove(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	cmd := waitlistapp.RemoveEntryCommand{Actor: actor, EntryID: c.Param("id")}
	result, err := commands.Dispatch[waitlistapp.RemoveEntryCommand, *dto.WaitingListEntry](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h WaitingListHandler) Promote(c *gin.Context) {
	actor, ok := requireActor(c, h.Logger)
	if !ok {
		return
	}
	cmd := waitlistapp.PromoteEntryCommand{Actor: actor, EntryID: c.Param("id")}
	result, err := commands.Dispatch[waitlistapp.PromoteEntryCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ WaitingListHTTP = WaitingListHandler{}
