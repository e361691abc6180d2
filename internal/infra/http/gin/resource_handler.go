package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"bookly/internal/app/dto"
	resourcesapp "bookly/internal/app/handlers/resources"
	"bookly/internal/app/queries"
)

type ResourceHTTP interface {
	List(c *gin.Context)
	Schedule(c *gin.Context)
}

type ResourceHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h ResourceHandler) List(c *gin.Context) {
	q := resourcesapp.ListResourcesQuery{Category: c.Query("category")}
	result, err := queries.Ask[resourcesapp.ListResourcesQuery, dto.ResourceCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ResourceHandler) Schedule(c *gin.Context) {
	q := resourcesapp.GetScheduleQuery{ResourceID: c.Param("id"), Date: c.Query("date")}
	result, err := queries.Ask[resourcesapp.GetScheduleQuery, dto.Schedule](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ResourceHTTP = ResourceHandler{}
