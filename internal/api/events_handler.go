package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"edclub/internal/events"
)

type createEventRequest struct {
	TeamID   string `json:"teamId" binding:"required,uuid"`
	Title    string `json:"title" binding:"required"`
	StartsAt string `json:"startsAt" binding:"required"`
	EndsAt   string `json:"endsAt" binding:"required"`
}

func (h *Handlers) listEvents(c *gin.Context) {
	evts, err := h.Events.List(c.Request.Context(), c.Query("teamId"))
	if err != nil {
		serviceError(c, err)
		return
	}
	if evts == nil {
		evts = []events.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": evts})
}

func (h *Handlers) createEvent(c *gin.Context) {
	var req createEventRequest
	if !bindJSON(c, &req) {
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		fieldError(c, "startsAt", "must be an RFC3339 timestamp")
		return
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		fieldError(c, "endsAt", "must be an RFC3339 timestamp")
		return
	}
	evt, err := h.Events.Create(c.Request.Context(), req.TeamID, req.Title, startsAt, endsAt)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": evt})
}
