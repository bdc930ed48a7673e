package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"edclub/internal/attendance"
	"edclub/internal/auth"
	"edclub/internal/queue"
)

type submitAttendanceRequest struct {
	EventID string `json:"eventId" binding:"required,uuid"`
	Status  string `json:"status" binding:"required,oneof=present absent late"`
}

func (h *Handlers) listAttendance(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(auth.CtxUserID)

	records, err := h.Attendance.List(ctx, userID, c.Query("eventId"))
	if err != nil {
		serviceError(c, err)
		return
	}
	if records == nil {
		records = []attendance.Attendance{}
	}
	progress, err := h.Attendance.Progress(ctx, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendances": records, "weeklyProgress": progress})
}

func (h *Handlers) submitAttendance(c *gin.Context) {
	var req submitAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	userID := c.GetString(auth.CtxUserID)

	att, err := h.Attendance.Submit(c.Request.Context(), userID, req.EventID, req.Status)
	if err != nil {
		serviceError(c, err)
		return
	}

	// Hand the user to the badge worker; a queue failure never fails the
	// submission itself.
	if h.Queue != nil {
		msg := queue.Message{Type: queue.TypeAttendance, Body: []byte(userID)}
		if err := h.Queue.Publish(c.Request.Context(), msg); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"attendance": att})
}
