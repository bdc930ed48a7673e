package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edclub/internal/attendance"
	"edclub/internal/auth"
)

func (h *Handlers) progress(c *gin.Context) {
	progress, err := h.Attendance.Progress(c.Request.Context(), c.GetString(auth.CtxUserID))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

func (h *Handlers) rank(c *gin.Context) {
	rank, err := h.Attendance.Rank(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	if rank == nil {
		rank = []attendance.RankRow{}
	}
	c.JSON(http.StatusOK, gin.H{"rank": rank})
}
