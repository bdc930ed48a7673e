package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edclub/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=student teacher"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *Handlers) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	user, session, err := h.Auth.Register(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		serviceError(c, err)
		return
	}
	// session is nil when email confirmation is required; the client shows
	// its "check your email" state.
	c.JSON(http.StatusOK, gin.H{"user": user, "session": session})
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, session, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "session": session})
}

func (h *Handlers) refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// profile aggregates weekly progress, earned badge count and the next
// upcoming events into one dashboard response.
func (h *Handlers) profile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(auth.CtxUserID)

	user, err := h.Auth.UserByID(ctx, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	progress, err := h.Attendance.Progress(ctx, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	badgesEarned, err := h.Badges.CountAwarded(ctx, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	upcoming, err := h.Events.Upcoming(ctx, 5)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
		"stats": gin.H{
			"weeklyProgress": progress,
			"badgesEarned":   badgesEarned,
			"upcomingEvents": upcoming,
		},
	})
}
