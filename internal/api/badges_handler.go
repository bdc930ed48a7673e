package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"edclub/internal/auth"
	"edclub/internal/badges"
	"edclub/internal/cloudinary"
)

type grantBadgeRequest struct {
	UserID  string `json:"userId" binding:"required,uuid"`
	BadgeID string `json:"badgeId" binding:"required,uuid"`
}

// listBadges returns the catalog joined with the target user's awards.
// Querying another user's badges requires the teacher role.
func (h *Handlers) listBadges(c *gin.Context) {
	callerID := c.GetString(auth.CtxUserID)
	userID := c.Query("userId")
	if userID == "" {
		userID = callerID
	}
	if userID != callerID && c.GetString(auth.CtxRole) != auth.RoleTeacher {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only teachers can perform this action"})
		return
	}

	list, err := h.Badges.ListForUser(c.Request.Context(), userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	if list == nil {
		list = []badges.Badge{}
	}
	c.JSON(http.StatusOK, gin.H{"badges": list})
}

func (h *Handlers) grantBadge(c *gin.Context) {
	var req grantBadgeRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.Badges.Grant(c.Request.Context(), req.UserID, req.BadgeID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": assignment})
}

// uploadBadgeIcon accepts a multipart file or a base64 data URL, stores the
// image and records the resulting URL on the badge.
func (h *Handlers) uploadBadgeIcon(c *gin.Context) {
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	badgeID := c.Param("id")

	var result *cloudinary.UploadResult
	var err error
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err = h.Uploader.UploadBytes(data, header.Filename)
	} else {
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if !bindJSON(c, &body) {
			return
		}
		result, err = h.Uploader.UploadBase64(body.Data)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}

	if err := h.Badges.SetIcon(c.Request.Context(), badgeID, result.SecureURL); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"iconUrl": result.SecureURL})
}
