package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edclub/internal/auth"
	"edclub/internal/posts"
)

type createPostRequest struct {
	Content string `json:"content" binding:"required,min=1,max=500"`
}

func (h *Handlers) listPosts(c *gin.Context) {
	feed, err := h.Posts.Feed(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	if feed == nil {
		feed = []posts.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": feed})
}

func (h *Handlers) createPost(c *gin.Context) {
	var req createPostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.Posts.Create(c.Request.Context(), c.GetString(auth.CtxUserID), req.Content)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}
