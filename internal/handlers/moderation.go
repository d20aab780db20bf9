package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/community/internal/moderation"
)

type ModerationHandler struct {
	moderator moderation.Moderator
}

// Check returns the moderation verdict for arbitrary content.
func (h *ModerationHandler) Check(c *gin.Context) {
	var input struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	c.JSON(http.StatusOK, h.moderator.Moderate(c.Request.Context(), input.Content))
}
