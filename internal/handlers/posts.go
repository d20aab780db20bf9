package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/community/internal/alerts"
	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

type PostHandler struct {
	deps Deps
}

func (h *PostHandler) ListHubs(c *gin.Context) {
	orgID, ok := intParam(c, "orgId")
	if !ok {
		return
	}

	hubs, err := h.deps.Backend.ListHubs(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	if hubs == nil {
		hubs = []models.Hub{}
	}
	c.JSON(http.StatusOK, hubs)
}

func (h *PostHandler) CreateHub(c *gin.Context) {
	var input models.CreateHubRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hub, err := h.deps.Backend.CreateHub(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hub)
}

func (h *PostHandler) ListPosts(c *gin.Context) {
	hubID, ok := intParam(c, "hubId")
	if !ok {
		return
	}

	posts, err := h.deps.Backend.ListPosts(c.Request.Context(), hubID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// CreatePost screens the content with the moderator before handing it to the
// backend. The verdict is advisory unless enforcement is switched on.
func (h *PostHandler) CreatePost(c *gin.Context) {
	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}
	input.UserID = user.ID

	text := input.Content
	if input.Title != nil && *input.Title != "" {
		text = *input.Title + "\n\n" + input.Content
	}
	verdict := h.deps.Moderator.Moderate(c.Request.Context(), strings.TrimSpace(text))

	if h.deps.EnforceModeration && verdict.Action == models.ActionRemove {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "Content rejected by moderation",
			"moderation": verdict,
		})
		return
	}

	post, err := h.deps.Backend.CreatePost(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	post.ModerationStatus = string(verdict.Action)

	if alerts.Required(verdict) {
		alerts.Dispatch(h.deps.Alerts, alerts.Alert{
			HubID:   input.HubID,
			PostID:  post.ID,
			Author:  user.Username,
			Content: text,
			Result:  verdict,
		}, h.deps.AlertTimeout)
	}

	c.JSON(http.StatusCreated, gin.H{
		"post":       post,
		"moderation": verdict,
	})
}

// DeletePost removes a post or comment
func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.deps.Backend.DeletePost(c.Request.Context(), postID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
