package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/community/internal/events"
	"github.com/emilythestrangee/reddit-clone/community/internal/models"
	"github.com/emilythestrangee/reddit-clone/community/internal/reconcile"
	"github.com/emilythestrangee/reddit-clone/community/internal/views"
)

// ViewHandler serves the post views votes and poll votes are applied to.
type ViewHandler struct {
	views  *views.Store
	events *events.Hub
}

func viewBody(v *views.View) gin.H {
	body := gin.H{
		"view_id": v.ID,
		"post":    v.Post(),
	}
	if b, ok := v.Balance(); ok {
		body["balance"] = b
	}
	return body
}

// lookup resolves the :viewId of the request for the current user.
func (h *ViewHandler) lookup(c *gin.Context) (*views.View, bool) {
	return lookupView(c, h.views)
}

func lookupView(c *gin.Context, store *views.Store) (*views.View, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	v, err := store.Get(c.Param("viewId"), user)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "View not found"})
		return nil, false
	}
	return v, true
}

func (h *ViewHandler) Open(c *gin.Context) {
	var input struct {
		PostID int `json:"post_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post_id is required"})
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	v, err := h.views.Open(c.Request.Context(), input.PostID, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewBody(v))
}

func (h *ViewHandler) Get(c *gin.Context) {
	v, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewBody(v))
}

func (h *ViewHandler) Refresh(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	v, err := h.views.Refresh(c.Request.Context(), c.Param("viewId"), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBody(v))
}

func (h *ViewHandler) Close(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.views.Close(c.Param("viewId"), user); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Vote applies an up or down press to the post or one of its comments. The
// response always carries the view as it stands after the call, reverted if
// the backend refused the vote.
func (h *ViewHandler) Vote(c *gin.Context) {
	v, ok := h.lookup(c)
	if !ok {
		return
	}
	var input models.VoteIntent
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := v.ApplyVote(c.Request.Context(), input.VoteTarget, input.Requested)
	if err != nil {
		body := gin.H{"error": errorMessage(err)}
		if errors.Is(err, reconcile.ErrRequestFailed) || errors.Is(err, reconcile.ErrAborted) {
			body["outcome"] = out
			body["post"] = v.Post()
		}
		c.JSON(statusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": out, "post": v.Post()})
}

func (h *ViewHandler) PollVote(c *gin.Context) {
	v, ok := h.lookup(c)
	if !ok {
		return
	}
	optionID, ok := intParam(c, "optionId")
	if !ok {
		return
	}

	out, err := v.ApplyPollVote(c.Request.Context(), optionID)
	if err != nil {
		body := gin.H{"error": errorMessage(err)}
		if errors.Is(err, reconcile.ErrRequestFailed) || errors.Is(err, reconcile.ErrAborted) {
			body["outcome"] = out
			body["poll"] = v.Poll()
		}
		c.JSON(statusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": out, "poll": v.Poll()})
}

// Events streams the view's changes over a websocket.
func (h *ViewHandler) Events(c *gin.Context) {
	v, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := h.events.Serve(v.ID, c.Writer, c.Request); err != nil {
		log.Printf("events upgrade for view %s: %v", v.ID, err)
	}
}
