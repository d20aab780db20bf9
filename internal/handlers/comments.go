package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/community/internal/reconcile"
	"github.com/emilythestrangee/reddit-clone/community/internal/views"
)

// CommentHandler serves the points actions on a view's comments.
type CommentHandler struct {
	views *views.Store
}

// Invest stakes points on a comment. Failures echo the amount back so the
// client can offer a retry.
func (h *CommentHandler) Invest(c *gin.Context) {
	v, ok := lookupView(c, h.views)
	if !ok {
		return
	}
	commentID, ok := intParam(c, "commentId")
	if !ok {
		return
	}
	var input struct {
		Amount int `json:"amount"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := v.ApplyInvestment(c.Request.Context(), commentID, input.Amount)
	if err != nil {
		body := gin.H{
			"error":      errorMessage(err),
			"comment_id": commentID,
			"amount":     input.Amount,
		}
		if errors.Is(err, reconcile.ErrInvalidAmount) {
			body["min_stake"] = v.MinStake()
		}
		c.JSON(statusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CommentHandler) RecordView(c *gin.Context) {
	v, ok := lookupView(c, h.views)
	if !ok {
		return
	}
	commentID, ok := intParam(c, "commentId")
	if !ok {
		return
	}

	if err := v.RecordView(c.Request.Context(), commentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *CommentHandler) Balance(c *gin.Context) {
	v, ok := lookupView(c, h.views)
	if !ok {
		return
	}
	b, ok := v.Balance()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Balance unavailable"})
		return
	}
	c.JSON(http.StatusOK, b)
}
