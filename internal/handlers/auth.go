package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves the session's own identity. Login and registration
// belong to the hub backend, which issues the tokens.
type AuthHandler struct{}

func (h *AuthHandler) GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}
