package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
	"github.com/emilythestrangee/reddit-clone/community/internal/session"
)

const userKey = "user"

// AuthMiddleware requires a valid session token. The token is read from the
// Authorization header, or from the access_token query parameter for
// websocket upgrades, where browsers cannot set headers.
func AuthMiddleware(verifier *session.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		user, err := verifier.Parse(raw)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, session.ErrMissingToken) {
				msg = "Authorization token required"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(userKey, user)
		c.Request = c.Request.WithContext(session.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

// CurrentUser returns the user set by AuthMiddleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return c.Query("access_token")
}
