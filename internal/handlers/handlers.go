package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/community/internal/alerts"
	"github.com/emilythestrangee/reddit-clone/community/internal/events"
	"github.com/emilythestrangee/reddit-clone/community/internal/hubapi"
	"github.com/emilythestrangee/reddit-clone/community/internal/middleware"
	"github.com/emilythestrangee/reddit-clone/community/internal/models"
	"github.com/emilythestrangee/reddit-clone/community/internal/moderation"
	"github.com/emilythestrangee/reddit-clone/community/internal/reconcile"
	"github.com/emilythestrangee/reddit-clone/community/internal/views"
)

// Backend is the hub API as used by the handlers.
type Backend interface {
	views.Backend
	ListHubs(ctx context.Context, orgID int) ([]models.Hub, error)
	CreateHub(ctx context.Context, req models.CreateHubRequest) (models.Hub, error)
	ListPosts(ctx context.Context, hubID int) ([]models.Post, error)
	CreatePost(ctx context.Context, req models.CreatePostRequest) (models.Post, error)
	DeletePost(ctx context.Context, postID int) error
}

type Deps struct {
	Backend   Backend
	Views     *views.Store
	Moderator moderation.Moderator
	Alerts    alerts.Notifier
	Events    *events.Hub
	// EnforceModeration rejects posts the moderator wants removed.
	EnforceModeration bool
	AlertTimeout      time.Duration
}

// Handler combines all handler types
type Handler struct {
	Auth       *AuthHandler
	Post       *PostHandler
	Comment    *CommentHandler
	View       *ViewHandler
	Moderation *ModerationHandler
}

func NewHandler(d Deps) *Handler {
	if d.Alerts == nil {
		d.Alerts = alerts.LogNotifier{}
	}
	if d.AlertTimeout <= 0 {
		d.AlertTimeout = 10 * time.Second
	}
	return &Handler{
		Auth:       &AuthHandler{},
		Post:       &PostHandler{deps: d},
		Comment:    &CommentHandler{views: d.Views},
		View:       &ViewHandler{views: d.Views, events: d.Events},
		Moderation: &ModerationHandler{moderator: d.Moderator},
	}
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return v, true
}

func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return user, ok
}

// statusClientClosedRequest is nginx's code for a caller that went away.
const statusClientClosedRequest = 499

// statusFor maps domain and backend errors to HTTP status codes.
func statusFor(err error) int {
	var apiErr *hubapi.APIError
	switch {
	case errors.Is(err, reconcile.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, reconcile.ErrInvalidAmount), errors.Is(err, reconcile.ErrInvalidVote):
		return http.StatusBadRequest
	case errors.Is(err, reconcile.ErrUnknownTarget), errors.Is(err, views.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrAborted):
		return http.StatusConflict
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError && !errors.Is(err, reconcile.ErrRequestFailed):
		return apiErr.StatusCode
	case errors.Is(err, reconcile.ErrRequestFailed), errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	return http.StatusInternalServerError
}

// errorMessage prefers the backend's own message when there is one.
func errorMessage(err error) string {
	var apiErr *hubapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": errorMessage(err)})
}
