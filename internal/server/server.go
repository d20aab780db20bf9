package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/reddit-clone/community/internal/alerts"
	"github.com/emilythestrangee/reddit-clone/community/internal/config"
	"github.com/emilythestrangee/reddit-clone/community/internal/events"
	"github.com/emilythestrangee/reddit-clone/community/internal/handlers"
	"github.com/emilythestrangee/reddit-clone/community/internal/hubapi"
	"github.com/emilythestrangee/reddit-clone/community/internal/middleware"
	"github.com/emilythestrangee/reddit-clone/community/internal/moderation"
	"github.com/emilythestrangee/reddit-clone/community/internal/reconcile"
	"github.com/emilythestrangee/reddit-clone/community/internal/session"
	"github.com/emilythestrangee/reddit-clone/community/internal/views"
)

// Upstream is the hub API plus its health check.
type Upstream interface {
	handlers.Backend
	Health(ctx context.Context) map[string]string
}

type Server struct {
	cfg      config.Config
	upstream Upstream
	verifier *session.Verifier
	handler  *handlers.Handler
	views    *views.Store
	limiter  *middleware.IPRateLimiter
}

// New wires the server's collaborators. moderator and notifier may be nil,
// in which case they are built from cfg.
func New(cfg config.Config, upstream Upstream, moderator moderation.Moderator, notifier alerts.Notifier) *Server {
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if moderator == nil {
		moderator = moderation.New(moderation.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.ModerationModel,
			Timeout: cfg.ModerationTimeout,
		})
	}
	if notifier == nil {
		notifier = alerts.New(alerts.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFrom,
			To:         cfg.ModerationAlertTo,
		})
	}

	hub := events.NewHub(cfg.CORSOrigins)
	store := views.NewStore(upstream, views.Options{
		MinStake: cfg.MinStake,
		IdleTTL:  cfg.ViewIdleTTL,
		OnEvent:  func(id string, ev reconcile.Event) { hub.Publish(id, ev) },
		OnClose:  hub.CloseTopic,
	})

	return &Server{
		cfg:      cfg,
		upstream: upstream,
		verifier: session.NewVerifier(cfg.JWTSecret),
		views:    store,
		limiter:  middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		handler: handlers.NewHandler(handlers.Deps{
			Backend:           upstream,
			Views:             store,
			Moderator:         moderator,
			Alerts:            notifier,
			Events:            hub,
			EnforceModeration: cfg.ModerationEnforce,
			AlertTimeout:      cfg.ModerationTimeout,
		}),
	}
}

// NewServer builds the production server against the configured hub API.
func NewServer(cfg config.Config) (*http.Server, *Server, error) {
	client, err := hubapi.New(hubapi.Config{BaseURL: cfg.HubAPIURL, Timeout: cfg.HubAPITimeout})
	if err != nil {
		return nil, nil, fmt.Errorf("hub api client: %w", err)
	}
	s := New(cfg, client, nil, nil)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Printf("Server starting on port %s, hub api %s", cfg.Port, cfg.HubAPIURL)
	return srv, s, nil
}

// Background runs the view janitor and rate limiter pruning until ctx is done.
func (s *Server) Background(ctx context.Context) {
	go s.views.Janitor(ctx, time.Minute)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.limiter.Prune(10 * time.Minute)
			}
		}
	}()
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(gin.DefaultWriter), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: !allowsAny(s.cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"upstream": s.upstream.Health(c.Request.Context()),
		})
	})

	h := s.handler
	write := middleware.RateLimit(s.limiter)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(s.verifier))
	{
		api.GET("/me", h.Auth.GetMe)

		api.GET("/hubs/organization/:orgId", h.Post.ListHubs)
		api.POST("/hubs", write, h.Post.CreateHub)
		api.GET("/hubs/:hubId/posts", h.Post.ListPosts)

		api.POST("/posts", write, h.Post.CreatePost)
		api.DELETE("/posts/:id", write, h.Post.DeletePost)

		api.POST("/views", h.View.Open)
		api.GET("/views/:viewId", h.View.Get)
		api.POST("/views/:viewId/refresh", h.View.Refresh)
		api.DELETE("/views/:viewId", h.View.Close)
		api.POST("/views/:viewId/votes", write, h.View.Vote)
		api.POST("/views/:viewId/polls/:optionId/vote", write, h.View.PollVote)
		api.GET("/views/:viewId/events", h.View.Events)

		api.POST("/views/:viewId/comments/:commentId/invest", write, h.Comment.Invest)
		api.POST("/views/:viewId/comments/:commentId/view", h.Comment.RecordView)
		api.GET("/views/:viewId/balance", h.Comment.Balance)

		api.POST("/moderation", write, h.Moderation.Check)
	}

	return r
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
