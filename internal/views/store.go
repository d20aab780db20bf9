// Package views keeps the per-user post views the HTTP surface reconciles
// votes, poll votes and investments against.
package views

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
	"github.com/emilythestrangee/reddit-clone/community/internal/reconcile"
	"github.com/emilythestrangee/reddit-clone/community/internal/session"
)

var ErrNotFound = errors.New("view not found")

// refreshTimeout bounds a shared refresh once no caller can cancel it.
const refreshTimeout = 30 * time.Second

// Backend is the slice of the hub API a view needs.
type Backend interface {
	reconcile.VoteAPI
	reconcile.PointsAPI
	GetPost(ctx context.Context, postID, userID int) (models.Post, error)
}

type Options struct {
	MinStake int
	// IdleTTL is how long a view may go unused before Sweep drops it.
	IdleTTL time.Duration
	// OnEvent receives every change of every view.
	OnEvent func(viewID string, ev reconcile.Event)
	// OnClose is called after a view is closed or swept.
	OnClose func(viewID string)
}

type View struct {
	ID     string
	PostID int
	Owner  models.User
	*reconcile.Reconciler

	lastUsed time.Time
}

type Store struct {
	backend Backend
	opts    Options
	now     func() time.Time
	group   singleflight.Group

	mu    sync.Mutex
	views map[string]*View
}

func NewStore(backend Backend, opts Options) *Store {
	return &Store{
		backend: backend,
		opts:    opts,
		now:     time.Now,
		views:   make(map[string]*View),
	}
}

// Open fetches postID as seen by user, together with the user's balance, and
// registers a new view over it. A balance that cannot be fetched is left
// unset rather than failing the view.
func (s *Store) Open(ctx context.Context, postID int, user models.User) (*View, error) {
	var (
		post    models.Post
		balance *models.Balance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.backend.GetPost(gctx, postID, user.ID)
		if err != nil {
			return fmt.Errorf("fetch post %d: %w", postID, err)
		}
		post = p
		return nil
	})
	g.Go(func() error {
		b, err := s.backend.Balance(gctx, user.ID)
		if err != nil {
			log.Printf("balance for user %d unavailable: %v", user.ID, err)
			return nil
		}
		balance = &b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	v := &View{ID: id, PostID: postID, Owner: user, lastUsed: s.now()}
	v.Reconciler = reconcile.New(s.backend, s.backend, session.ContextIdentity{}, reconcile.Options{
		MinStake: s.opts.MinStake,
		Listener: func(ev reconcile.Event) {
			if s.opts.OnEvent != nil {
				s.opts.OnEvent(id, ev)
			}
		},
	})
	v.Load(post)
	if balance != nil {
		v.LoadBalance(*balance)
	}

	s.mu.Lock()
	s.views[id] = v
	s.mu.Unlock()
	return v, nil
}

// Get returns the view if it exists and belongs to user.
func (s *Store) Get(id string, user models.User) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	if !ok || v.Owner.ID != user.ID {
		return nil, ErrNotFound
	}
	v.lastUsed = s.now()
	return v, nil
}

// Refresh refetches the post and balance and replaces the view with them.
// Concurrent refreshes of one view share a single fetch, which is detached
// from the caller that started it: a caller that gives up returns ctx.Err()
// while the others still get the result.
func (s *Store) Refresh(ctx context.Context, id string, user models.User) (*View, error) {
	v, err := s.Get(id, user)
	if err != nil {
		return nil, err
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(id, func() (any, error) {
		ctx, cancel := context.WithTimeout(fetchCtx, refreshTimeout)
		defer cancel()

		post, err := s.backend.GetPost(ctx, v.PostID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch post %d: %w", v.PostID, err)
		}
		v.Load(post)
		if b, err := s.backend.Balance(ctx, user.ID); err == nil {
			v.LoadBalance(b)
		} else {
			log.Printf("balance for user %d unavailable: %v", user.ID, err)
		}
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return v, nil
	}
}

func (s *Store) Close(id string, user models.User) error {
	s.mu.Lock()
	v, ok := s.views[id]
	if !ok || v.Owner.ID != user.ID {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.views, id)
	s.mu.Unlock()

	s.closed(id)
	return nil
}

// Sweep drops views unused for longer than the idle TTL and returns how many
// were dropped. A zero TTL keeps views forever.
func (s *Store) Sweep(now time.Time) int {
	if s.opts.IdleTTL <= 0 {
		return 0
	}

	var expired []string
	s.mu.Lock()
	for id, v := range s.views {
		if now.Sub(v.lastUsed) > s.opts.IdleTTL {
			delete(s.views, id)
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.closed(id)
	}
	return len(expired)
}

// Janitor sweeps every interval until ctx is done.
func (s *Store) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				log.Printf("swept %d idle views", n)
			}
		}
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *Store) closed(id string) {
	if s.opts.OnClose != nil {
		s.opts.OnClose(id)
	}
}
