package hubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

func (c *Client) CreateHub(ctx context.Context, req models.CreateHubRequest) (models.Hub, error) {
	var hub models.Hub
	err := c.do(ctx, "create_hub", http.MethodPost, "/hubs/", nil, req, &hub)
	return hub, err
}

func (c *Client) ListHubs(ctx context.Context, orgID int) ([]models.Hub, error) {
	var hubs []models.Hub
	path := fmt.Sprintf("/hubs/organization/%d", orgID)
	if err := c.do(ctx, "list_hubs", http.MethodGet, path, nil, nil, &hubs); err != nil {
		return nil, err
	}
	if hubs == nil {
		hubs = []models.Hub{}
	}
	return hubs, nil
}

// ListPosts returns the top-level posts of a hub.
func (c *Client) ListPosts(ctx context.Context, hubID int) ([]models.Post, error) {
	var posts []models.Post
	path := fmt.Sprintf("/hubs/%d/posts", hubID)
	if err := c.do(ctx, "list_posts", http.MethodGet, path, nil, nil, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// CreatePost creates a post, comment, reply or poll and returns it as the
// backend stored it.
func (c *Client) CreatePost(ctx context.Context, req models.CreatePostRequest) (models.Post, error) {
	var post models.Post
	err := c.do(ctx, "create_post", http.MethodPost, "/hubs/posts", nil, req, &post)
	return post, err
}

// GetPost fetches a post with its comments; user_vote and user_poll_vote are
// resolved for userID when it is non-zero.
func (c *Client) GetPost(ctx context.Context, postID, userID int) (models.Post, error) {
	var query url.Values
	if userID > 0 {
		query = url.Values{"userId": {strconv.Itoa(userID)}}
	}
	var post models.Post
	path := fmt.Sprintf("/hubs/posts/%d", postID)
	err := c.do(ctx, "get_post", http.MethodGet, path, query, nil, &post)
	return post, err
}

func (c *Client) DeletePost(ctx context.Context, postID int) error {
	path := fmt.Sprintf("/hubs/posts/%d", postID)
	return c.do(ctx, "delete_post", http.MethodDelete, path, nil, nil, nil)
}

// Vote records the caller's resulting vote state. VoteNone removes the vote.
func (c *Client) Vote(ctx context.Context, postID int, req models.VoteRequest) error {
	path := fmt.Sprintf("/hubs/posts/%d/vote", postID)
	return c.do(ctx, "vote", http.MethodPost, path, nil, req, nil)
}

// VotePoll toggles or moves the caller's poll selection server-side.
func (c *Client) VotePoll(ctx context.Context, optionID, userID int) error {
	path := fmt.Sprintf("/hubs/posts/polls/%d/vote", optionID)
	return c.do(ctx, "vote_poll", http.MethodPost, path, nil, models.PollVoteRequest{UserID: userID}, nil)
}
