package hubapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

func (c *Client) Balance(ctx context.Context, userID int) (models.Balance, error) {
	var balance models.Balance
	path := fmt.Sprintf("/points/users/%d", userID)
	if err := c.do(ctx, "balance", http.MethodGet, path, nil, nil, &balance); err != nil {
		return models.Balance{}, err
	}
	if balance.UserID == 0 {
		balance.UserID = userID
	}
	return balance, nil
}

// Invest stakes amount points on a comment. Payout is settled by the backend.
func (c *Client) Invest(ctx context.Context, commentID, userID, amount int) error {
	path := fmt.Sprintf("/points/comments/%d/invest", commentID)
	return c.do(ctx, "invest", http.MethodPost, path, nil, models.InvestRequest{UserID: userID, Amount: amount}, nil)
}

func (c *Client) RecordView(ctx context.Context, commentID, userID int) error {
	path := fmt.Sprintf("/points/comments/%d/view", commentID)
	return c.do(ctx, "record_view", http.MethodPost, path, nil, models.CommentViewRequest{UserID: userID}, nil)
}
