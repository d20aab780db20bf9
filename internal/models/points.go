package models

// Balance is a user's points as reported by the points service
type Balance struct {
	UserID int `json:"user_id"`
	Points int `json:"points"`
}

// InvestmentIntent stakes points on a comment. Settlement is server-owned.
type InvestmentIntent struct {
	CommentID int `json:"comment_id"`
	Amount    int `json:"amount"`
}

type InvestRequest struct {
	UserID int `json:"user_id"`
	Amount int `json:"amount"`
}

type CommentViewRequest struct {
	UserID int `json:"user_id"`
}
