package models

import "time"

type Comment struct {
	ID        int       `json:"id"`
	HubID     int       `json:"hub_id"`
	ParentID  *int      `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	PostType  string    `json:"post_type"`
	Votes     int       `json:"votes"`
	UserVote  VoteState `json:"user_vote"`
	CreatedAt time.Time `json:"created_at"`
}
