package models

import "time"

const (
	PostTypeThread   = "thread"
	PostTypeQuestion = "question"
	PostTypeNote     = "note"
	PostTypePoll     = "poll"
	PostTypeReply    = "reply"
)

type Post struct {
	ID               int          `json:"id"`
	HubID            int          `json:"hub_id"`
	UserID           int          `json:"user_id,omitempty"`
	ParentID         *int         `json:"parent_id,omitempty"`
	Title            string       `json:"title"`
	Content          string       `json:"content"`
	PostType         string       `json:"post_type"`
	Author           string       `json:"author"`
	Votes            int          `json:"votes"`
	UserVote         VoteState    `json:"user_vote"`
	CommentCount     int          `json:"comment_count"`
	Comments         []Comment    `json:"comments,omitempty"`
	PollOptions      []PollOption `json:"poll_options,omitempty"`
	UserPollVote     *int         `json:"user_poll_vote,omitempty"`
	ModerationStatus string       `json:"moderation_status,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Clone returns a deep copy, so views never share slices with callers.
func (p Post) Clone() Post {
	out := p
	if p.ParentID != nil {
		id := *p.ParentID
		out.ParentID = &id
	}
	if p.UserPollVote != nil {
		id := *p.UserPollVote
		out.UserPollVote = &id
	}
	if p.Comments != nil {
		out.Comments = make([]Comment, len(p.Comments))
		copy(out.Comments, p.Comments)
		for i := range out.Comments {
			if pid := out.Comments[i].ParentID; pid != nil {
				id := *pid
				out.Comments[i].ParentID = &id
			}
		}
	}
	if p.PollOptions != nil {
		out.PollOptions = make([]PollOption, len(p.PollOptions))
		copy(out.PollOptions, p.PollOptions)
	}
	return out
}

// Poll extracts the poll state carried by the post.
func (p Post) Poll() PollState {
	state := PollState{Options: make([]PollOption, len(p.PollOptions))}
	copy(state.Options, p.PollOptions)
	if p.UserPollVote != nil {
		id := *p.UserPollVote
		state.SelectedOptionID = &id
	}
	return state
}

type CreatePostRequest struct {
	HubID       int      `json:"hub_id" binding:"required"`
	UserID      int      `json:"user_id"`
	Title       *string  `json:"title"`
	Content     string   `json:"content" binding:"required"`
	PostType    string   `json:"post_type" binding:"required"`
	ParentID    *int     `json:"parent_id"`
	PollOptions []string `json:"poll_options,omitempty"`
}
