package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// VoteState is the caller's own vote on a post or comment
type VoteState string

const (
	VoteUp   VoteState = "up"
	VoteDown VoteState = "down"
	VoteNone VoteState = "none"
)

// Valid reports whether s is one of the three known states.
func (s VoteState) Valid() bool {
	switch s {
	case VoteUp, VoteDown, VoteNone:
		return true
	}
	return false
}

// Normalize maps the empty value to VoteNone.
func (s VoteState) Normalize() VoteState {
	if s == "" {
		return VoteNone
	}
	return s
}

// MarshalJSON writes none as null, the backend's "no vote" value
func (s VoteState) MarshalJSON() ([]byte, error) {
	switch s.Normalize() {
	case VoteNone:
		return []byte("null"), nil
	case VoteUp, VoteDown:
		return json.Marshal(string(s))
	}
	return nil, fmt.Errorf("invalid vote state %q", string(s))
}

func (s *VoteState) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = VoteNone
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := VoteState(raw).Normalize()
	if !v.Valid() {
		return fmt.Errorf("invalid vote state %q", raw)
	}
	*s = v
	return nil
}

// VoteTarget identifies a votable inside a view
type VoteTarget struct {
	ID        int  `json:"target_id"`
	IsComment bool `json:"is_comment"`
}

// VoteIntent is produced by a single user interaction
type VoteIntent struct {
	VoteTarget
	Requested VoteState `json:"vote"`
}

// Votable is the vote-bearing part of a post or comment
type Votable struct {
	ID       int       `json:"id"`
	Votes    int       `json:"votes"`
	UserVote VoteState `json:"user_vote"`
}

// VoteRequest is the body of POST /hubs/posts/{id}/vote.
// VoteType none is sent as null and means "remove my vote".
type VoteRequest struct {
	UserID    int       `json:"user_id"`
	VoteType  VoteState `json:"vote_type"`
	IsComment bool      `json:"is_comment"`
}

// PollVoteRequest is the body of POST /hubs/posts/polls/{option_id}/vote
type PollVoteRequest struct {
	UserID int `json:"user_id"`
}
