package reconcile

import "github.com/emilythestrangee/reddit-clone/community/internal/models"

type EventKind string

const (
	EventApplied   EventKind = "applied"
	EventConfirmed EventKind = "confirmed"
	EventReverted  EventKind = "reverted"
	EventCoalesced EventKind = "coalesced"
	EventAborted   EventKind = "aborted"
	EventBalance   EventKind = "balance"
	EventLoaded    EventKind = "loaded"
)

// Event describes one change to a view. Exactly one of Vote, Poll or Balance
// is set, except for EventLoaded which carries none.
type Event struct {
	Kind    EventKind          `json:"kind"`
	Target  *models.VoteTarget `json:"target,omitempty"`
	Vote    *models.Votable    `json:"vote,omitempty"`
	Poll    *models.PollState  `json:"poll,omitempty"`
	Balance *models.Balance    `json:"balance,omitempty"`
	Error   string             `json:"error,omitempty"`
}
