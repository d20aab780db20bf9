package reconcile

import (
	"fmt"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

type voteKey struct {
	prev, requested models.VoteState
}

type voteStep struct {
	delta int
	next  models.VoteState
}

var voteTable = map[voteKey]voteStep{
	{models.VoteNone, models.VoteUp}:   {+1, models.VoteUp},
	{models.VoteNone, models.VoteDown}: {-1, models.VoteDown},
	{models.VoteUp, models.VoteUp}:     {-1, models.VoteNone},
	{models.VoteDown, models.VoteDown}: {+1, models.VoteNone},
	{models.VoteUp, models.VoteDown}:   {-2, models.VoteDown},
	{models.VoteDown, models.VoteUp}:   {+2, models.VoteUp},
}

// NextVote returns the count delta and the resulting state when a user whose
// current vote is prev presses requested.
func NextVote(prev, requested models.VoteState) (int, models.VoteState, error) {
	step, ok := voteTable[voteKey{prev.Normalize(), requested}]
	if !ok {
		return 0, prev, fmt.Errorf("%w: %q", ErrInvalidVote, string(requested))
	}
	return step.delta, step.next, nil
}

// NextPoll returns the poll after the user picks optionID. Picking the
// selected option clears the selection; picking another moves it.
func NextPoll(state models.PollState, optionID int) (models.PollState, error) {
	next := state.Clone()
	idx := next.Option(optionID)
	if idx < 0 {
		return state, fmt.Errorf("%w: poll option %d", ErrUnknownTarget, optionID)
	}

	if sel := next.SelectedOptionID; sel != nil {
		if *sel == optionID {
			next.Options[idx].Votes--
			next.SelectedOptionID = nil
			return next, nil
		}
		if old := next.Option(*sel); old >= 0 {
			next.Options[old].Votes--
		}
	}

	next.Options[idx].Votes++
	id := optionID
	next.SelectedOptionID = &id
	return next, nil
}
