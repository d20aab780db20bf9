package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

func TestNextVote(t *testing.T) {
	tests := []struct {
		prev      models.VoteState
		requested models.VoteState
		delta     int
		next      models.VoteState
	}{
		{models.VoteNone, models.VoteUp, 1, models.VoteUp},
		{models.VoteNone, models.VoteDown, -1, models.VoteDown},
		{"", models.VoteUp, 1, models.VoteUp},
		{models.VoteUp, models.VoteUp, -1, models.VoteNone},
		{models.VoteDown, models.VoteDown, 1, models.VoteNone},
		{models.VoteUp, models.VoteDown, -2, models.VoteDown},
		{models.VoteDown, models.VoteUp, 2, models.VoteUp},
	}

	for _, tt := range tests {
		t.Run(string(tt.prev)+"->"+string(tt.requested), func(t *testing.T) {
			delta, next, err := NextVote(tt.prev, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.delta, delta)
			assert.Equal(t, tt.next, next)
		})
	}
}

func TestNextVoteRejectsNone(t *testing.T) {
	_, _, err := NextVote(models.VoteUp, models.VoteNone)
	assert.ErrorIs(t, err, ErrInvalidVote)
	_, _, err = NextVote(models.VoteUp, "sideways")
	assert.ErrorIs(t, err, ErrInvalidVote)
}

func pollOf(selected *int, votes ...int) models.PollState {
	state := models.PollState{SelectedOptionID: selected}
	for i, v := range votes {
		state.Options = append(state.Options, models.PollOption{ID: i + 1, Votes: v})
	}
	return state
}

func intp(v int) *int { return &v }

func TestNextPoll(t *testing.T) {
	tests := []struct {
		name     string
		state    models.PollState
		option   int
		votes    []int
		selected *int
	}{
		{"first pick", pollOf(nil, 3, 5), 1, []int{4, 5}, intp(1)},
		{"move selection", pollOf(intp(1), 4, 5), 2, []int{3, 6}, intp(2)},
		{"toggle off", pollOf(intp(2), 3, 6), 2, []int{3, 5}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NextPoll(tt.state, tt.option)
			require.NoError(t, err)
			for i, want := range tt.votes {
				assert.Equal(t, want, next.Options[i].Votes, "option %d", i+1)
			}
			assert.Equal(t, tt.selected, next.SelectedOptionID)
		})
	}
}

func TestNextPollDoesNotMutateInput(t *testing.T) {
	state := pollOf(intp(1), 4, 5)
	_, err := NextPoll(state, 2)
	require.NoError(t, err)
	assert.Equal(t, pollOf(intp(1), 4, 5), state)
}

func TestNextPollUnknownOption(t *testing.T) {
	_, err := NextPoll(pollOf(nil, 1, 1), 9)
	assert.ErrorIs(t, err, ErrUnknownTarget)
}
