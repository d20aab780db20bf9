package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

type identity struct {
	user models.User
	ok   bool
}

func (i identity) CurrentUser(context.Context) (models.User, bool) { return i.user, i.ok }

var alice = identity{user: models.User{ID: 7, Username: "alice"}, ok: true}

// fakeBackend records requests. When release is set every request blocks
// until a result is sent on it; started is signalled once per request.
type fakeBackend struct {
	mu          sync.Mutex
	votes       []models.VoteRequest
	pollVotes   []int
	invests     []int
	views       []int
	inFlight    int
	maxInFlight int

	started chan struct{}
	release chan error

	voteErr    error
	investErr  error
	balanceErr error
	balance    models.Balance
}

func (f *fakeBackend) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
}

func (f *fakeBackend) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeBackend) wait(fallback error) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		return <-f.release
	}
	return fallback
}

func (f *fakeBackend) Vote(_ context.Context, _ int, req models.VoteRequest) error {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	f.votes = append(f.votes, req)
	f.mu.Unlock()
	return f.wait(f.voteErr)
}

func (f *fakeBackend) VotePoll(_ context.Context, optionID, _ int) error {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	f.pollVotes = append(f.pollVotes, optionID)
	f.mu.Unlock()
	return f.wait(f.voteErr)
}

func (f *fakeBackend) Invest(_ context.Context, _, _, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invests = append(f.invests, amount)
	return f.investErr
}

func (f *fakeBackend) Balance(_ context.Context, userID int) (models.Balance, error) {
	if f.balanceErr != nil {
		return models.Balance{}, f.balanceErr
	}
	b := f.balance
	b.UserID = userID
	return b, nil
}

func (f *fakeBackend) RecordView(_ context.Context, commentID, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, commentID)
	return nil
}

func (f *fakeBackend) sentVotes() []models.VoteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.VoteRequest(nil), f.votes...)
}

func (f *fakeBackend) sentPollVotes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pollVotes...)
}

func samplePost() models.Post {
	return models.Post{
		ID:       42,
		HubID:    1,
		Title:    "Lunch options",
		PostType: models.PostTypePoll,
		Votes:    5,
		UserVote: models.VoteNone,
		Comments: []models.Comment{
			{ID: 100, Content: "pizza", Votes: 2, UserVote: models.VoteUp},
			{ID: 101, Content: "tacos", Votes: 0},
		},
		PollOptions: []models.PollOption{
			{ID: 1, Text: "pizza", Votes: 3},
			{ID: 2, Text: "tacos", Votes: 5},
		},
	}
}

type harness struct {
	r       *Reconciler
	backend *fakeBackend
	events  chan Event
}

func newHarness(t *testing.T, backend *fakeBackend) *harness {
	t.Helper()
	h := &harness{backend: backend, events: make(chan Event, 128)}
	h.r = New(backend, backend, alice, Options{Listener: func(ev Event) { h.events <- ev }})
	h.r.Load(samplePost())
	h.next(t, EventLoaded)
	return h
}

// next returns the next event of the given kind, skipping others.
func (h *harness) next(t *testing.T, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func waitStarted(t *testing.T, f *fakeBackend) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request")
	}
}

var (
	postTarget    = models.VoteTarget{ID: 42}
	commentTarget = models.VoteTarget{ID: 100, IsComment: true}
)


func TestApplyVoteSuccess(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	out, err := h.r.ApplyVote(context.Background(), postTarget, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Delta)
	assert.Equal(t, models.Votable{ID: 42, Votes: 6, UserVote: models.VoteUp}, out.Current)
	assert.Equal(t, 5, out.Before.Votes)
	assert.Equal(t, models.VoteNone, out.Before.UserVote)

	sent := h.backend.sentVotes()
	require.Len(t, sent, 1)
	assert.Equal(t, models.VoteRequest{UserID: 7, VoteType: models.VoteUp}, sent[0])

	post := h.r.Post()
	assert.Equal(t, 6, post.Votes)
	assert.Equal(t, models.VoteUp, post.UserVote)
}

func TestApplyVoteFailureReverts(t *testing.T) {
	backend := &fakeBackend{voteErr: errors.New("backend down")}
	h := newHarness(t, backend)

	out, err := h.r.ApplyVote(context.Background(), commentTarget, models.VoteDown)
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.True(t, out.Reverted)
	assert.Equal(t, 0, out.Applied.Votes)
	assert.Equal(t, models.VoteDown, out.Applied.UserVote)

	got, _ := h.r.Votable(commentTarget)
	assert.Equal(t, 2, got.Votes)
	assert.Equal(t, models.VoteUp, got.UserVote)

	ev := h.next(t, EventReverted)
	require.NotNil(t, ev.Vote)
	assert.Equal(t, 2, ev.Vote.Votes)
	assert.NotEmpty(t, ev.Error)
}

func TestApplyVoteTwiceRestores(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	for i := 0; i < 2; i++ {
		_, err := h.r.ApplyVote(context.Background(), postTarget, models.VoteDown)
		require.NoError(t, err, "vote %d", i)
	}
	got, _ := h.r.Votable(postTarget)
	assert.Equal(t, 5, got.Votes)
	assert.Equal(t, models.VoteNone, got.UserVote)

	sent := h.backend.sentVotes()
	require.Len(t, sent, 2)
	assert.Equal(t, models.VoteNone, sent[1].VoteType, "second press removes the vote")
}

func TestApplyVoteSwitchIsTwo(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	out, err := h.r.ApplyVote(context.Background(), commentTarget, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, -2, out.Delta)
	assert.Equal(t, 0, out.Current.Votes)
}

func TestApplyVoteRejectsWithoutChange(t *testing.T) {
	backend := &fakeBackend{}
	h := newHarness(t, backend)
	anon := New(backend, backend, identity{}, Options{})
	anon.Load(samplePost())

	tests := []struct {
		name   string
		r      *Reconciler
		target models.VoteTarget
		vote   models.VoteState
		want   error
	}{
		{"unauthenticated", anon, postTarget, models.VoteUp, ErrUnauthenticated},
		{"unknown comment", h.r, models.VoteTarget{ID: 999, IsComment: true}, models.VoteUp, ErrUnknownTarget},
		{"wrong post", h.r, models.VoteTarget{ID: 41}, models.VoteUp, ErrUnknownTarget},
		{"none is not a press", h.r, postTarget, models.VoteNone, ErrInvalidVote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.r.Post()
			_, err := tt.r.ApplyVote(context.Background(), tt.target, tt.vote)
			require.ErrorIs(t, err, tt.want)
			after := tt.r.Post()
			assert.Equal(t, before.Votes, after.Votes)
			assert.Equal(t, before.UserVote, after.UserVote)
		})
	}
	assert.Empty(t, backend.sentVotes())
}

func TestApplyVoteBeforeLoad(t *testing.T) {
	r := New(&fakeBackend{}, &fakeBackend{}, alice, Options{})

	_, err := r.ApplyVote(context.Background(), postTarget, models.VoteUp)
	assert.ErrorIs(t, err, ErrUnknownTarget)
	_, err = r.ApplyPollVote(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestApplyVoteCanceledContextReverts(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := h.r.ApplyVote(ctx, postTarget, models.VoteUp)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.True(t, out.Reverted)
	assert.Equal(t, 5, out.Current.Votes)
	assert.Empty(t, h.backend.sentVotes())
}

func TestOverlappingVotesAreSerializedAndCoalesced(t *testing.T) {
	backend := &fakeBackend{started: make(chan struct{}), release: make(chan error)}
	h := newHarness(t, backend)

	type result struct {
		out VoteOutcome
		err error
	}
	results := make([]chan result, 3)
	for i := range results {
		results[i] = make(chan result, 1)
	}
	apply := func(i int, vote models.VoteState) {
		go func() {
			out, err := h.r.ApplyVote(context.Background(), postTarget, vote)
			results[i] <- result{out, err}
		}()
	}

	// first vote goes out and blocks
	apply(0, models.VoteUp)
	h.next(t, EventApplied)
	waitStarted(t, backend)

	// two more presses queue behind it
	apply(1, models.VoteDown)
	h.next(t, EventApplied)
	apply(2, models.VoteDown)
	h.next(t, EventApplied)

	got, _ := h.r.Votable(postTarget)
	assert.Equal(t, 5, got.Votes, "optimistic count")
	assert.Equal(t, models.VoteNone, got.UserVote)

	backend.release <- nil
	first := <-results[0]
	require.NoError(t, first.err)

	// the middle press is superseded and never sent
	middle := <-results[1]
	assert.NoError(t, middle.err)
	assert.True(t, middle.out.Coalesced)

	waitStarted(t, backend)
	backend.release <- nil
	last := <-results[2]
	require.NoError(t, last.err)

	sent := backend.sentVotes()
	require.Len(t, sent, 2)
	assert.Equal(t, models.VoteUp, sent[0].VoteType)
	assert.Equal(t, models.VoteNone, sent[1].VoteType)
	assert.Equal(t, 1, backend.maxInFlight, "at most one request in flight")

	got, _ = h.r.Votable(postTarget)
	assert.Equal(t, 5, got.Votes)
	assert.Equal(t, models.VoteNone, got.UserVote)
}

func TestEarlierFailureDoesNotRevertNewerVote(t *testing.T) {
	backend := &fakeBackend{started: make(chan struct{}), release: make(chan error)}
	h := newHarness(t, backend)

	firstDone := make(chan error, 1)
	go func() {
		_, err := h.r.ApplyVote(context.Background(), postTarget, models.VoteUp)
		firstDone <- err
	}()
	h.next(t, EventApplied)
	waitStarted(t, backend)

	secondDone := make(chan VoteOutcome, 1)
	go func() {
		out, _ := h.r.ApplyVote(context.Background(), postTarget, models.VoteDown)
		secondDone <- out
	}()
	h.next(t, EventApplied)

	backend.release <- errors.New("boom")
	require.ErrorIs(t, <-firstDone, ErrRequestFailed)

	got, _ := h.r.Votable(postTarget)
	assert.Equal(t, models.VoteDown, got.UserVote, "newer optimistic vote was clobbered")
	assert.Equal(t, 4, got.Votes)

	waitStarted(t, backend)
	backend.release <- nil
	out := <-secondDone
	assert.Equal(t, 4, out.Current.Votes)
	assert.Equal(t, models.VoteDown, out.Current.UserVote)
}

func TestApplyPollVote(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	steps := []struct {
		option   int
		selected *int
	}{
		{1, intp(1)},
		{2, intp(2)},
		{2, nil},
	}
	for _, step := range steps {
		out, err := h.r.ApplyPollVote(context.Background(), step.option)
		require.NoError(t, err, "poll vote %d", step.option)
		assert.Equal(t, step.selected, out.Current.SelectedOptionID, "after picking %d", step.option)
	}

	poll := h.r.Poll()
	assert.Equal(t, 3, poll.Options[0].Votes)
	assert.Equal(t, 5, poll.Options[1].Votes)
	assert.Len(t, h.backend.sentPollVotes(), 3, "every poll vote is sent")
}

func TestApplyPollVoteUnknownOption(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	_, err := h.r.ApplyPollVote(context.Background(), 77)
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.Empty(t, h.backend.sentPollVotes())
}

func TestPollFailureAbortsQueued(t *testing.T) {
	backend := &fakeBackend{started: make(chan struct{}), release: make(chan error)}
	h := newHarness(t, backend)

	errs := make([]chan error, 3)
	for i := range errs {
		errs[i] = make(chan error, 1)
	}
	pick := func(i, option int) {
		go func() {
			_, err := h.r.ApplyPollVote(context.Background(), option)
			errs[i] <- err
		}()
	}

	pick(0, 1)
	h.next(t, EventApplied)
	waitStarted(t, backend)
	pick(1, 2)
	h.next(t, EventApplied)
	pick(2, 2)
	h.next(t, EventApplied)

	backend.release <- errors.New("poll closed")
	require.ErrorIs(t, <-errs[0], ErrRequestFailed)
	for i := 1; i < 3; i++ {
		assert.ErrorIs(t, <-errs[i], ErrAborted, "queued poll vote %d", i)
	}

	poll := h.r.Poll()
	assert.Nil(t, poll.SelectedOptionID)
	assert.Equal(t, 3, poll.Options[0].Votes)
	assert.Equal(t, 5, poll.Options[1].Votes)
	assert.Len(t, backend.sentPollVotes(), 1, "only the first poll vote is sent")
}

func TestReloadDuringInFlightVote(t *testing.T) {
	backend := &fakeBackend{started: make(chan struct{}), release: make(chan error)}
	h := newHarness(t, backend)

	done := make(chan error, 1)
	go func() {
		_, err := h.r.ApplyVote(context.Background(), postTarget, models.VoteUp)
		done <- err
	}()
	h.next(t, EventApplied)
	waitStarted(t, backend)

	fresh := samplePost()
	fresh.Votes = 100
	h.r.Load(fresh)

	backend.release <- errors.New("timeout")
	require.ErrorIs(t, <-done, ErrRequestFailed)

	got, _ := h.r.Votable(postTarget)
	assert.Equal(t, 100, got.Votes, "reloaded view was clobbered")
	assert.Equal(t, models.VoteNone, got.UserVote)
}

func TestApplyInvestment(t *testing.T) {
	backend := &fakeBackend{balance: models.Balance{Points: 90}}
	h := newHarness(t, backend)

	for _, amount := range []int{9, 0} {
		_, err := h.r.ApplyInvestment(context.Background(), 100, amount)
		require.ErrorIs(t, err, ErrInvalidAmount, "amount %d", amount)
	}
	require.Empty(t, backend.invests)

	out, err := h.r.ApplyInvestment(context.Background(), 100, 10)
	require.NoError(t, err)
	assert.False(t, out.Stale)
	require.NotNil(t, out.Balance)
	assert.Equal(t, models.Balance{UserID: 7, Points: 90}, *out.Balance)
	assert.Equal(t, models.InvestmentIntent{CommentID: 100, Amount: 10}, out.Intent)

	b, ok := h.r.Balance()
	assert.True(t, ok)
	assert.Equal(t, 90, b.Points)
}

func TestApplyInvestmentFailures(t *testing.T) {
	t.Run("invest rejected", func(t *testing.T) {
		backend := &fakeBackend{investErr: errors.New("insufficient points")}
		h := newHarness(t, backend)

		out, err := h.r.ApplyInvestment(context.Background(), 100, 25)
		require.ErrorIs(t, err, ErrRequestFailed)
		assert.Equal(t, 25, out.Intent.Amount)
	})

	t.Run("balance reload fails", func(t *testing.T) {
		backend := &fakeBackend{balanceErr: errors.New("points service down")}
		h := newHarness(t, backend)
		h.r.LoadBalance(models.Balance{UserID: 7, Points: 50})

		out, err := h.r.ApplyInvestment(context.Background(), 100, 10)
		require.NoError(t, err)
		assert.True(t, out.Stale)
		require.NotNil(t, out.Balance)
		assert.Equal(t, 50, out.Balance.Points)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		backend := &fakeBackend{}
		r := New(backend, backend, identity{}, Options{})

		_, err := r.ApplyInvestment(context.Background(), 100, 10)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Empty(t, backend.invests)
	})
}

func TestMinStakeOption(t *testing.T) {
	backend := &fakeBackend{}
	r := New(backend, backend, alice, Options{MinStake: 50})
	assert.Equal(t, 50, r.MinStake())

	_, err := r.ApplyInvestment(context.Background(), 1, 49)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, DefaultMinStake, New(backend, backend, alice, Options{}).MinStake())
}

func TestRecordView(t *testing.T) {
	backend := &fakeBackend{}
	h := newHarness(t, backend)

	require.NoError(t, h.r.RecordView(context.Background(), 101))
	assert.Equal(t, []int{101}, backend.views)
}

func TestRecordViewRejectsForeignComment(t *testing.T) {
	backend := &fakeBackend{}
	h := newHarness(t, backend)

	for _, id := range []int{999, 42} {
		err := h.r.RecordView(context.Background(), id)
		assert.ErrorIs(t, err, ErrUnknownTarget, "comment %d", id)
	}
	assert.Empty(t, backend.views)

	anon := New(backend, backend, identity{}, Options{})
	anon.Load(samplePost())
	assert.ErrorIs(t, anon.RecordView(context.Background(), 101), ErrUnauthenticated)
	assert.Empty(t, backend.views)
}

func TestLoadIsolatesCaller(t *testing.T) {
	post := samplePost()
	r := New(&fakeBackend{}, &fakeBackend{}, alice, Options{})
	r.Load(post)
	post.Comments[0].Votes = 999
	post.PollOptions[0].Votes = 999

	got := r.Post()
	assert.Equal(t, 2, got.Comments[0].Votes, "view shares memory with the loaded post")
	assert.Equal(t, 3, got.PollOptions[0].Votes)
}
