// Package reconcile applies votes, poll votes and investments to an in-memory
// view of a post and reconciles them with the hub backend.
//
// Votes and poll votes are optimistic: the view changes before the request is
// sent and is put back if the request fails. Requests for one item never
// overlap; they are sent in the order the changes were applied.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

const DefaultMinStake = 10

type VoteAPI interface {
	Vote(ctx context.Context, postID int, req models.VoteRequest) error
	VotePoll(ctx context.Context, optionID, userID int) error
}

type PointsAPI interface {
	Invest(ctx context.Context, commentID, userID, amount int) error
	Balance(ctx context.Context, userID int) (models.Balance, error)
	RecordView(ctx context.Context, commentID, userID int) error
}

// Identity resolves the authenticated user for a call.
type Identity interface {
	CurrentUser(ctx context.Context) (models.User, bool)
}

type Options struct {
	// MinStake is the smallest accepted investment. Zero means DefaultMinStake.
	MinStake int
	// Listener receives every view change. It is called without locks held
	// and must not block.
	Listener func(Event)
}

type Reconciler struct {
	votesAPI VoteAPI
	points   PointsAPI
	identity Identity
	minStake int
	listener func(Event)

	mu      sync.Mutex
	gen     uint64
	post    models.Post
	balance *models.Balance
	votes   map[models.VoteTarget]*lane[models.Votable]
	poll    *lane[models.PollState]
}

func New(votes VoteAPI, points PointsAPI, identity Identity, opts Options) *Reconciler {
	minStake := opts.MinStake
	if minStake <= 0 {
		minStake = DefaultMinStake
	}
	return &Reconciler{
		votesAPI: votes,
		points:   points,
		identity: identity,
		minStake: minStake,
		listener: opts.Listener,
		votes:    make(map[models.VoteTarget]*lane[models.Votable]),
		poll:     &lane[models.PollState]{},
	}
}

func (r *Reconciler) MinStake() int {
	return r.minStake
}

// Load replaces the view wholesale with a freshly fetched post. Commands
// issued before the load never touch the new view.
func (r *Reconciler) Load(post models.Post) {
	r.mu.Lock()
	r.gen++
	r.post = post.Clone()
	r.post.UserVote = r.post.UserVote.Normalize()

	postTarget := models.VoteTarget{ID: r.post.ID}
	r.laneLocked(postTarget).confirmed = models.Votable{ID: r.post.ID, Votes: r.post.Votes, UserVote: r.post.UserVote}
	for i := range r.post.Comments {
		c := &r.post.Comments[i]
		c.UserVote = c.UserVote.Normalize()
		target := models.VoteTarget{ID: c.ID, IsComment: true}
		r.laneLocked(target).confirmed = models.Votable{ID: c.ID, Votes: c.Votes, UserVote: c.UserVote}
	}
	r.poll.confirmed = r.post.Poll()
	r.mu.Unlock()

	r.emit(Event{Kind: EventLoaded})
}

// LoadBalance stores the viewer's balance as reported by the points service.
func (r *Reconciler) LoadBalance(b models.Balance) {
	r.mu.Lock()
	r.balance = &b
	r.mu.Unlock()
	r.emit(Event{Kind: EventBalance, Balance: &b})
}

// Post returns a copy of the current view, optimistic changes included.
func (r *Reconciler) Post() models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.post.Clone()
}

func (r *Reconciler) Votable(target models.VoteTarget) (models.Votable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.votableLocked(target)
}

func (r *Reconciler) Poll() models.PollState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.post.Poll()
}

func (r *Reconciler) Balance() (models.Balance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balance == nil {
		return models.Balance{}, false
	}
	return *r.balance, true
}

// VoteOutcome reports what one ApplyVote call did to the view.
type VoteOutcome struct {
	Before  models.Votable `json:"before"`
	Applied models.Votable `json:"applied"`
	Current models.Votable `json:"current"`
	Delta   int            `json:"delta"`
	// Coalesced is set when a newer vote on the same item was applied before
	// this one's turn came; only the newest request is sent.
	Coalesced bool `json:"coalesced"`
	Reverted  bool `json:"reverted"`
}

// ApplyVote presses up or down on a post or comment of the view.
func (r *Reconciler) ApplyVote(ctx context.Context, target models.VoteTarget, requested models.VoteState) (VoteOutcome, error) {
	if requested != models.VoteUp && requested != models.VoteDown {
		return VoteOutcome{}, fmt.Errorf("%w: %q", ErrInvalidVote, string(requested))
	}
	user, ok := r.identity.CurrentUser(ctx)
	if !ok {
		return VoteOutcome{}, ErrUnauthenticated
	}

	r.mu.Lock()
	before, ok := r.votableLocked(target)
	if !ok {
		r.mu.Unlock()
		return VoteOutcome{}, fmt.Errorf("%w: %s %d", ErrUnknownTarget, targetKind(target), target.ID)
	}
	delta, next, err := NextVote(before.UserVote, requested)
	if err != nil {
		r.mu.Unlock()
		return VoteOutcome{}, err
	}
	applied := models.Votable{ID: before.ID, Votes: before.Votes + delta, UserVote: next}
	r.setVotableLocked(target, applied)
	ln := r.laneLocked(target)
	cmd := ln.enqueue(r.gen, before, applied, delta)
	r.mu.Unlock()

	out := VoteOutcome{Before: cmd.snapshot, Applied: cmd.forward, Delta: cmd.delta}
	r.emitVote(EventApplied, target, applied, nil)

	cmd.turn()
	defer cmd.finish()

	r.mu.Lock()
	if cmd.gen != r.gen {
		out.Current, _ = r.votableLocked(target)
		r.mu.Unlock()
		return out, fmt.Errorf("%w: view reloaded", ErrAborted)
	}
	if cmd.seq != ln.latest {
		out.Coalesced = true
		out.Current, _ = r.votableLocked(target)
		r.mu.Unlock()
		r.emitVote(EventCoalesced, target, applied, nil)
		return out, nil
	}
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return r.failVote(target, ln, cmd, out, err)
	}
	err = r.votesAPI.Vote(ctx, target.ID, models.VoteRequest{
		UserID:    user.ID,
		VoteType:  applied.UserVote,
		IsComment: target.IsComment,
	})
	if err != nil {
		return r.failVote(target, ln, cmd, out, err)
	}

	r.mu.Lock()
	if cmd.gen == r.gen {
		ln.confirmed = cmd.forward
	}
	out.Current, _ = r.votableLocked(target)
	r.mu.Unlock()
	r.emitVote(EventConfirmed, target, applied, nil)
	return out, nil
}

// failVote puts the item back to its confirmed state, unless a newer vote on
// the same item is queued; that one carries the final state instead.
func (r *Reconciler) failVote(target models.VoteTarget, ln *lane[models.Votable], cmd *command[models.Votable], out VoteOutcome, cause error) (VoteOutcome, error) {
	r.mu.Lock()
	if cmd.gen == r.gen && cmd.seq == ln.latest {
		r.setVotableLocked(target, ln.confirmed)
		out.Reverted = true
	}
	out.Current, _ = r.votableLocked(target)
	r.mu.Unlock()

	log.Printf("vote on %s %d failed (reverted=%t): %v", targetKind(target), target.ID, out.Reverted, cause)
	if out.Reverted {
		r.emitVote(EventReverted, target, out.Current, cause)
	}
	return out, fmt.Errorf("%w: %w", ErrRequestFailed, cause)
}

type PollOutcome struct {
	Before   models.PollState `json:"before"`
	Applied  models.PollState `json:"applied"`
	Current  models.PollState `json:"current"`
	Reverted bool             `json:"reverted"`
}

// ApplyPollVote picks optionID on the view's poll. The backend toggles the
// selection per request, so poll requests are never coalesced: when one
// fails, the poll goes back to its confirmed state and the votes queued
// behind it are dropped with ErrAborted.
func (r *Reconciler) ApplyPollVote(ctx context.Context, optionID int) (PollOutcome, error) {
	user, ok := r.identity.CurrentUser(ctx)
	if !ok {
		return PollOutcome{}, ErrUnauthenticated
	}

	r.mu.Lock()
	if r.gen == 0 {
		r.mu.Unlock()
		return PollOutcome{}, fmt.Errorf("%w: no post loaded", ErrUnknownTarget)
	}
	before := r.post.Poll()
	applied, err := NextPoll(before, optionID)
	if err != nil {
		r.mu.Unlock()
		return PollOutcome{}, err
	}
	r.setPollLocked(applied)
	cmd := r.poll.enqueue(r.gen, before, applied, 0)
	r.mu.Unlock()

	out := PollOutcome{Before: cmd.snapshot.Clone(), Applied: cmd.forward.Clone()}
	r.emitPoll(EventApplied, applied, nil)

	cmd.turn()
	defer cmd.finish()

	r.mu.Lock()
	if cmd.gen != r.gen || cmd.epoch != r.poll.epoch {
		out.Current = r.post.Poll()
		r.mu.Unlock()
		r.emitPoll(EventAborted, out.Current, nil)
		return out, ErrAborted
	}
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return r.failPoll(cmd, out, err)
	}
	if err := r.votesAPI.VotePoll(ctx, optionID, user.ID); err != nil {
		return r.failPoll(cmd, out, err)
	}

	r.mu.Lock()
	if cmd.gen == r.gen {
		r.poll.confirmed = cmd.forward.Clone()
	}
	out.Current = r.post.Poll()
	r.mu.Unlock()
	r.emitPoll(EventConfirmed, out.Current, nil)
	return out, nil
}

func (r *Reconciler) failPoll(cmd *command[models.PollState], out PollOutcome, cause error) (PollOutcome, error) {
	r.mu.Lock()
	if cmd.gen == r.gen && cmd.epoch == r.poll.epoch {
		r.poll.epoch++
		r.setPollLocked(r.poll.confirmed)
		out.Reverted = true
	}
	out.Current = r.post.Poll()
	r.mu.Unlock()

	log.Printf("poll vote on post %d failed (reverted=%t): %v", r.postID(), out.Reverted, cause)
	if out.Reverted {
		r.emitPoll(EventReverted, out.Current, cause)
	}
	return out, fmt.Errorf("%w: %w", ErrRequestFailed, cause)
}

type InvestOutcome struct {
	Intent  models.InvestmentIntent `json:"intent"`
	Balance *models.Balance         `json:"balance,omitempty"`
	// Stale is set when the investment went through but the balance could
	// not be reloaded; Balance is then the previous value, if any.
	Stale bool `json:"stale"`
}

// ApplyInvestment stakes amount points on a comment. Nothing is changed
// optimistically: payout is settled by the backend, so on success the
// balance is reloaded from the points service.
func (r *Reconciler) ApplyInvestment(ctx context.Context, commentID, amount int) (InvestOutcome, error) {
	out := InvestOutcome{Intent: models.InvestmentIntent{CommentID: commentID, Amount: amount}}
	if amount <= 0 || amount < r.minStake {
		return out, fmt.Errorf("%w: minimum stake is %d points", ErrInvalidAmount, r.minStake)
	}
	user, ok := r.identity.CurrentUser(ctx)
	if !ok {
		return out, ErrUnauthenticated
	}

	if err := r.points.Invest(ctx, commentID, user.ID, amount); err != nil {
		return out, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	balance, err := r.points.Balance(ctx, user.ID)
	if err != nil {
		log.Printf("balance reload after investing in comment %d failed: %v", commentID, err)
		if prev, ok := r.Balance(); ok {
			out.Balance = &prev
		}
		out.Stale = true
		return out, nil
	}
	r.LoadBalance(balance)
	out.Balance = &balance
	return out, nil
}

// RecordView tells the points service the current user read a comment of
// the loaded post.
func (r *Reconciler) RecordView(ctx context.Context, commentID int) error {
	user, ok := r.identity.CurrentUser(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	target := models.VoteTarget{ID: commentID, IsComment: true}
	r.mu.Lock()
	_, ok = r.votableLocked(target)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrUnknownTarget, targetKind(target), commentID)
	}
	if err := r.points.RecordView(ctx, commentID, user.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return nil
}

func (r *Reconciler) laneLocked(target models.VoteTarget) *lane[models.Votable] {
	ln, ok := r.votes[target]
	if !ok {
		ln = &lane[models.Votable]{}
		r.votes[target] = ln
	}
	return ln
}

func (r *Reconciler) votableLocked(target models.VoteTarget) (models.Votable, bool) {
	if r.gen == 0 {
		return models.Votable{}, false
	}
	if !target.IsComment {
		if target.ID != r.post.ID {
			return models.Votable{}, false
		}
		return models.Votable{ID: r.post.ID, Votes: r.post.Votes, UserVote: r.post.UserVote}, true
	}
	for _, c := range r.post.Comments {
		if c.ID == target.ID {
			return models.Votable{ID: c.ID, Votes: c.Votes, UserVote: c.UserVote}, true
		}
	}
	return models.Votable{}, false
}

func (r *Reconciler) setVotableLocked(target models.VoteTarget, v models.Votable) {
	if !target.IsComment {
		if target.ID == r.post.ID {
			r.post.Votes, r.post.UserVote = v.Votes, v.UserVote
		}
		return
	}
	for i := range r.post.Comments {
		if r.post.Comments[i].ID == target.ID {
			r.post.Comments[i].Votes = v.Votes
			r.post.Comments[i].UserVote = v.UserVote
			return
		}
	}
}

func (r *Reconciler) setPollLocked(state models.PollState) {
	s := state.Clone()
	r.post.PollOptions = s.Options
	r.post.UserPollVote = s.SelectedOptionID
}

func (r *Reconciler) postID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.post.ID
}

func (r *Reconciler) emit(ev Event) {
	if r.listener != nil {
		r.listener(ev)
	}
}

func (r *Reconciler) emitVote(kind EventKind, target models.VoteTarget, v models.Votable, err error) {
	t := target
	ev := Event{Kind: kind, Target: &t, Vote: &v}
	if err != nil {
		ev.Error = err.Error()
	}
	r.emit(ev)
}

func (r *Reconciler) emitPoll(kind EventKind, state models.PollState, err error) {
	s := state.Clone()
	ev := Event{Kind: kind, Poll: &s}
	if err != nil {
		ev.Error = err.Error()
	}
	r.emit(ev)
}

func targetKind(t models.VoteTarget) string {
	if t.IsComment {
		return "comment"
	}
	return "post"
}
