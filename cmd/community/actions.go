package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
	"github.com/emilythestrangee/reddit-clone/community/internal/views"
)

var voteComment int

func init() {
	voteCmd.Flags().IntVar(&voteComment, "comment", 0, "vote on this comment of the post instead of the post")
	rootCmd.AddCommand(voteCmd, pollCmd, investCmd)
}

func intArgs(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("argument %q must be a positive integer", a)
		}
		out[i] = v
	}
	return out, nil
}

// openView loads postID into a one-shot view for the signed-in user.
func openView(cmd *cobra.Command, postID int) (context.Context, *views.View, error) {
	ctx, cfg, client, err := signedIn(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	store := views.NewStore(client, views.Options{MinStake: cfg.MinStake})
	v, err := store.Open(ctx, postID, currentUser(ctx))
	return ctx, v, err
}

var voteCmd = &cobra.Command{
	Use:   "vote <post-id> up|down",
	Short: "Vote on a post or one of its comments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := intArgs(args[:1])
		if err != nil {
			return err
		}
		requested := models.VoteState(args[1])
		if requested != models.VoteUp && requested != models.VoteDown {
			return fmt.Errorf("vote must be up or down, got %q", args[1])
		}

		ctx, v, err := openView(cmd, ids[0])
		if err != nil {
			return err
		}
		target := models.VoteTarget{ID: ids[0]}
		if voteComment > 0 {
			target = models.VoteTarget{ID: voteComment, IsComment: true}
		}

		out, err := v.ApplyVote(ctx, target, requested)
		if perr := printJSON(cmd, out); perr != nil {
			return perr
		}
		return err
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll <post-id> <option-id>",
	Short: "Pick (or un-pick) a poll option",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := intArgs(args)
		if err != nil {
			return err
		}
		ctx, v, err := openView(cmd, ids[0])
		if err != nil {
			return err
		}

		out, err := v.ApplyPollVote(ctx, ids[1])
		if perr := printJSON(cmd, out); perr != nil {
			return perr
		}
		return err
	},
}

var investCmd = &cobra.Command{
	Use:   "invest <post-id> <comment-id> <amount>",
	Short: "Stake points on a comment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := intArgs(args[:2])
		if err != nil {
			return err
		}
		amount, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("amount %q must be an integer", args[2])
		}
		ctx, v, err := openView(cmd, ids[0])
		if err != nil {
			return err
		}

		out, err := v.ApplyInvestment(ctx, ids[1], amount)
		if perr := printJSON(cmd, out); perr != nil {
			return perr
		}
		return err
	},
}
