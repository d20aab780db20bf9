package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/reddit-clone/community/internal/config"
	"github.com/emilythestrangee/reddit-clone/community/internal/hubapi"
	"github.com/emilythestrangee/reddit-clone/community/internal/models"
	"github.com/emilythestrangee/reddit-clone/community/internal/session"
)

var tokenFlag string

var rootCmd = &cobra.Command{
	Use:           "community",
	Short:         "Community hub web tier: optimistic votes, polls, investments and moderation",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "session token (defaults to $COMMUNITY_TOKEN)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// signedIn parses the CLI session token and returns a context carrying its
// user, with the hub API client to act through.
func signedIn(ctx context.Context) (context.Context, config.Config, *hubapi.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, nil, err
	}
	if err := cfg.RequireSecret(); err != nil {
		return nil, cfg, nil, err
	}

	raw := tokenFlag
	if raw == "" {
		raw = os.Getenv("COMMUNITY_TOKEN")
	}
	user, err := session.NewVerifier(cfg.JWTSecret).Parse(raw)
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("--token: %w", err)
	}

	client, err := hubapi.New(hubapi.Config{BaseURL: cfg.HubAPIURL, Timeout: cfg.HubAPITimeout})
	if err != nil {
		return nil, cfg, nil, err
	}
	return session.WithUser(ctx, user), cfg, client, nil
}

func currentUser(ctx context.Context) models.User {
	user, _ := session.UserFromContext(ctx)
	return user
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
