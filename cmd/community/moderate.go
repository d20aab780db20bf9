package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/reddit-clone/community/internal/config"
	"github.com/emilythestrangee/reddit-clone/community/internal/moderation"
)

func init() {
	rootCmd.AddCommand(moderateCmd)
}

var moderateCmd = &cobra.Command{
	Use:   "moderate <text>",
	Short: "Print the moderation verdict for some text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		svc := moderation.New(moderation.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.ModerationModel,
			Timeout: cfg.ModerationTimeout,
		})
		return printJSON(cmd, svc.Moderate(cmd.Context(), strings.Join(args, " ")))
	},
}
