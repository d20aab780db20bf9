package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/reddit-clone/community/internal/config"
	"github.com/emilythestrangee/reddit-clone/community/internal/models"
	"github.com/emilythestrangee/reddit-clone/community/internal/session"
)

var (
	tokenUser models.User
	tokenTTL  time.Duration
)

func init() {
	tokenCmd.Flags().IntVar(&tokenUser.ID, "user-id", 0, "user id to sign for")
	tokenCmd.Flags().StringVar(&tokenUser.Username, "username", "", "username claim")
	tokenCmd.Flags().StringVar(&tokenUser.Email, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	tokenCmd.MarkFlagRequired("user-id")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.RequireSecret(); err != nil {
			return err
		}
		token, err := session.NewVerifier(cfg.JWTSecret).Issue(tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
