package main

import (
	"fmt"
	"time"

	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUser   string
	tokenOrg    string
	tokenTTL    time.Duration
	tokenRunner bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a token for the local authenticator",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, teardown, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer teardown()

		if tokenUser == "" {
			return fmt.Errorf("--user is required")
		}

		a, err := auth.NewLocalAuthenticator(cfg.Service.Auth.LocalSigningKey)
		if err != nil {
			return err
		}

		var scopes []string
		if tokenRunner {
			scopes = append(scopes, auth.ScrapeRunnerScope)
		}

		token, err := a.IssueToken(tokenUser, tokenOrg, tokenTTL, scopes...)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "username carried by the token")
	tokenCmd.Flags().StringVarP(&tokenOrg, "org", "o", "", "organization carried by the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "validity of the token")
	tokenCmd.Flags().BoolVar(&tokenRunner, "runner", false, "allow the token to report scrape outcomes")
}
