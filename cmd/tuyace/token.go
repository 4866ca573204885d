package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/tuya-ce-core/internal/auth"
)

// tokenOptions are the flags of the token command.
type tokenOptions struct {
	subject string
	ttl     time.Duration
}

func newTokenCmd(root *rootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token for the HTTP API",
		Long: `Sign an admin JWT with security.jwt.secret (or TUYACE_JWT_SECRET).

The token authorises catalog refreshes and diagnostics uploads:

  curl -H "Authorization: Bearer $(tuyace token)" -X POST localhost:8080/api/v1/catalog/refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(true)
			if err != nil {
				return err
			}

			ttl := opts.ttl
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.GetTokenTTL()
			}

			token, err := auth.GenerateAdminToken(cfg.Security.JWT.Secret, opts.subject, ttl)
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.subject, "subject", "admin", "Token subject, recorded as the source of saved reports")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", auth.DefaultTokenTTL, "Token lifetime (default: security.jwt.token_ttl)")
	return cmd
}
