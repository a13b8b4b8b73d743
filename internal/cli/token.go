package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quiz-portal-service/internal/config"
	transport "quiz-portal-service/internal/transport/http"
)

// NewTokenCmd prints a signed admin token for the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if ttl == "" {
				ttl = cfg.Admin.TokenTTL
			}
			token, err := transport.IssueAdminToken(cfg.Admin.JWTSecret, subject, config.TTLDuration(ttl, 24*time.Hour))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().StringVar(&ttl, "ttl", "", "token lifetime, defaults to admin.token_ttl")
	return cmd
}
