// internal/cli/token.go
package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/javajoker/rfp-backend/internal/utils"
)

func (a *app) newTokenCommand() *cobra.Command {
	var (
		subject string
		name    string
		scope   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}
			if ttl <= 0 {
				ttl = time.Duration(a.cfg.Auth.TTLHours) * time.Hour
			}

			utils.SetJWTSecret(a.cfg.Auth.JWTSecret)
			token, err := utils.GenerateJWT(subject, name, scope, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "client identifier stored in the sub claim")
	cmd.Flags().StringVar(&name, "name", "", "display name of the client")
	cmd.Flags().StringVar(&scope, "scope", "api", "scope claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TTL_HOURS)")
	return cmd
}
