// internal/cli/check_email.go
package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javajoker/rfp-backend/internal/database"
	"github.com/javajoker/rfp-backend/internal/router"
)

func (a *app) newCheckEmailCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "check-email",
		Short: "Run one inbox poll and print what was processed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.PollingEnabled() {
				return errors.New("IMAP credentials are not configured")
			}

			db, err := database.Initialize(a.cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			svc, err := router.NewServices(cmd.Context(), db, a.cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			results, err := svc.Receiver.CheckForNewEmails(cmd.Context(), all)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include messages already marked seen within the lookback window")
	return cmd
}
