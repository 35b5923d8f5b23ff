// internal/cli/migrate.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/javajoker/rfp-backend/internal/database"
)

func (a *app) newMigrateCommand() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status {
				return database.MigrationStatus(a.cfg.Database)
			}

			db, err := database.Initialize(a.cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			return database.RunMigrations(db, a.cfg.Database)
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of migrating")
	return cmd
}
