// internal/cli/cli.go
package cli

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javajoker/rfp-backend/internal/config"
)

// app holds what the persistent pre-run prepares for every subcommand.
type app struct {
	cfg *config.Config
}

// NewRootCommand builds the rfpd command tree. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "rfpd",
		Short: "RFP management backend",
		Long: `rfpd serves the RFP management API and polls the procurement inbox
for vendor replies.

Examples:
  rfpd                      # same as rfpd serve
  rfpd migrate              # apply database migrations
  rfpd check-email --all    # run one inbox poll over the lookback window
  rfpd token --subject ui   # mint an API token`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			setupLogging(cfg.Log, cfg.IsProduction())
			return nil
		},
		RunE: a.runServe,
	}

	rootCmd.AddCommand(
		a.newServeCommand(),
		a.newMigrateCommand(),
		a.newCheckEmailCommand(),
		a.newTokenCommand(),
		a.newVersionCommand(),
	)

	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

// setupLogging applies the configured level. The formatter is JSON in
// production unless LOG_FORMAT says otherwise.
func setupLogging(cfg config.LogConfig, production bool) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	format := strings.ToLower(cfg.Format)
	if format == "json" || (format == "" && production) {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
