package cli

import (
	"os"
	"tripsynth/internal/config"
	"tripsynth/internal/platform/obs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	dbPath    string
	logLevel  string
	logFormat string
}

// NewRootCmd builds the tripctl command tree.
func NewRootCmd(version string) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:     "tripctl",
		Version: version,
		Short:   "Operate the TripSynth catalog and plan trips from the command line",
		Long: `tripctl manages the local candidate catalog (schema migrations and seeding)
and runs the itinerary planner without the HTTP server.

Settings come from the environment (and a .env file when present); flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite catalog path (default $DB_PATH or data/app.db)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (default $LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "console", "log format: console or json")

	root.AddCommand(
		newMigrateCmd(g),
		newSeedCmd(g),
		newDestinationsCmd(g),
		newPlanCmd(g),
	)
	return root
}

// Execute runs tripctl with the process arguments.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

// load reads the configuration and applies flag overrides.
func (g *globalFlags) load() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return cfg, obs.NewLogger(cfg.LogLevel, g.logFormat, os.Stderr), nil
}
