package cli

import (
	"fmt"
	"tripsynth/internal/adapters/repositories"
	"tripsynth/internal/platform/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd(g *globalFlags) *cobra.Command {
	var postgresURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Long: `Apply the embedded schema migrations to the SQLite catalog and, when
--postgres (or $DATABASE_URL) is given, to the Postgres cache database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			conn, err := db.OpenSQLite(cfg.DBPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			n, err := db.Migrate(ctx, conn, db.SQLite)
			if err != nil {
				return err
			}
			logger.Info().Str("db", cfg.DBPath).Int("applied", n).Msg("sqlite migrated")
			fmt.Fprintf(cmd.OutOrStdout(), "sqlite %s: %d migration(s) applied\n", cfg.DBPath, n)

			if postgresURL == "" {
				postgresURL = cfg.DatabaseURL
			}
			if postgresURL == "" {
				return nil
			}
			pg, err := db.OpenPostgres(postgresURL)
			if err != nil {
				return err
			}
			defer pg.Close()
			n, err = db.Migrate(ctx, pg, db.Postgres)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "postgres: %d migration(s) applied\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&postgresURL, "postgres", "", "Postgres URL (default $DATABASE_URL)")
	return cmd
}

func newSeedCmd(g *globalFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load candidates from a JSON file into the catalog",
		Long: `Load lodging and activity candidates from a JSON file into the SQLite
catalog. Entries with an existing id are replaced. The schema is migrated first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.SeedPath
			}
			ctx := cmd.Context()

			conn, err := db.OpenSQLite(cfg.DBPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			if _, err := db.Migrate(ctx, conn, db.SQLite); err != nil {
				return err
			}

			n, err := repositories.SeedFromJSON(ctx, conn, file)
			if err != nil {
				return err
			}
			logger.Info().Str("file", file).Int("candidates", n).Msg("catalog seeded")
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d candidate(s) from %s\n", n, file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (default $SEED_PATH)")
	return cmd
}

func newDestinationsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "destinations",
		Short: "List destinations in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			conn, err := db.OpenSQLite(cfg.DBPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			if _, err := db.Migrate(cmd.Context(), conn, db.SQLite); err != nil {
				return err
			}

			dests, err := repositories.NewSqliteCatalog(conn).Destinations(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range dests {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}
