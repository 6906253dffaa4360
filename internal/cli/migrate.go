package cli

import (
	"fmt"

	"orderdesk/internal/dal"
	"orderdesk/pkg/logger"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		newMigrateRunCmd(opts, "up", "Apply all pending migrations", func(cmd *cobra.Command, db *dal.DB) (string, error) {
			return dal.ApplyMigrations(cmd.Context(), db.DB, db.Dialect())
		}),
		newMigrateRunCmd(opts, "down", "Roll back the most recent migration", func(cmd *cobra.Command, db *dal.DB) (string, error) {
			return dal.RollbackMigration(cmd.Context(), db.DB, db.Dialect())
		}),
		newMigrateRunCmd(opts, "status", "Show the applied schema version", func(cmd *cobra.Command, db *dal.DB) (string, error) {
			v, err := dal.CurrentVersion(cmd.Context(), db.DB)
			if err != nil {
				return "", err
			}
			return v.String(), nil
		}),
	)
	return cmd
}

// migrate commands open the database without migrating it first.
func newMigrateRunCmd(opts *rootOptions, use, short string, run func(*cobra.Command, *dal.DB) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			quietLogs(&cfg.Log)

			db, err := dal.Open(cmd.Context(), cfg.Database, logger.New(cfg.Log))
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := run(cmd, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %s (latest %s)\n", version, dal.CurrentSchemaVersion)
			return nil
		},
	}
}

