package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"contribution-metrics/internal/platform/config"
	"contribution-metrics/internal/platform/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.FromEnv()
		if !cfg.Database.Enabled() {
			return errors.New("DB_HOST is not set")
		}
		db, err := postgres.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", cfg.Database.Database)
		return nil
	},
}
