package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/signal-checkin/internal/config"
	"github.com/iliyamo/signal-checkin/internal/database"
)

func newMigrateCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  `Connects with the server's DB_* settings and applies the schema. Safe to rerun.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotenv(envFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBDriver, cfg.DSN())
			if err != nil {
				return fmt.Errorf("open %s: %w", cfg.DBDriver, err)
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, cfg.DBDriver); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", cfg.DBDriver)
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	return cmd
}
