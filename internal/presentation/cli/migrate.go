package cli

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/config"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Postgres schema",
		Long: `Apply the embedded schema to the database named by storage.postgres_dsn.

The schema is idempotent, so running migrate against an up-to-date database is a no-op.

Examples:
  artisanmart migrate --config config.yaml
  MARKETPLACE_STORAGE_POSTGRES_DSN=postgres://... artisanmart migrate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.PostgresDSN == "" {
				return errors.New("storage.postgres_dsn is required")
			}

			pool, err := postgres.Connect(cmd.Context(), cfg.Storage.PostgresDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}
