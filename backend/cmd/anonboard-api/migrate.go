package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/anonboard/backend/internal/setup"
	"github.com/itchan-dev/anonboard/shared/config"
	"github.com/itchan-dev/anonboard/shared/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and indexes of the SQL storage backends",
	Long: `Applies the schema of the configured postgres or sqlite database.
The schema is idempotent, so running it on an up to date database is a no-op.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFolder)
	if err != nil {
		return err
	}
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)

	ctx := cmd.Context()
	store, err := setup.NewStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Cleanup()

	m, ok := store.(setup.Migrator)
	if !ok {
		return fmt.Errorf("storage driver %q has no schema to migrate", cfg.Public.Storage.Driver)
	}
	if err := m.Migrate(ctx); err != nil {
		return err
	}
	logger.Log.Info("migration finished", "storage", cfg.Public.Storage.Driver)
	return nil
}
