package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"covidmx/internal/config"
	applog "covidmx/internal/log"
	"covidmx/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the SQLite case tables",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := requireSQLite(cfg); err != nil {
		return err
	}

	version, err := storage.RunMigrations(cfg.DBDSN)
	if err != nil {
		return err
	}
	logger.Info("Migrations applied", "version", version, "path", cfg.DBDSN, applog.FieldOperation, applog.OpMigrate)
	fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", cfg.DBDSN, version)
	return nil
}

// requireSQLite rejects configurations whose store covidmxctl cannot write.
func requireSQLite(cfg *config.Config) error {
	if cfg.DataBackend != config.BackendSQL || cfg.DBDriver != config.DriverSQLite {
		return fmt.Errorf("this command needs DATA_BACKEND=sql and DB_DRIVER=sqlite, got %s/%s", cfg.DataBackend, cfg.DBDriver)
	}
	return nil
}
