package admin

import (
	"fmt"

	"github.com/cloo-solutions/docrag/internal/config"
	"github.com/cloo-solutions/docrag/internal/database"
	"github.com/cloo-solutions/docrag/internal/logging"
	"github.com/spf13/cobra"
)

// MigrateCmd applies pending schema migrations and exits.
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply every pending up migration, then create the vector index if it is missing",
		RunE:  runMigrate,
	}

	cmd.Flags().String("migrations", database.DefaultMigrationsPath, "Migration source URL")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	source, _ := cmd.Flags().GetString("migrations")
	if err := database.Migrate(cfg.DatabaseURL, source, logger); err != nil {
		return err
	}

	if cfg.VectorBackend != config.VectorBackendPgvector {
		return nil
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	return database.EnsureANNIndex(ctx, pool, cfg.HNSWM, cfg.HNSWEfConstruction, logger)
}
