package cli

import (
	"fmt"

	"github.com/credence-core/credence/internal/config"
	"github.com/credence-core/credence/internal/service"
	"github.com/credence-core/credence/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and seed version metadata",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx := cmd.Context()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if err := store.New(pool).Versions().EnsureDefaults(ctx, service.ModelVersion, service.TaxonomyVersion); err != nil {
		return fmt.Errorf("seed versions: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
