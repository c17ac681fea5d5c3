package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hatchpoint/variance/internal/adapters/turso"
	"github.com/hatchpoint/variance/internal/infrastructure/config"
	"github.com/hatchpoint/variance/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, rolls back to that version.

Examples:
  variance migrate      # Run all pending migrations
  variance migrate 0    # Rollback all migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrateCmd,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrateCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadEngine()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := turso.NewDB(cfg.Database.URL, cfg.Database.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := migrate.EnsureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, _, err := migrate.GetCurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	fmt.Printf("Current version: %d\n", current)

	if len(args) == 0 {
		if err := migrate.RunAll(ctx, db); err != nil {
			return err
		}
	} else {
		target, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number: %s", args[0])
		}
		if target >= current {
			return fmt.Errorf("target version %d is not below current version %d", target, current)
		}
		if err := migrate.DownTo(ctx, db, target); err != nil {
			return err
		}
	}

	final, _, err := migrate.GetCurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}
	fmt.Printf("Migrated to version: %d\n", final)
	return nil
}
