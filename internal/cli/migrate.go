package cli

import (
	"context"
	"database/sql"
	"fmt"

	"taprealm/internal/migrations"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE:  runMigrate(migrations.UpDB, "schema is up to date"),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	Args:  cobra.NoArgs,
	RunE:  runMigrate(migrations.Down, "rolled back one migration"),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	Args:  cobra.NoArgs,
	RunE:  runMigrate(migrations.Status, ""),
}

type migrateFunc func(ctx context.Context, db *sql.DB) error

func runMigrate(fn migrateFunc, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		pool, err := openPool(ctx, cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		db := stdlib.OpenDBFromPool(pool)
		defer db.Close()

		if err := fn(ctx, db); err != nil {
			return err
		}
		if done != "" {
			fmt.Fprintln(cmd.OutOrStdout(), done)
		}
		return nil
	}
}
