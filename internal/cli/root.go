// Package cli implements taprealmctl, the operator tool for the game backend.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"taprealm/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taprealmctl",
	Short: "Operate the taprealm game backend",
	Long: `taprealmctl runs schema migrations, inspects players and resets fraud
scores. It reads DATABASE_URL from the environment or a .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		logger.Init(level, false)
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	rootCmd.PersistentFlags().String("settings-file", os.Getenv("SETTINGS_FILE"), "TOML file with game tunables")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout for the whole command")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return context.WithTimeout(cmd.Context(), timeout)
}

func openPool(ctx context.Context, cmd *cobra.Command) (*pgxpool.Pool, error) {
	dsn, _ := cmd.Flags().GetString("database-url")
	if dsn == "" {
		return nil, fmt.Errorf("database url required: set DATABASE_URL or pass --database-url")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
