package db

import (
	"context"
	"time"

	"taprealm/internal/logger"
	"taprealm/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

const connectTimeout = 10 * time.Second

// Connect opens the pool, pings it and applies pending migrations.
func Connect(ctx context.Context, dsn string) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Fatal("failed to create database pool", "error", err)
	}

	if err := db.Ping(ctx); err != nil {
		logger.Fatal("failed to ping database", "error", err)
	}

	if err := migrations.Up(ctx, db); err != nil {
		logger.Fatal("failed to apply migrations", "error", err)
	}

	logger.Info("database connected")
	return db
}
