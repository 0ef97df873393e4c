package repository

import (
	"context"
	"fmt"

	"taprealm/internal/game"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FraudRepository struct {
	db *pgxpool.Pool
}

func NewFraudRepository(db *pgxpool.Pool) *FraudRepository {
	return &FraudRepository{db: db}
}

func insertFraudFlag(ctx context.Context, q DBTX, f game.FraudFlag) error {
	_, err := q.Exec(ctx,
		`INSERT INTO fraud_flags (user_id, flag_type, score, details, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		f.UserID, f.FlagType, f.Score, f.Details, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fraud flag: %w", err)
	}
	return nil
}

// ListByUser returns the user's flags, newest first.
func (r *FraudRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]game.FraudFlag, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, flag_type, score, COALESCE(details, ''), created_at
		FROM fraud_flags
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []game.FraudFlag
	for rows.Next() {
		var f game.FraudFlag
		if err := rows.Scan(&f.UserID, &f.FlagType, &f.Score, &f.Details, &f.CreatedAt); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}
