package repository

import (
	"context"
	"errors"
	"fmt"

	"taprealm/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SquadRepository struct {
	db *pgxpool.Pool
}

func NewSquadRepository(db *pgxpool.Pool) *SquadRepository {
	return &SquadRepository{db: db}
}

func (r *SquadRepository) GetByID(ctx context.Context, id int64) (*domain.Squad, error) {
	var s domain.Squad
	err := r.db.QueryRow(ctx, `
		SELECT s.id, s.name, s.total_score, s.created_at,
		       (SELECT COUNT(*) FROM squad_memberships m WHERE m.squad_id = s.id)
		FROM squads s
		WHERE s.id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.TotalScore, &s.CreatedAt, &s.Members)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSquadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AddContribution credits amount to the member and to the squad total and
// returns the new total.
func (r *SquadRepository) AddContribution(ctx context.Context, squadID, userID, amount int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO squad_memberships (squad_id, user_id, contribution)
		VALUES ($1, $2, $3)
		ON CONFLICT (squad_id, user_id) DO UPDATE
		SET contribution = squad_memberships.contribution + EXCLUDED.contribution`,
		squadID, userID, amount,
	); err != nil {
		return 0, fmt.Errorf("update contribution: %w", err)
	}

	var total int64
	err = tx.QueryRow(ctx,
		`UPDATE squads SET total_score = total_score + $1 WHERE id = $2 RETURNING total_score`,
		amount, squadID,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSquadNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update squad score: %w", err)
	}
	return total, tx.Commit(ctx)
}

// Top returns squads ordered by total score.
func (r *SquadRepository) Top(ctx context.Context, limit, offset int) ([]domain.SquadEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.name, s.total_score, COUNT(m.user_id)
		FROM squads s
		LEFT JOIN squad_memberships m ON m.squad_id = s.id
		GROUP BY s.id
		ORDER BY s.total_score DESC, s.id ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.SquadEntry
	rank := offset + 1
	for rows.Next() {
		var e domain.SquadEntry
		if err := rows.Scan(&e.SquadID, &e.Name, &e.TotalScore, &e.Members); err != nil {
			return nil, err
		}
		e.Rank = rank
		res = append(res, e)
		rank++
	}
	return res, rows.Err()
}
