package repository

import (
	"context"
	"errors"
	"fmt"

	"taprealm/internal/domain"
	"taprealm/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	return r.getOne(ctx,
		`SELECT id, tg_id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(referral_code, ''), created_at
		 FROM users
		 WHERE tg_id = $1`,
		tgID,
	)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx,
		`SELECT id, tg_id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(referral_code, ''), created_at
		 FROM users
		 WHERE id = $1`,
		id,
	)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg int64) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.TgID,
		&u.Username,
		&u.FirstName,
		&u.ReferralCode,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts the user together with its starting game state and sets
// u.ID. A concurrent first login for the same tg_id yields ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, u *domain.User, st game.PlayerState) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (tg_id, username, first_name, balance, total_earned, energy, max_energy,
		                    energy_regen_rate, last_energy_update, tap_power, league)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		u.TgID,
		u.Username,
		u.FirstName,
		st.Balance,
		st.TotalEarned,
		st.Energy,
		st.MaxEnergy,
		st.EnergyRegenRate,
		st.LastEnergyUpdate,
		st.TapPower,
		string(st.League),
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateProfile refreshes the Telegram names on login.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, username, firstName string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET username = $1, first_name = $2 WHERE id = $3`,
		username, firstName, id,
	)
	return err
}

// TopByEarned returns non-restricted players ordered by lifetime earnings.
func (r *UserRepository) TopByEarned(ctx context.Context, limit, offset int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(username, ''), COALESCE(first_name, ''), total_earned, league
		FROM users
		WHERE NOT restricted
		ORDER BY total_earned DESC, id ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.LeaderboardEntry
	rank := offset + 1
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.FirstName, &e.TotalEarned, &e.League); err != nil {
			return nil, err
		}
		e.Rank = rank
		res = append(res, e)
		rank++
	}
	return res, rows.Err()
}

// RankByEarned returns the user's 1-based position on the global board.
func (r *UserRepository) RankByEarned(ctx context.Context, userID int64) (int, error) {
	var rank int
	err := r.db.QueryRow(ctx, `
		WITH ranked AS (
			SELECT id, RANK() OVER (ORDER BY total_earned DESC) AS rank
			FROM users
			WHERE NOT restricted
		)
		SELECT rank FROM ranked WHERE id = $1
	`, userID).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return rank, err
}

// ResetFraud zeroes the fraud score and optionally lifts the restriction.
func (r *UserRepository) ResetFraud(ctx context.Context, userID int64, unrestrict bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET fraud_score = 0, restricted = CASE WHEN $2 THEN FALSE ELSE restricted END
		 WHERE id = $1`,
		userID, unrestrict,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetRestricted(ctx context.Context, userID int64, restricted bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET restricted = $1 WHERE id = $2`, restricted, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
