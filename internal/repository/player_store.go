package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taprealm/internal/game"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Change is what a mutation wants written back. A nil State means nothing
// to save.
type Change struct {
	State *game.PlayerState
	Flags []game.FraudFlag
	// Apply writes rows that must commit together with State. An error
	// rolls the whole change back and is returned from Mutate.
	Apply func(ctx context.Context, q DBTX) error
}

// MutateFunc receives the locked state and returns the change to persist.
// The change is committed even when the func also returns an error, so a
// rejected request can still raise the fraud score.
type MutateFunc func(cur game.PlayerState) (Change, error)

// PlayerStore loads and saves game.PlayerState rows.
type PlayerStore struct {
	db *pgxpool.Pool
}

func NewPlayerStore(db *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{db: db}
}

// Load reads the state without locking it.
func (s *PlayerStore) Load(ctx context.Context, userID int64) (game.PlayerState, error) {
	return loadState(ctx, s.db, userID, false)
}

// Mutate runs fn on the row locked with SELECT ... FOR UPDATE and saves the
// result in the same transaction. It returns fn's error after committing.
func (s *PlayerStore) Mutate(ctx context.Context, userID int64, fn MutateFunc) error {
	var fnErr error
	dbErr := withRetry(ctx, func() error {
		fnErr = nil
		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		cur, err := loadState(ctx, tx, userID, true)
		if err != nil {
			return err
		}

		change, err := fn(cur)
		fnErr = err
		if change.State == nil {
			return nil
		}
		if err := saveState(ctx, tx, cur, *change.State); err != nil {
			return err
		}
		for _, f := range change.Flags {
			if err := insertFraudFlag(ctx, tx, f); err != nil {
				return err
			}
		}
		if change.Apply != nil {
			if err := change.Apply(ctx, tx); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
	if dbErr != nil {
		return dbErr
	}
	return fnErr
}

func loadState(ctx context.Context, q DBTX, userID int64, forUpdate bool) (game.PlayerState, error) {
	query := `SELECT id, balance, total_earned, energy, max_energy, energy_regen_rate, last_energy_update,
	                 tap_power, league, fraud_score, restricted, squad_id, turbo_expires_at,
	                 daily_streak, last_daily_claim
	          FROM users WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		st        game.PlayerState
		league    string
		turbo     *time.Time
		lastDaily *time.Time
	)
	err := q.QueryRow(ctx, query, userID).Scan(
		&st.UserID,
		&st.Balance,
		&st.TotalEarned,
		&st.Energy,
		&st.MaxEnergy,
		&st.EnergyRegenRate,
		&st.LastEnergyUpdate,
		&st.TapPower,
		&league,
		&st.FraudScore,
		&st.Restricted,
		&st.SquadID,
		&turbo,
		&st.DailyStreak,
		&lastDaily,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, ErrUserNotFound
	}
	if err != nil {
		return st, fmt.Errorf("load player %d: %w", userID, err)
	}
	st.League = game.League(league)
	if turbo != nil {
		st.TurboExpiresAt = *turbo
	}
	if lastDaily != nil {
		st.LastDailyClaim = *lastDaily
	}

	st.Upgrades = map[game.UpgradeType]int{}
	rows, err := q.Query(ctx, `SELECT type, level FROM upgrades WHERE user_id = $1`, userID)
	if err != nil {
		return st, fmt.Errorf("load upgrades: %w", err)
	}
	for rows.Next() {
		var t string
		var level int
		if err := rows.Scan(&t, &level); err != nil {
			rows.Close()
			return st, err
		}
		st.Upgrades[game.UpgradeType(t)] = level
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	st.Boosts = map[game.BoostType]game.BoostClaim{}
	rows, err = q.Query(ctx, `SELECT type, claimed_at, next_available_at FROM boost_claims WHERE user_id = $1`, userID)
	if err != nil {
		return st, fmt.Errorf("load boosts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c game.BoostClaim
		var t string
		if err := rows.Scan(&t, &c.ClaimedAt, &c.NextAvailableAt); err != nil {
			return st, err
		}
		c.Type = game.BoostType(t)
		st.Boosts[c.Type] = c
	}
	return st, rows.Err()
}

func saveState(ctx context.Context, q DBTX, prev, next game.PlayerState) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET
		    balance = $2, total_earned = $3, energy = $4, max_energy = $5, energy_regen_rate = $6,
		    last_energy_update = $7, tap_power = $8, league = $9, fraud_score = $10, restricted = $11,
		    turbo_expires_at = $12, daily_streak = $13, last_daily_claim = $14
		 WHERE id = $1`,
		next.UserID,
		next.Balance,
		next.TotalEarned,
		next.Energy,
		next.MaxEnergy,
		next.EnergyRegenRate,
		next.LastEnergyUpdate,
		next.TapPower,
		string(next.League),
		next.FraudScore,
		next.Restricted,
		nullTime(next.TurboExpiresAt),
		next.DailyStreak,
		nullTime(next.LastDailyClaim),
	)
	if err != nil {
		return fmt.Errorf("save player %d: %w", next.UserID, err)
	}

	for t, level := range next.Upgrades {
		if prev.Upgrades[t] == level {
			continue
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO upgrades (user_id, type, level) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, type) DO UPDATE SET level = EXCLUDED.level`,
			next.UserID, string(t), level,
		); err != nil {
			return fmt.Errorf("save upgrade %s: %w", t, err)
		}
	}

	for t, c := range next.Boosts {
		if old, ok := prev.Boosts[t]; ok && old == c {
			continue
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO boost_claims (user_id, type, claimed_at, next_available_at) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, type) DO UPDATE
			 SET claimed_at = EXCLUDED.claimed_at, next_available_at = EXCLUDED.next_available_at`,
			next.UserID, string(t), c.ClaimedAt, c.NextAvailableAt,
		); err != nil {
			return fmt.Errorf("save boost %s: %w", t, err)
		}
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
