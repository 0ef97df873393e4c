package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAlreadyReferred = errors.New("user already referred")

// Referral is one accepted invite with the rewards paid for it.
type Referral struct {
	InviterID     int64     `json:"inviter_id"`
	InviteeID     int64     `json:"invitee_id"`
	InviterReward int64     `json:"reward"`
	InviteeReward int64     `json:"invitee_reward"`
	Username      string    `json:"username,omitempty"`
	FirstName     string    `json:"first_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReferralStats struct {
	TotalReferrals int   `json:"total_referrals"`
	TotalRewards   int64 `json:"total_rewards"`
}

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// GenerateReferralCode returns 12 random hex characters.
func GenerateReferralCode() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// CodeFor returns the user's referral code, assigning one on first use.
func (r *ReferralRepository) CodeFor(ctx context.Context, userID int64) (string, error) {
	var code *string
	err := r.db.QueryRow(ctx, `SELECT referral_code FROM users WHERE id = $1`, userID).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	if code != nil && *code != "" {
		return *code, nil
	}

	// retry on the rare collision with another user's code
	for i := 0; i < 5; i++ {
		candidate := GenerateReferralCode()
		var assigned string
		err = r.db.QueryRow(ctx,
			`UPDATE users SET referral_code = COALESCE(referral_code, $1)
			 WHERE id = $2
			 RETURNING referral_code`,
			candidate, userID,
		).Scan(&assigned)
		if err == nil {
			return assigned, nil
		}
		if !isUniqueViolation(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("assign referral code: %w", err)
}

// InviterByCode resolves a referral code to the owning user.
func (r *ReferralRepository) InviterByCode(ctx context.Context, code string) (int64, error) {
	var userID int64
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE referral_code = $1`, code).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return userID, err
}

// Record stores the referral through q, normally the transaction that pays
// the invitee. A second referral for the same invitee is ErrAlreadyReferred.
func (r *ReferralRepository) Record(ctx context.Context, q DBTX, ref Referral) error {
	tag, err := q.Exec(ctx,
		`INSERT INTO referrals (inviter_id, invitee_id, inviter_reward, invitee_reward)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (invitee_id) DO NOTHING`,
		ref.InviterID, ref.InviteeID, ref.InviterReward, ref.InviteeReward,
	)
	if err != nil {
		return fmt.Errorf("insert referral: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyReferred
	}

	_, err = q.Exec(ctx,
		`UPDATE users SET referred_by = $1 WHERE id = $2 AND referred_by IS NULL`,
		ref.InviterID, ref.InviteeID,
	)
	return err
}

// ListByInviter returns the invites accepted from userID, newest first.
func (r *ReferralRepository) ListByInviter(ctx context.Context, userID int64, limit int) ([]Referral, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.inviter_id, r.invitee_id, r.inviter_reward, r.invitee_reward,
		        COALESCE(u.username, ''), COALESCE(u.first_name, ''), r.created_at
		 FROM referrals r
		 JOIN users u ON u.id = r.invitee_id
		 WHERE r.inviter_id = $1
		 ORDER BY r.created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Referral
	for rows.Next() {
		var ref Referral
		if err := rows.Scan(&ref.InviterID, &ref.InviteeID, &ref.InviterReward, &ref.InviteeReward,
			&ref.Username, &ref.FirstName, &ref.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, ref)
	}
	return res, rows.Err()
}

// Stats counts the user's referrals and the rewards they paid the inviter.
func (r *ReferralRepository) Stats(ctx context.Context, userID int64) (ReferralStats, error) {
	var st ReferralStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(inviter_reward), 0) FROM referrals WHERE inviter_id = $1`,
		userID,
	).Scan(&st.TotalReferrals, &st.TotalRewards)
	return st, err
}
