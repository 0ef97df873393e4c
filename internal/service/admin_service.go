package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminService provides the operator actions behind taprealmctl
type AdminService struct {
	db     *pgxpool.Pool
	engine *game.Engine
	users  *repository.UserRepository
	fraud  *repository.FraudRepository
	store  *repository.PlayerStore
	audit  *AuditService
}

// NewAdminService creates a new admin service. The engine supplies the
// settings balance adjustments and restriction hints are computed with.
func NewAdminService(db *pgxpool.Pool, engine *game.Engine) *AdminService {
	return &AdminService{
		db:     db,
		engine: engine,
		users:  repository.NewUserRepository(db),
		fraud:  repository.NewFraudRepository(db),
		store:  repository.NewPlayerStore(db),
		audit:  NewAuditService(db),
	}
}

// Stats represents platform statistics
type Stats struct {
	TotalUsers      int64 `json:"total_users"`
	RestrictedUsers int64 `json:"restricted_users"`
	NewUsersToday   int64 `json:"new_users_today"`
	TotalBalance    int64 `json:"total_balance"` // currency in circulation
	TotalEarned     int64 `json:"total_earned"`
	FraudFlagsToday int64 `json:"fraud_flags_today"`
	Squads          int64 `json:"squads"`
}

// GetStats returns platform statistics
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE restricted),
		       COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE),
		       COALESCE(SUM(balance), 0),
		       COALESCE(SUM(total_earned), 0)
		FROM users
	`).Scan(&st.TotalUsers, &st.RestrictedUsers, &st.NewUsersToday, &st.TotalBalance, &st.TotalEarned)
	if err != nil {
		return nil, err
	}
	_ = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM fraud_flags WHERE created_at >= CURRENT_DATE`).Scan(&st.FraudFlagsToday)
	_ = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM squads`).Scan(&st.Squads)
	return &st, nil
}

// UserInfo is a player as shown to operators
type UserInfo struct {
	User       *domain.User     `json:"user"`
	State      game.PlayerState `json:"state"`
	FraudFlags []game.FraudFlag `json:"fraud_flags"`
}

// GetUser returns user info by internal id, tg_id or @username
func (s *AdminService) GetUser(ctx context.Context, identifier string) (*UserInfo, error) {
	userID, err := s.ResolveUserIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	flags, err := s.fraud.ListByUser(ctx, userID, 20)
	if err != nil {
		return nil, err
	}
	return &UserInfo{User: user, State: st, FraudFlags: flags}, nil
}

// ResetFraud zeroes the fraud score; with unrestrict it also lifts the
// restriction. This is the only path that lowers a fraud score.
func (s *AdminService) ResetFraud(ctx context.Context, userID int64, unrestrict bool) error {
	if err := s.users.ResetFraud(ctx, userID, unrestrict); err != nil {
		return err
	}
	s.audit.LogAdminAction(ctx, domain.AuditActionAdminFraudReset, userID, map[string]interface{}{
		"unrestrict": unrestrict,
		"at":         time.Now().UTC(),
	})
	return nil
}

// RestrictionStatus is a player's fraud standing after an operator action.
type RestrictionStatus struct {
	UserID     int64 `json:"user_id"`
	Restricted bool  `json:"restricted"`
	FraudScore int64 `json:"fraud_score"`
	Threshold  int64 `json:"threshold"`
}

// Rearmed reports whether the next one-point violation restricts again.
func (r RestrictionStatus) Rearmed() bool {
	return !r.Restricted && r.Threshold > 0 && r.FraudScore+1 >= r.Threshold
}

// Unrestrict lifts the restriction but keeps the score. Check Rearmed on the
// result: a score still near the threshold restricts on the next violation.
func (s *AdminService) Unrestrict(ctx context.Context, userID int64) (*RestrictionStatus, error) {
	return s.setRestricted(ctx, userID, false)
}

// Restrict blocks a player by hand, whatever the fraud score.
func (s *AdminService) Restrict(ctx context.Context, userID int64) (*RestrictionStatus, error) {
	return s.setRestricted(ctx, userID, true)
}

func (s *AdminService) setRestricted(ctx context.Context, userID int64, restricted bool) (*RestrictionStatus, error) {
	if err := s.users.SetRestricted(ctx, userID, restricted); err != nil {
		return nil, err
	}
	action := domain.AuditActionAdminUnrestrict
	if restricted {
		action = domain.AuditActionAdminRestrict
	}
	s.audit.LogAdminAction(ctx, action, userID, map[string]interface{}{"restricted": restricted})

	st, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &RestrictionStatus{
		UserID:     userID,
		Restricted: st.Restricted,
		FraudScore: st.FraudScore,
		Threshold:  s.engine.Settings().FraudScoreThreshold,
	}, nil
}

// BalanceAdjustment is the result of AdjustBalance.
type BalanceAdjustment struct {
	UserID     int64       `json:"user_id"`
	Amount     int64       `json:"amount"`
	OldBalance int64       `json:"old_balance"`
	NewBalance int64       `json:"new_balance"`
	League     game.League `json:"league"`
}

// AdjustBalance credits or debits a player by hand. Credits count toward
// lifetime earnings; debits may not take the balance below zero.
func (s *AdminService) AdjustBalance(ctx context.Context, userID, amount int64, reason string) (*BalanceAdjustment, error) {
	if reason == "" {
		reason = "admin adjustment"
	}
	var res game.CreditResult
	err := s.store.Mutate(ctx, userID, func(cur game.PlayerState) (repository.Change, error) {
		var err error
		res, err = s.engine.AdjustBalance(cur, amount)
		if err != nil {
			return repository.Change{}, err
		}
		return repository.Change{State: &res.State}, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAdminAction(ctx, domain.AuditActionAdminBalance, userID, map[string]interface{}{
		"amount":      amount,
		"reason":      reason,
		"old_balance": res.OldBalance,
		"new_balance": res.State.Balance,
	})
	return &BalanceAdjustment{
		UserID:     userID,
		Amount:     amount,
		OldBalance: res.OldBalance,
		NewBalance: res.State.Balance,
		League:     res.State.League,
	}, nil
}

// ResolveUserIdentifier resolves an internal id ("id:42"), tg_id or @username
// to the internal user ID
func (s *AdminService) ResolveUserIdentifier(ctx context.Context, identifier string) (int64, error) {
	if rest, ok := strings.CutPrefix(identifier, "id:"); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad user id %q: %w", rest, err)
		}
		return id, nil
	}

	// Remove @ if present
	identifier = strings.TrimPrefix(identifier, "@")

	var userID int64

	// First try to parse as number (tg_id)
	if tgID, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		u, err := s.users.GetByTgID(ctx, tgID)
		if err == nil {
			return u.ID, nil
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return 0, err
		}
	}

	// Try as username
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE LOWER(username) = LOWER($1)`, identifier).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, repository.ErrUserNotFound
	}
	return userID, err
}

// AuditTrail returns recent audit entries. Identifier and category both
// narrow the result when set.
func (s *AdminService) AuditTrail(ctx context.Context, identifier, category string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	f := repository.AuditFilter{Category: category, Limit: limit}
	if identifier != "" {
		userID, err := s.ResolveUserIdentifier(ctx, identifier)
		if err != nil {
			return nil, err
		}
		f.UserID = userID
	}
	return s.audit.Query(ctx, f)
}
