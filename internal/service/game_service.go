package service

import (
	"context"
	"errors"
	"time"

	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/logger"
	"taprealm/internal/repository"
)

// PlayerStore persists game.PlayerState; see repository.PlayerStore.
type PlayerStore interface {
	Load(ctx context.Context, userID int64) (game.PlayerState, error)
	Mutate(ctx context.Context, userID int64, fn repository.MutateFunc) error
}

// SquadScorer adds a member's earnings to the squad aggregate.
type SquadScorer interface {
	AddContribution(ctx context.Context, squadID, userID, amount int64) (int64, error)
}

// Notifier pushes live events to connected clients.
type Notifier interface {
	NotifyUser(userID int64, event string, payload interface{})
	NotifySquad(squadID int64, event string, payload interface{})
}

// Event names pushed over the websocket.
const (
	EventState      = "state"
	EventSquadScore = "squad_score"
	EventRestricted = "restricted"
)

// GameService serializes every mutation per user and runs it through the
// engine inside a locked transaction.
type GameService struct {
	engine  *game.Engine
	store   PlayerStore
	tracker *game.TapTracker
	locks   *userLocks

	squads    SquadScorer
	tasks     TaskStore
	referrals ReferralStore
	audit     AuditLogger
	notifier  Notifier

	now func() time.Time
}

type GameServiceOption func(*GameService)

func WithSquads(s SquadScorer) GameServiceOption { return func(g *GameService) { g.squads = s } }
func WithTasks(t TaskStore) GameServiceOption    { return func(g *GameService) { g.tasks = t } }
func WithReferrals(r ReferralStore) GameServiceOption {
	return func(g *GameService) { g.referrals = r }
}
func WithAudit(a AuditLogger) GameServiceOption { return func(g *GameService) { g.audit = a } }
func WithNotifier(n Notifier) GameServiceOption { return func(g *GameService) { g.notifier = n } }
func WithClock(now func() time.Time) GameServiceOption {
	return func(g *GameService) { g.now = now }
}

func NewGameService(engine *game.Engine, store PlayerStore, tracker *game.TapTracker, opts ...GameServiceOption) *GameService {
	s := &GameService{
		engine:  engine,
		store:   store,
		tracker: tracker,
		locks:   newUserLocks(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TapOutcome is what the client sees after a tap batch.
type TapOutcome struct {
	Taps        int64       `json:"taps"`
	Reward      int64       `json:"reward"`
	Energy      int64       `json:"energy"`
	MaxEnergy   int64       `json:"max_energy"`
	Balance     int64       `json:"balance"`
	TotalEarned int64       `json:"total_earned"`
	League      game.League `json:"league"`
	LeagueUp    bool        `json:"league_up"`
	TurboActive bool        `json:"turbo_active"`
}

// Tap applies a batch of taps for the user.
func (s *GameService) Tap(ctx context.Context, userID, taps int64) (*TapOutcome, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now()
	var (
		res       game.TapResult
		engineErr error
		ran       bool
	)
	err := s.store.Mutate(ctx, userID, func(cur game.PlayerState) (repository.Change, error) {
		res, engineErr = s.engine.ProcessTap(cur, taps, now, s.tracker.History(userID, now))
		ran = true

		var ch repository.Change
		if res.Changed() {
			st := res.State
			ch.State = &st
		}
		if res.Penalty != nil && res.Penalty.Flag != nil {
			ch.Flags = append(ch.Flags, *res.Penalty.Flag)
		}
		return ch, engineErr
	})
	// a store error means nothing was committed
	committed := ran && err == engineErr
	if committed && res.Admitted {
		s.tracker.Record(userID, now, res.Taps)
	}
	if committed && res.Penalty != nil {
		s.onPenalty(ctx, userID, res.Penalty)
	}
	if err != nil {
		s.onTapRejected(ctx, userID, taps, err)
		return nil, err
	}

	TapsTotal.Add(float64(res.Taps))
	st := res.State
	out := &TapOutcome{
		Taps:        res.Taps,
		Reward:      res.Reward,
		Energy:      st.Energy,
		MaxEnergy:   st.MaxEnergy,
		Balance:     st.Balance,
		TotalEarned: st.TotalEarned,
		League:      st.League,
		LeagueUp:    res.LeagueChanged,
		TurboActive: res.TurboActive,
	}

	if res.LeagueChanged {
		s.log(ctx, userID, domain.AuditActionLeagueUp, domain.AuditCategoryGame, map[string]interface{}{
			"league":       string(st.League),
			"total_earned": st.TotalEarned,
		})
	}
	if res.SquadContribution > 0 && st.SquadID != nil {
		s.propagateSquad(ctx, *st.SquadID, userID, res.SquadContribution)
	}
	s.notify(userID, EventState, out)
	return out, nil
}

// propagateSquad is best-effort: the tap is already committed.
func (s *GameService) propagateSquad(ctx context.Context, squadID, userID, amount int64) {
	if s.squads == nil {
		return
	}
	total, err := s.squads.AddContribution(ctx, squadID, userID, amount)
	if err != nil {
		logger.WithContext(ctx).Warn("squad contribution failed",
			"squad_id", squadID, "user_id", userID, "amount", amount, "error", err)
		return
	}
	if s.notifier != nil {
		s.notifier.NotifySquad(squadID, EventSquadScore, map[string]int64{
			"squad_id":    squadID,
			"total_score": total,
		})
	}
}

func (s *GameService) onPenalty(ctx context.Context, userID int64, p *game.FraudPenalty) {
	log := logger.WithContext(ctx)
	log.Warn("fraud score raised", "user_id", userID, "reason", p.Reason, "points", p.Points, "score", p.Score)
	s.log(ctx, userID, domain.AuditActionRateLimited, domain.AuditCategoryFraud, map[string]interface{}{
		"reason": p.Reason,
		"points": p.Points,
		"score":  p.Score,
	})
	if !p.Restricted {
		return
	}
	Restrictions.Inc()
	log.Warn("user restricted", "user_id", userID, "score", p.Score)
	s.log(ctx, userID, domain.AuditActionRestricted, domain.AuditCategoryFraud, map[string]interface{}{
		"score": p.Score,
	})
	s.notify(userID, EventRestricted, map[string]int64{"fraud_score": p.Score})
}

func (s *GameService) onTapRejected(ctx context.Context, userID, taps int64, err error) {
	reason := rejectionReason(err)
	TapRejections.WithLabelValues(reason).Inc()
	if reason == "internal" {
		logger.WithContext(ctx).Error("tap failed", "user_id", userID, "taps", taps, "error", err)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, game.ErrRestricted):
		return "restricted"
	case errors.Is(err, game.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, game.ErrInsufficientEnergy):
		return "energy"
	case errors.Is(err, game.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, repository.ErrUserNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// BuyUpgrade buys the next level of t.
func (s *GameService) BuyUpgrade(ctx context.Context, userID int64, t game.UpgradeType) (*game.UpgradeResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now()
	var res game.UpgradeResult
	err := s.store.Mutate(ctx, userID, func(cur game.PlayerState) (repository.Change, error) {
		var err error
		res, err = s.engine.BuyUpgrade(cur, t, now)
		if err != nil {
			return repository.Change{}, err
		}
		return repository.Change{State: &res.State}, nil
	})
	if err != nil {
		return nil, err
	}

	UpgradesTotal.WithLabelValues(string(t)).Inc()
	s.log(ctx, userID, domain.AuditActionUpgrade, domain.AuditCategoryGame, map[string]interface{}{
		"type":  string(t),
		"level": res.NewLevel,
		"price": res.Price,
	})
	s.notify(userID, EventState, s.engine.Snapshot(res.State, now))
	return &res, nil
}

// ClaimBoost claims a boost if its cooldown has elapsed.
func (s *GameService) ClaimBoost(ctx context.Context, userID int64, t game.BoostType) (*game.BoostResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now()
	var res game.BoostResult
	err := s.store.Mutate(ctx, userID, func(cur game.PlayerState) (repository.Change, error) {
		var err error
		res, err = s.engine.ClaimBoost(cur, t, now)
		if err != nil {
			return repository.Change{}, err
		}
		return repository.Change{State: &res.State}, nil
	})
	if err != nil {
		return nil, err
	}

	BoostClaims.WithLabelValues(string(t)).Inc()
	s.log(ctx, userID, domain.AuditActionBoost, domain.AuditCategoryGame, map[string]interface{}{
		"type":              string(t),
		"next_available_at": res.NextAvailableAt,
	})
	s.notify(userID, EventState, s.engine.Snapshot(res.State, now))
	return &res, nil
}

// ClaimDaily pays the daily reward.
func (s *GameService) ClaimDaily(ctx context.Context, userID int64) (*game.DailyResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now()
	var res game.DailyResult
	err := s.store.Mutate(ctx, userID, func(cur game.PlayerState) (repository.Change, error) {
		var err error
		res, err = s.engine.ClaimDaily(cur, now)
		if err != nil {
			return repository.Change{}, err
		}
		return repository.Change{State: &res.State}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx, userID, domain.AuditActionDailyReward, domain.AuditCategoryGame, map[string]interface{}{
		"reward": res.Reward,
		"streak": res.Streak,
	})
	if res.LeagueChanged {
		s.log(ctx, userID, domain.AuditActionLeagueUp, domain.AuditCategoryGame, map[string]interface{}{
			"league": string(res.State.League),
		})
	}
	s.notify(userID, EventState, s.engine.Snapshot(res.State, now))
	return &res, nil
}

// Refresh banks regenerated energy and moves the watermark.
func (s *GameService) Refresh(ctx context.Context, userID int64) (game.Snapshot, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now()
	var next game.PlayerState
	err := s.store.Mutate(ctx, userID, func(cur game.PlayerState) (repository.Change, error) {
		next = s.engine.RefreshEnergy(cur, now)
		return repository.Change{State: &next}, nil
	})
	if err != nil {
		return game.Snapshot{}, err
	}
	return s.engine.Snapshot(next, now), nil
}

// State returns the player's view without writing anything.
func (s *GameService) State(ctx context.Context, userID int64) (game.Snapshot, error) {
	st, err := s.store.Load(ctx, userID)
	if err != nil {
		return game.Snapshot{}, err
	}
	return s.engine.Snapshot(st, s.now()), nil
}

func (s *GameService) Upgrades(ctx context.Context, userID int64) ([]game.UpgradeView, error) {
	st, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.engine.Upgrades(st), nil
}

func (s *GameService) Leagues() game.LeagueTable {
	return s.engine.Settings().Leagues
}

func (s *GameService) log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	if s.audit != nil {
		s.audit.Log(ctx, userID, action, category, details)
	}
}

func (s *GameService) notify(userID int64, event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.NotifyUser(userID, event, payload)
	}
}
