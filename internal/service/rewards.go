package service

import (
	"context"
	"errors"
	"fmt"

	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/logger"
	"taprealm/internal/repository"
)

// TaskStore is the task catalog; see repository.TaskRepository.
type TaskStore interface {
	List(ctx context.Context, userID int64) ([]repository.TaskEntry, error)
	Get(ctx context.Context, userID, taskID int64) (repository.TaskEntry, error)
	MarkCompleted(ctx context.Context, q repository.DBTX, userID, taskID, reward int64) error
}

// ReferralStore is the referral ledger; see repository.ReferralRepository.
type ReferralStore interface {
	CodeFor(ctx context.Context, userID int64) (string, error)
	InviterByCode(ctx context.Context, code string) (int64, error)
	Record(ctx context.Context, q repository.DBTX, ref repository.Referral) error
	ListByInviter(ctx context.Context, userID int64, limit int) ([]repository.Referral, error)
	Stats(ctx context.Context, userID int64) (repository.ReferralStats, error)
}

const EventReferral = "referral"

// TaskView is a task as listed to the player.
type TaskView struct {
	game.Task
	Status game.TaskStatus `json:"status"`
}

// Tasks lists the active tasks with the player's status for each.
func (s *GameService) Tasks(ctx context.Context, userID int64) ([]TaskView, error) {
	if s.tasks == nil {
		return nil, fmt.Errorf("%w: tasks", game.ErrNotFound)
	}
	st, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.tasks.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]TaskView, 0, len(entries))
	for _, e := range entries {
		out = append(out, TaskView{Task: e.Task, Status: game.TaskStatusFor(st, e.Task, e.Completed)})
	}
	return out, nil
}

// TaskClaim is the result of a task reward claim.
type TaskClaim struct {
	TaskID      int64       `json:"task_id"`
	Reward      int64       `json:"reward"`
	Balance     int64       `json:"balance"`
	TotalEarned int64       `json:"total_earned"`
	League      game.League `json:"league"`
	LeagueUp    bool        `json:"league_up"`
}

// ClaimTask pays a task reward once. The completion row and the new balance
// commit together.
func (s *GameService) ClaimTask(ctx context.Context, userID, taskID int64) (*TaskClaim, error) {
	if s.tasks == nil {
		return nil, fmt.Errorf("%w: tasks", game.ErrNotFound)
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	entry, err := s.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	var res game.CreditResult
	err = s.store.Mutate(ctx, userID, func(cur game.PlayerState) (repository.Change, error) {
		var err error
		res, err = s.engine.ClaimTask(cur, entry.Task, entry.Completed)
		if err != nil {
			return repository.Change{}, err
		}
		return repository.Change{
			State: &res.State,
			Apply: func(ctx context.Context, q repository.DBTX) error {
				return s.tasks.MarkCompleted(ctx, q, userID, taskID, res.Amount)
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	RewardsPaid.WithLabelValues("task").Add(float64(res.Amount))
	s.log(ctx, userID, domain.AuditActionTaskClaim, domain.AuditCategoryGame, map[string]interface{}{
		"task_id": taskID,
		"reward":  res.Amount,
	})
	s.afterCredit(ctx, userID, res)
	return &TaskClaim{
		TaskID:      taskID,
		Reward:      res.Amount,
		Balance:     res.State.Balance,
		TotalEarned: res.State.TotalEarned,
		League:      res.State.League,
		LeagueUp:    res.LeagueChanged,
	}, nil
}

// ApplyReferral pays both sides of an invite accepted by inviteeID. The
// invitee is paid in the transaction that records the referral, so a code is
// honored at most once per invitee. The inviter is paid afterwards; a failure
// there is logged and does not undo the invitee's reward.
func (s *GameService) ApplyReferral(ctx context.Context, inviteeID int64, code string) error {
	if s.referrals == nil {
		return fmt.Errorf("%w: referrals", game.ErrNotFound)
	}
	inviterID, err := s.referrals.InviterByCode(ctx, code)
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("%w: referral code %q", game.ErrNotFound, code)
	}
	if err != nil {
		return err
	}
	if inviterID == inviteeID {
		return fmt.Errorf("%w: self referral", game.ErrInvalidInput)
	}

	inviter, err := s.store.Load(ctx, inviterID)
	if err != nil {
		return err
	}
	inviterReward, inviteeReward := s.engine.Settings().ReferralRewards(inviter.League)
	ref := repository.Referral{
		InviterID:     inviterID,
		InviteeID:     inviteeID,
		InviterReward: inviterReward,
		InviteeReward: inviteeReward,
	}

	invitee, err := s.creditWith(ctx, inviteeID, inviteeReward, func(ctx context.Context, q repository.DBTX) error {
		return s.referrals.Record(ctx, q, ref)
	})
	if err != nil {
		return err
	}
	s.afterReferral(ctx, inviteeID, ref, invitee)

	paid, err := s.creditWith(ctx, inviterID, inviterReward, nil)
	if err != nil {
		logger.WithContext(ctx).Error("referral inviter credit failed",
			"inviter_id", inviterID, "invitee_id", inviteeID, "reward", inviterReward, "error", err)
		return nil
	}
	s.afterReferral(ctx, inviterID, ref, paid)
	return nil
}

// creditWith pays amount to userID under the user's lock, running apply in
// the same transaction when set.
func (s *GameService) creditWith(ctx context.Context, userID, amount int64, apply func(context.Context, repository.DBTX) error) (game.CreditResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var res game.CreditResult
	err := s.store.Mutate(ctx, userID, func(cur game.PlayerState) (repository.Change, error) {
		var err error
		res, err = s.engine.Credit(cur, amount)
		if err != nil {
			return repository.Change{}, err
		}
		return repository.Change{State: &res.State, Apply: apply}, nil
	})
	return res, err
}

func (s *GameService) afterReferral(ctx context.Context, userID int64, ref repository.Referral, res game.CreditResult) {
	RewardsPaid.WithLabelValues("referral").Add(float64(res.Amount))
	s.log(ctx, userID, domain.AuditActionReferral, domain.AuditCategoryGame, map[string]interface{}{
		"inviter_id": ref.InviterID,
		"invitee_id": ref.InviteeID,
		"reward":     res.Amount,
	})
	s.notify(userID, EventReferral, map[string]int64{
		"inviter_id": ref.InviterID,
		"invitee_id": ref.InviteeID,
		"reward":     res.Amount,
	})
	s.afterCredit(ctx, userID, res)
}

func (s *GameService) afterCredit(ctx context.Context, userID int64, res game.CreditResult) {
	if res.LeagueChanged {
		s.log(ctx, userID, domain.AuditActionLeagueUp, domain.AuditCategoryGame, map[string]interface{}{
			"league":       string(res.State.League),
			"total_earned": res.State.TotalEarned,
		})
	}
	s.notify(userID, EventState, s.engine.Snapshot(res.State, s.now()))
}

// ReferralSummary is the player's referral screen.
type ReferralSummary struct {
	ReferralCode string `json:"referral_code"`
	repository.ReferralStats
	Referrals []repository.Referral `json:"referrals"`
}

// Referrals returns the player's code, creating it on first use, and the
// invites accepted so far.
func (s *GameService) Referrals(ctx context.Context, userID int64) (*ReferralSummary, error) {
	if s.referrals == nil {
		return nil, fmt.Errorf("%w: referrals", game.ErrNotFound)
	}
	code, err := s.referrals.CodeFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.referrals.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.referrals.ListByInviter(ctx, userID, 100)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []repository.Referral{}
	}
	return &ReferralSummary{ReferralCode: code, ReferralStats: stats, Referrals: list}, nil
}
