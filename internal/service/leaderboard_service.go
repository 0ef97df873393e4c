package service

import (
	"context"

	"taprealm/internal/domain"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

type LeaderboardStore interface {
	TopByEarned(ctx context.Context, limit, offset int) ([]domain.LeaderboardEntry, error)
	RankByEarned(ctx context.Context, userID int64) (int, error)
}

type SquadBoardStore interface {
	Top(ctx context.Context, limit, offset int) ([]domain.SquadEntry, error)
}

type LeaderboardService struct {
	users  LeaderboardStore
	squads SquadBoardStore
}

func NewLeaderboardService(users LeaderboardStore, squads SquadBoardStore) *LeaderboardService {
	return &LeaderboardService{users: users, squads: squads}
}

// ClampPage bounds limit to (0, MaxLeaderboardLimit] and offset to >= 0.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *LeaderboardService) Global(ctx context.Context, limit, offset int) ([]domain.LeaderboardEntry, error) {
	limit, offset = ClampPage(limit, offset)
	res, err := s.users.TopByEarned(ctx, limit, offset)
	if res == nil {
		res = []domain.LeaderboardEntry{}
	}
	return res, err
}

func (s *LeaderboardService) Squads(ctx context.Context, limit, offset int) ([]domain.SquadEntry, error) {
	limit, offset = ClampPage(limit, offset)
	res, err := s.squads.Top(ctx, limit, offset)
	if res == nil {
		res = []domain.SquadEntry{}
	}
	return res, err
}

// Rank is the user's global position, 0 when unranked.
func (s *LeaderboardService) Rank(ctx context.Context, userID int64) (int, error) {
	return s.users.RankByEarned(ctx, userID)
}
