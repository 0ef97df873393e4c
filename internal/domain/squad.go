package domain

import "time"

type Squad struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	TotalScore int64     `db:"total_score" json:"total_score"`
	Members    int       `db:"members" json:"members"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// LeaderboardEntry is one row of the player leaderboard.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	TotalEarned int64  `json:"total_earned"`
	League      string `json:"league"`
}

// SquadEntry is one row of the squad leaderboard.
type SquadEntry struct {
	Rank       int    `json:"rank"`
	SquadID    int64  `json:"squad_id"`
	Name       string `json:"name"`
	TotalScore int64  `json:"total_score"`
	Members    int    `json:"members"`
}
