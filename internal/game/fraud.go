package game

import (
	"fmt"
	"time"
)

// Fraud flag types recorded for the audit trail.
const (
	FlagRateAbuse     = "rate_abuse"
	FlagExcessiveTaps = "excessive_taps"
)

// FraudFlag is emitted once, when a player's score crosses the threshold.
type FraudFlag struct {
	UserID    int64     `json:"user_id"`
	FlagType  string    `json:"flag_type"`
	Score     int64     `json:"score"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// FraudPenalty describes a fraud score change made while handling a request.
type FraudPenalty struct {
	Reason     string
	Points     int64
	Score      int64
	Restricted bool
	Flag       *FraudFlag
}

// penalize raises the fraud score and restricts the player once the score
// reaches the threshold. Restriction is never lifted here.
func penalize(p *PlayerState, s Settings, reason string, points int64, now time.Time) *FraudPenalty {
	if points <= 0 {
		return nil
	}
	p.FraudScore += points
	pen := &FraudPenalty{Reason: reason, Points: points, Score: p.FraudScore}

	if !p.Restricted && s.FraudScoreThreshold > 0 && p.FraudScore >= s.FraudScoreThreshold {
		p.Restricted = true
		pen.Restricted = true
		pen.Flag = &FraudFlag{
			UserID:    p.UserID,
			FlagType:  reason,
			Score:     p.FraudScore,
			Details:   fmt.Sprintf("fraud score reached %d", p.FraudScore),
			CreatedAt: now,
		}
	}
	return pen
}

// merge folds a later penalty into an earlier one from the same request.
func (f *FraudPenalty) merge(next *FraudPenalty) *FraudPenalty {
	if f == nil {
		return next
	}
	if next == nil {
		return f
	}
	f.Points += next.Points
	f.Score = next.Score
	f.Reason = next.Reason
	if next.Restricted {
		f.Restricted = true
		f.Flag = next.Flag
	}
	return f
}
