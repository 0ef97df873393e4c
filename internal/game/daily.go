package game

import "time"

type DailyResult struct {
	Reward        int64
	Streak        int
	NextClaimAt   time.Time
	LeagueChanged bool
	State         PlayerState
}

// DailyReward is the payout for the given streak day (1-based).
func DailyReward(s Settings, streak int) int64 {
	if streak < 1 {
		streak = 1
	}
	return s.DailyRewardBase + int64(streak-1)*s.DailyRewardStreakBonus
}

// ClaimDaily pays the daily reward once per UTC day. Claiming on the day after
// the previous claim extends the streak, any longer gap restarts it at 1.
func (e *Engine) ClaimDaily(p PlayerState, now time.Time) (DailyResult, error) {
	s := e.src.Current()
	res := DailyResult{State: p}

	if p.Restricted {
		return res, ErrRestricted
	}

	today := utcDay(now)
	res.NextClaimAt = today.AddDate(0, 0, 1)
	streak := 1
	if !p.LastDailyClaim.IsZero() {
		last := utcDay(p.LastDailyClaim)
		switch {
		case !last.Before(today):
			return res, &CooldownError{
				Action:        "daily reward",
				NextAvailable: res.NextClaimAt,
				Remaining:     res.NextClaimAt.Sub(now),
			}
		case last.AddDate(0, 0, 1).Equal(today):
			streak = p.DailyStreak + 1
		}
	}

	next := p.Clone()
	res.Reward = DailyReward(s, streak)
	res.Streak = streak
	next.DailyStreak = streak
	next.LastDailyClaim = now
	res.LeagueChanged = credit(&next, s, res.Reward)
	res.State = next
	return res, nil
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
