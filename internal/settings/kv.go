package settings

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"taprealm/internal/game"
)

// ApplyKV overlays app_settings rows onto s. Keys are the snake_case
// setting names, "<upgrade>_base_price", "league_<name>_min_score" and
// "league_<name>_referral_bonus_pct".
// Unknown keys are returned so the caller can log them.
func ApplyKV(s *game.Settings, kv map[string]string) (unknown []string, err error) {
	var errs []error
	leagues := map[game.League]int64{}
	for _, t := range s.Leagues.Tiers {
		leagues[t.League] = t.MinScore
	}
	leaguesTouched := false

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := strings.TrimSpace(kv[key])
		if key == "upgrade_growth_factor" {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			s.UpgradeGrowthFactor = f
			continue
		}

		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}

		if dst := intField(s, key); dst != nil {
			*dst = n
			continue
		}
		if dst, unit := durationField(s, key); dst != nil {
			*dst = time.Duration(n) * unit
			continue
		}

		switch {
		case key == "max_upgrade_level":
			s.MaxUpgradeLevel = int(n)
		case strings.HasSuffix(key, "_base_price"):
			t := game.UpgradeType(strings.TrimSuffix(key, "_base_price"))
			if !t.Valid() {
				unknown = append(unknown, key)
				continue
			}
			s.UpgradeBasePrice[t] = n
		case strings.HasPrefix(key, "league_") && strings.HasSuffix(key, "_referral_bonus_pct"):
			name := strings.TrimSuffix(strings.TrimPrefix(key, "league_"), "_referral_bonus_pct")
			l, err := game.ParseLeague(name)
			if err != nil {
				unknown = append(unknown, key)
				continue
			}
			s.ReferralBonusPct[l] = n
		case strings.HasPrefix(key, "league_") && strings.HasSuffix(key, "_min_score"):
			name := strings.TrimSuffix(strings.TrimPrefix(key, "league_"), "_min_score")
			l, err := game.ParseLeague(name)
			if err != nil {
				unknown = append(unknown, key)
				continue
			}
			leagues[l] = n
			leaguesTouched = true
		default:
			unknown = append(unknown, key)
		}
	}

	if leaguesTouched {
		tiers := make([]game.LeagueTier, 0, len(leagues))
		for l, score := range leagues {
			tiers = append(tiers, game.LeagueTier{League: l, MinScore: score})
		}
		sort.Slice(tiers, func(i, j int) bool { return tiers[i].League.Rank() < tiers[j].League.Rank() })
		s.Leagues.Tiers = tiers
	}
	return unknown, errors.Join(errs...)
}

func intField(s *game.Settings, key string) *int64 {
	switch key {
	case "base_tap_value":
		return &s.BaseTapValue
	case "energy_regen_rate":
		return &s.EnergyRegenRate
	case "max_energy_base":
		return &s.MaxEnergyBase
	case "energy_limit_step":
		return &s.EnergyLimitStep
	case "turbo_multiplier":
		return &s.TurboMultiplier
	case "max_taps_per_request":
		return &s.Rate.MaxTapsPerRequest
	case "max_taps_per_second":
		return &s.Rate.MaxTapsPerSecond
	case "excessive_tap_penalty":
		return &s.Rate.ExcessiveTapPenalty
	case "fraud_score_threshold":
		return &s.FraudScoreThreshold
	case "daily_reward_base":
		return &s.DailyRewardBase
	case "daily_reward_streak_bonus":
		return &s.DailyRewardStreakBonus
	case "referral_inviter_reward":
		return &s.ReferralInviterReward
	case "referral_invitee_reward":
		return &s.ReferralInviteeReward
	}
	return nil
}

func durationField(s *game.Settings, key string) (*time.Duration, time.Duration) {
	switch key {
	case "turbo_duration_seconds":
		return &s.TurboDuration, time.Second
	case "boost_cooldown_hours":
		return &s.BoostCooldown, time.Hour
	case "rate_window_ms":
		return &s.Rate.RateWindow, time.Millisecond
	case "min_inter_request_ms":
		return &s.Rate.MinInterRequest, time.Millisecond
	}
	return nil, 0
}
