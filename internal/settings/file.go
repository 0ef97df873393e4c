package settings

import (
	"fmt"
	"time"

	"taprealm/internal/game"

	"github.com/BurntSushi/toml"
)

// fileSettings mirrors the TOML settings file. Absent keys keep the value
// from the layer below.
type fileSettings struct {
	BaseTapValue    *int64 `toml:"base_tap_value"`
	EnergyRegenRate *int64 `toml:"energy_regen_rate"`
	MaxEnergyBase   *int64 `toml:"max_energy_base"`
	EnergyLimitStep *int64 `toml:"energy_limit_step"`

	TurboMultiplier      *int64 `toml:"turbo_multiplier"`
	TurboDurationSeconds *int64 `toml:"turbo_duration_seconds"`
	BoostCooldownHours   *int64 `toml:"boost_cooldown_hours"`

	MaxTapsPerRequest   *int64 `toml:"max_taps_per_request"`
	MaxTapsPerSecond    *int64 `toml:"max_taps_per_second"`
	RateWindowMs        *int64 `toml:"rate_window_ms"`
	MinInterRequestMs   *int64 `toml:"min_inter_request_ms"`
	ExcessiveTapPenalty *int64 `toml:"excessive_tap_penalty"`
	FraudScoreThreshold *int64 `toml:"fraud_score_threshold"`

	UpgradeBasePrice    map[string]int64 `toml:"upgrade_base_price"`
	UpgradeGrowthFactor *float64         `toml:"upgrade_growth_factor"`
	MaxUpgradeLevel     *int             `toml:"max_upgrade_level"`

	Leagues []game.LeagueTier `toml:"leagues"`

	DailyRewardBase        *int64 `toml:"daily_reward_base"`
	DailyRewardStreakBonus *int64 `toml:"daily_reward_streak_bonus"`

	ReferralInviterReward *int64           `toml:"referral_inviter_reward"`
	ReferralInviteeReward *int64           `toml:"referral_invitee_reward"`
	ReferralBonusPct      map[string]int64 `toml:"referral_bonus_pct"`
}

// LoadFile overlays the TOML file at path onto s.
func LoadFile(path string, s *game.Settings) error {
	var fs fileSettings
	md, err := toml.DecodeFile(path, &fs)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown keys %v", path, undecoded)
	}
	return fs.apply(s)
}

func (f *fileSettings) apply(s *game.Settings) error {
	setInt(&s.BaseTapValue, f.BaseTapValue)
	setInt(&s.EnergyRegenRate, f.EnergyRegenRate)
	setInt(&s.MaxEnergyBase, f.MaxEnergyBase)
	setInt(&s.EnergyLimitStep, f.EnergyLimitStep)
	setInt(&s.TurboMultiplier, f.TurboMultiplier)
	setDuration(&s.TurboDuration, f.TurboDurationSeconds, time.Second)
	setDuration(&s.BoostCooldown, f.BoostCooldownHours, time.Hour)
	setInt(&s.Rate.MaxTapsPerRequest, f.MaxTapsPerRequest)
	setInt(&s.Rate.MaxTapsPerSecond, f.MaxTapsPerSecond)
	setDuration(&s.Rate.RateWindow, f.RateWindowMs, time.Millisecond)
	setDuration(&s.Rate.MinInterRequest, f.MinInterRequestMs, time.Millisecond)
	setInt(&s.Rate.ExcessiveTapPenalty, f.ExcessiveTapPenalty)
	setInt(&s.FraudScoreThreshold, f.FraudScoreThreshold)
	setInt(&s.DailyRewardBase, f.DailyRewardBase)
	setInt(&s.DailyRewardStreakBonus, f.DailyRewardStreakBonus)
	setInt(&s.ReferralInviterReward, f.ReferralInviterReward)
	setInt(&s.ReferralInviteeReward, f.ReferralInviteeReward)
	if f.UpgradeGrowthFactor != nil {
		s.UpgradeGrowthFactor = *f.UpgradeGrowthFactor
	}
	if f.MaxUpgradeLevel != nil {
		s.MaxUpgradeLevel = *f.MaxUpgradeLevel
	}

	for name, price := range f.UpgradeBasePrice {
		t := game.UpgradeType(name)
		if !t.Valid() {
			return fmt.Errorf("unknown upgrade %q in upgrade_base_price", name)
		}
		s.UpgradeBasePrice[t] = price
	}
	for name, pct := range f.ReferralBonusPct {
		l, err := game.ParseLeague(name)
		if err != nil {
			return fmt.Errorf("referral_bonus_pct: %w", err)
		}
		s.ReferralBonusPct[l] = pct
	}
	if len(f.Leagues) > 0 {
		s.Leagues.Tiers = append([]game.LeagueTier(nil), f.Leagues...)
	}
	return nil
}

func setInt(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *int64, unit time.Duration) {
	if v != nil {
		*dst = time.Duration(*v) * unit
	}
}
