package game

import (
	"errors"
	"fmt"
	"time"
)

// UpgradeType identifies a purchasable upgrade line.
type UpgradeType string

const (
	UpgradeMultitap        UpgradeType = "multitap"
	UpgradeEnergyLimit     UpgradeType = "energy_limit"
	UpgradeRegenSpeed      UpgradeType = "regen_speed"
	UpgradeAutoTap         UpgradeType = "auto_tap"
	UpgradeCriticalTap     UpgradeType = "critical_tap"
	UpgradeComboMultiplier UpgradeType = "combo_multiplier"
	UpgradeOfflineEarnings UpgradeType = "offline_earnings"
)

// UpgradeTypes lists every upgrade in catalog order.
var UpgradeTypes = []UpgradeType{
	UpgradeMultitap,
	UpgradeEnergyLimit,
	UpgradeRegenSpeed,
	UpgradeAutoTap,
	UpgradeCriticalTap,
	UpgradeComboMultiplier,
	UpgradeOfflineEarnings,
}

func (t UpgradeType) Valid() bool {
	for _, u := range UpgradeTypes {
		if u == t {
			return true
		}
	}
	return false
}

// BoostType identifies a cooldown-gated boost.
type BoostType string

const (
	BoostFullEnergy BoostType = "full_energy"
	BoostTurbo      BoostType = "turbo"
)

var BoostTypes = []BoostType{BoostFullEnergy, BoostTurbo}

func (t BoostType) Valid() bool {
	return t == BoostFullEnergy || t == BoostTurbo
}

// RatePolicy holds the anti-abuse thresholds for tap requests.
// Both detectors run on every request: the inter-request gap check first,
// then the sliding window check against MaxTapsPerSecond. A request tripping
// either one costs a single fraud point. Zero disables a detector.
type RatePolicy struct {
	MaxTapsPerRequest int64
	MaxTapsPerSecond  int64
	RateWindow        time.Duration
	MinInterRequest   time.Duration
	// ExcessiveTapPenalty is added to the fraud score when a request asks for
	// more than MaxTapsPerRequest. The request itself is clamped, not rejected.
	ExcessiveTapPenalty int64
}

// Settings are the tunables the engine reads on every operation.
type Settings struct {
	BaseTapValue    int64
	EnergyRegenRate int64
	MaxEnergyBase   int64
	EnergyLimitStep int64

	TurboMultiplier int64
	TurboDuration   time.Duration
	BoostCooldown   time.Duration

	Rate                RatePolicy
	FraudScoreThreshold int64

	UpgradeBasePrice    map[UpgradeType]int64
	UpgradeGrowthFactor float64
	MaxUpgradeLevel     int

	Leagues LeagueTable

	DailyRewardBase        int64
	DailyRewardStreakBonus int64

	// Referral rewards paid once when an invited player registers. The
	// inviter's reward grows by ReferralBonusPct of the inviter's league.
	ReferralInviterReward int64
	ReferralInviteeReward int64
	ReferralBonusPct      map[League]int64
}

// DefaultSettings mirrors the values the game launched with.
func DefaultSettings() Settings {
	return Settings{
		BaseTapValue:    1,
		EnergyRegenRate: 1,
		MaxEnergyBase:   500,
		EnergyLimitStep: 100,

		TurboMultiplier: 5,
		TurboDuration:   10 * time.Second,
		BoostCooldown:   8 * time.Hour,

		Rate: RatePolicy{
			MaxTapsPerRequest: 20,
			MaxTapsPerSecond:  15,
			RateWindow:        time.Second,
			MinInterRequest:   100 * time.Millisecond,
		},
		FraudScoreThreshold: 50,

		UpgradeBasePrice: map[UpgradeType]int64{
			UpgradeMultitap:        500,
			UpgradeEnergyLimit:     500,
			UpgradeRegenSpeed:      1000,
			UpgradeAutoTap:         5000,
			UpgradeCriticalTap:     2000,
			UpgradeComboMultiplier: 3000,
			UpgradeOfflineEarnings: 8000,
		},
		UpgradeGrowthFactor: 2,
		MaxUpgradeLevel:     20,

		Leagues: DefaultLeagueTable(),

		DailyRewardBase:        100,
		DailyRewardStreakBonus: 50,

		ReferralInviterReward: 1000,
		ReferralInviteeReward: 500,
		ReferralBonusPct: map[League]int64{
			LeagueBronze:   5,
			LeagueSilver:   7,
			LeagueGold:     10,
			LeaguePlatinum: 12,
			LeagueDiamond:  15,
			LeagueMaster:   20,
		},
	}
}

// Clone deep-copies the map and slice fields.
func (s Settings) Clone() Settings {
	out := s
	out.UpgradeBasePrice = make(map[UpgradeType]int64, len(s.UpgradeBasePrice))
	for k, v := range s.UpgradeBasePrice {
		out.UpgradeBasePrice[k] = v
	}
	out.Leagues.Tiers = append([]LeagueTier(nil), s.Leagues.Tiers...)
	out.ReferralBonusPct = make(map[League]int64, len(s.ReferralBonusPct))
	for k, v := range s.ReferralBonusPct {
		out.ReferralBonusPct[k] = v
	}
	return out
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	var errs []error
	positive := map[string]int64{
		"base_tap_value":       s.BaseTapValue,
		"energy_regen_rate":    s.EnergyRegenRate,
		"max_energy_base":      s.MaxEnergyBase,
		"turbo_multiplier":     s.TurboMultiplier,
		"max_taps_per_request": s.Rate.MaxTapsPerRequest,
	}
	for name, v := range positive {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be >= 1, got %d", name, v))
		}
	}
	if s.ReferralInviterReward < 0 || s.ReferralInviteeReward < 0 {
		errs = append(errs, errors.New("referral rewards must be >= 0"))
	}
	for l, pct := range s.ReferralBonusPct {
		if !l.Valid() || pct < 0 {
			errs = append(errs, fmt.Errorf("bad referral bonus %d%% for league %q", pct, l))
		}
	}
	if s.EnergyLimitStep < 0 {
		errs = append(errs, fmt.Errorf("energy_limit_step must be >= 0, got %d", s.EnergyLimitStep))
	}
	if s.Rate.MaxTapsPerSecond > 0 && s.Rate.RateWindow <= 0 {
		errs = append(errs, errors.New("rate window must be positive when max_taps_per_second is set"))
	}
	if s.UpgradeGrowthFactor < 1 {
		errs = append(errs, fmt.Errorf("upgrade_growth_factor must be >= 1, got %v", s.UpgradeGrowthFactor))
	}
	if s.MaxUpgradeLevel < 1 {
		errs = append(errs, fmt.Errorf("max_upgrade_level must be >= 1, got %d", s.MaxUpgradeLevel))
	}
	for _, t := range UpgradeTypes {
		if s.UpgradeBasePrice[t] < 1 {
			errs = append(errs, fmt.Errorf("missing base price for upgrade %s", t))
		}
	}
	if err := s.Leagues.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
