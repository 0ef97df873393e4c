package game

import "time"

// UpgradeView is one catalog entry for a player.
type UpgradeView struct {
	Type           UpgradeType `json:"type"`
	Level          int         `json:"level"`
	MaxLevel       int         `json:"max_level"`
	Price          *int64      `json:"price"`
	RequiredLeague League      `json:"required_league"`
	Locked         bool        `json:"locked"`
}

// Snapshot is the read-only view of a player at a moment. Energy is computed,
// the stored watermark is left alone.
type Snapshot struct {
	UserID      int64       `json:"user_id"`
	Balance     int64       `json:"balance"`
	TotalEarned int64       `json:"total_earned"`
	Energy      int64       `json:"energy"`
	MaxEnergy   int64       `json:"max_energy"`
	RegenRate   int64       `json:"energy_regen_rate"`
	TimeToFull  int64       `json:"seconds_to_full"`
	TapPower    int64       `json:"tap_power"`
	TapValue    int64       `json:"tap_value"`
	League      League      `json:"league"`
	NextLeague  *LeagueTier `json:"next_league,omitempty"`
	Restricted  bool        `json:"restricted"`
	SquadID     *int64      `json:"squad_id,omitempty"`

	TurboActive    bool       `json:"turbo_active"`
	TurboExpiresAt *time.Time `json:"turbo_expires_at,omitempty"`

	Upgrades []UpgradeView `json:"upgrades"`
	Boosts   []BoostStatus `json:"boosts"`

	DailyStreak    int  `json:"daily_streak"`
	DailyAvailable bool `json:"daily_available"`
}

// Upgrades lists the catalog with the price of each next level.
func (e *Engine) Upgrades(p PlayerState) []UpgradeView {
	return upgradeViews(p, e.src.Current())
}

func upgradeViews(p PlayerState, s Settings) []UpgradeView {
	out := make([]UpgradeView, 0, len(UpgradeTypes))
	for _, t := range UpgradeTypes {
		v := UpgradeView{
			Type:           t,
			Level:          p.UpgradeLevel(t),
			MaxLevel:       s.MaxUpgradeLevel,
			RequiredLeague: RequiredLeague(t),
			Locked:         p.League.Rank() < RequiredLeague(t).Rank(),
		}
		if v.Level < s.MaxUpgradeLevel {
			if price, err := priceAt(s, t, v.Level); err == nil {
				v.Price = &price
			}
		}
		out = append(out, v)
	}
	return out
}

func (e *Engine) Snapshot(p PlayerState, now time.Time) Snapshot {
	s := e.src.Current()
	snap := Snapshot{
		UserID:      p.UserID,
		Balance:     p.Balance,
		TotalEarned: p.TotalEarned,
		Energy:      CurrentEnergy(p, s, now),
		MaxEnergy:   p.MaxEnergy,
		RegenRate:   EffectiveRegenRate(p, s),
		TimeToFull:  int64(TimeToFull(p, s, now) / time.Second),
		TapPower:    p.TapPower,
		TapValue:    TapValue(p, s, now),
		League:      s.Leagues.For(p.TotalEarned),
		Restricted:  p.Restricted,
		SquadID:     p.SquadID,
		TurboActive: TurboActive(p, now),
		Upgrades:    upgradeViews(p, s),
		Boosts:      BoostStatuses(p, now),
		DailyStreak: p.DailyStreak,
	}
	if tier, ok := s.Leagues.Next(snap.League); ok {
		snap.NextLeague = &tier
	}
	if snap.TurboActive {
		exp := p.TurboExpiresAt
		snap.TurboExpiresAt = &exp
	}
	snap.DailyAvailable = p.LastDailyClaim.IsZero() || utcDay(p.LastDailyClaim).Before(utcDay(now))
	return snap
}
