package game

import "time"

// BoostClaim is the last claim of one boost type.
type BoostClaim struct {
	Type            BoostType `json:"type"`
	ClaimedAt       time.Time `json:"claimed_at"`
	NextAvailableAt time.Time `json:"next_available_at"`
}

// Ready reports whether the cooldown has elapsed. The boundary itself is ready.
func (c BoostClaim) Ready(now time.Time) bool {
	return !now.Before(c.NextAvailableAt)
}

// PlayerState is everything the engine knows about one player.
type PlayerState struct {
	UserID int64 `json:"user_id"`

	Balance     int64 `json:"balance"`
	TotalEarned int64 `json:"total_earned"`

	Energy           int64     `json:"energy"`
	MaxEnergy        int64     `json:"max_energy"`
	EnergyRegenRate  int64     `json:"energy_regen_rate"`
	LastEnergyUpdate time.Time `json:"last_energy_update"`

	TapPower int64  `json:"tap_power"`
	League   League `json:"league"`

	FraudScore int64 `json:"fraud_score"`
	Restricted bool  `json:"restricted"`

	SquadID *int64 `json:"squad_id,omitempty"`

	Upgrades       map[UpgradeType]int      `json:"upgrades"`
	Boosts         map[BoostType]BoostClaim `json:"boosts"`
	TurboExpiresAt time.Time                `json:"turbo_expires_at"`

	DailyStreak    int       `json:"daily_streak"`
	LastDailyClaim time.Time `json:"last_daily_claim"`
}

// NewPlayerState returns the state of a player on first login: full energy,
// empty balance, lowest league.
func NewPlayerState(userID int64, s Settings, now time.Time) PlayerState {
	return PlayerState{
		UserID:           userID,
		Energy:           s.MaxEnergyBase,
		MaxEnergy:        s.MaxEnergyBase,
		EnergyRegenRate:  s.EnergyRegenRate,
		LastEnergyUpdate: now,
		TapPower:         s.BaseTapValue,
		League:           s.Leagues.For(0),
		Upgrades:         map[UpgradeType]int{},
		Boosts:           map[BoostType]BoostClaim{},
	}
}

// Clone returns a copy that shares no maps or pointers with p.
func (p PlayerState) Clone() PlayerState {
	out := p
	out.Upgrades = make(map[UpgradeType]int, len(p.Upgrades))
	for k, v := range p.Upgrades {
		out.Upgrades[k] = v
	}
	out.Boosts = make(map[BoostType]BoostClaim, len(p.Boosts))
	for k, v := range p.Boosts {
		out.Boosts[k] = v
	}
	if p.SquadID != nil {
		id := *p.SquadID
		out.SquadID = &id
	}
	return out
}

func (p PlayerState) UpgradeLevel(t UpgradeType) int {
	return p.Upgrades[t]
}
