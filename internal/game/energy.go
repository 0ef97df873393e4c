package game

import "time"

// EffectiveRegenRate is the base regen setting plus the regen_speed level.
func EffectiveRegenRate(p PlayerState, s Settings) int64 {
	rate := s.EnergyRegenRate + int64(p.UpgradeLevel(UpgradeRegenSpeed))
	if rate < 1 {
		rate = 1
	}
	return rate
}

// CurrentEnergy computes the energy available at now without moving the
// watermark. Only whole elapsed seconds regenerate. A zero watermark or a
// clock that went backwards yields the stored value.
func CurrentEnergy(p PlayerState, s Settings, now time.Time) int64 {
	stored := clampEnergy(p.Energy, p.MaxEnergy)
	if p.LastEnergyUpdate.IsZero() {
		return stored
	}
	elapsed := now.Sub(p.LastEnergyUpdate)
	if elapsed < time.Second {
		return stored
	}

	missing := p.MaxEnergy - stored
	if missing <= 0 {
		return stored
	}
	seconds := int64(elapsed / time.Second)
	rate := EffectiveRegenRate(p, s)
	// seconds*rate can overflow for ancient watermarks
	if seconds >= (missing+rate-1)/rate {
		return p.MaxEnergy
	}
	return stored + seconds*rate
}

// TimeToFull is how long until CurrentEnergy reaches MaxEnergy.
func TimeToFull(p PlayerState, s Settings, now time.Time) time.Duration {
	missing := p.MaxEnergy - CurrentEnergy(p, s, now)
	if missing <= 0 {
		return 0
	}
	rate := EffectiveRegenRate(p, s)
	seconds := (missing + rate - 1) / rate
	return time.Duration(seconds) * time.Second
}

func clampEnergy(energy, limit int64) int64 {
	if energy < 0 {
		return 0
	}
	if energy > limit {
		return limit
	}
	return energy
}
