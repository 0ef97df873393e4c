package game

import (
	"fmt"
	"time"
)

type BoostResult struct {
	Type            BoostType
	ClaimedAt       time.Time
	NextAvailableAt time.Time
	// TurboExpiresAt is set for turbo claims only.
	TurboExpiresAt time.Time
	Energy         int64
	State          PlayerState
}

// BoostStatus is one boost as shown to the player.
type BoostStatus struct {
	Type            BoostType     `json:"type"`
	Ready           bool          `json:"ready"`
	NextAvailableAt *time.Time    `json:"next_available_at,omitempty"`
	Remaining       time.Duration `json:"-"`
	RemainingSec    int64         `json:"remaining_seconds"`
}

// TurboActive reports whether a turbo claim is still running at now.
func TurboActive(p PlayerState, now time.Time) bool {
	return !p.TurboExpiresAt.IsZero() && now.Before(p.TurboExpiresAt)
}

// ClaimBoost claims t if its cooldown has elapsed and applies its effect.
func (e *Engine) ClaimBoost(p PlayerState, t BoostType, now time.Time) (BoostResult, error) {
	s := e.src.Current()
	res := BoostResult{Type: t, State: p}

	if !t.Valid() {
		return res, fmt.Errorf("%w: boost %q", ErrNotFound, t)
	}
	if last, ok := p.Boosts[t]; ok && !last.Ready(now) {
		return res, &CooldownError{
			Action:        string(t),
			NextAvailable: last.NextAvailableAt,
			Remaining:     last.NextAvailableAt.Sub(now),
		}
	}

	next := p.Clone()
	claim := BoostClaim{Type: t, ClaimedAt: now, NextAvailableAt: now.Add(s.BoostCooldown)}
	next.Boosts[t] = claim

	switch t {
	case BoostFullEnergy:
		next.Energy = next.MaxEnergy
		next.LastEnergyUpdate = now
	case BoostTurbo:
		next.TurboExpiresAt = now.Add(s.TurboDuration)
		res.TurboExpiresAt = next.TurboExpiresAt
	}

	res.ClaimedAt = claim.ClaimedAt
	res.NextAvailableAt = claim.NextAvailableAt
	res.Energy = CurrentEnergy(next, s, now)
	res.State = next
	return res, nil
}

// BoostStatuses lists every boost type with its cooldown at now.
func BoostStatuses(p PlayerState, now time.Time) []BoostStatus {
	out := make([]BoostStatus, 0, len(BoostTypes))
	for _, t := range BoostTypes {
		st := BoostStatus{Type: t, Ready: true}
		if last, ok := p.Boosts[t]; ok && !last.Ready(now) {
			at := last.NextAvailableAt
			st.Ready = false
			st.NextAvailableAt = &at
			st.Remaining = at.Sub(now)
			st.RemainingSec = int64((st.Remaining + time.Second - 1) / time.Second)
		}
		out = append(out, st)
	}
	return out
}
