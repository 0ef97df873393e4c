package game

import "time"

// TapResult is the outcome of ProcessTap. State is always the state to
// persist: on a rate-limit rejection it carries the raised fraud score, on
// other rejections it equals the input.
type TapResult struct {
	Requested    int64
	Taps         int64
	Reward       int64
	Multiplier   int64
	TurboActive  bool
	EnergyBefore int64

	State         PlayerState
	LeagueChanged bool

	// Admitted is true once the request passed the rate checks; the caller
	// records it in the TapTracker even if the energy check fails afterwards.
	Admitted bool
	Penalty  *FraudPenalty

	// SquadContribution is the reward to add to the player's squad, zero
	// when the player has no squad.
	SquadContribution int64
}

// Changed reports whether State differs from the input and must be saved.
func (r TapResult) Changed() bool {
	return r.Reward > 0 || r.Penalty != nil
}

// ProcessTap validates and applies one tap batch. Taps are all-or-nothing.
func (e *Engine) ProcessTap(p PlayerState, requested int64, now time.Time, hist TapHistory) (TapResult, error) {
	s := e.src.Current()
	res := TapResult{Requested: requested, State: p}

	if p.Restricted {
		return res, ErrRestricted
	}
	if requested < 1 {
		return res, ErrInvalidInput
	}

	next := p.Clone()
	taps := requested
	if s.Rate.MaxTapsPerRequest > 0 && taps > s.Rate.MaxTapsPerRequest {
		taps = s.Rate.MaxTapsPerRequest
		res.Penalty = res.Penalty.merge(penalize(&next, s, FlagExcessiveTaps, s.Rate.ExcessiveTapPenalty, now))
	}
	res.Taps = taps

	if rateLimited(s.Rate, hist, taps, now) {
		res.Penalty = res.Penalty.merge(penalize(&next, s, FlagRateAbuse, 1, now))
		res.State = next
		return res, ErrRateLimited
	}
	if next.Restricted {
		res.State = next
		return res, ErrRestricted
	}
	res.Admitted = true
	if res.Penalty != nil {
		res.State = next
	}

	energy := CurrentEnergy(next, s, now)
	res.EnergyBefore = energy
	if energy < taps {
		return res, &EnergyError{Current: energy, Required: taps}
	}

	res.TurboActive = TurboActive(next, now)
	res.Multiplier = next.TapPower
	if res.TurboActive {
		res.Multiplier *= s.TurboMultiplier
	}
	res.Reward = taps * res.Multiplier

	next.Energy = energy - taps
	next.LastEnergyUpdate = now
	res.LeagueChanged = credit(&next, s, res.Reward)
	if next.SquadID != nil {
		res.SquadContribution = res.Reward
	}

	res.State = next
	return res, nil
}

// TapValue is the reward one tap would earn at now.
func TapValue(p PlayerState, s Settings, now time.Time) int64 {
	if TurboActive(p, now) {
		return p.TapPower * s.TurboMultiplier
	}
	return p.TapPower
}

// rateLimited runs the gap check first and the window check when the gap
// check passes. The window only counts against earlier requests: a lone batch
// is bounded by MaxTapsPerRequest alone.
func rateLimited(r RatePolicy, hist TapHistory, taps int64, now time.Time) bool {
	if r.MinInterRequest > 0 && !hist.LastRequest.IsZero() && now.Sub(hist.LastRequest) < r.MinInterRequest {
		return true
	}
	if r.MaxTapsPerSecond <= 0 {
		return false
	}
	prior := hist.CountSince(now.Add(-r.RateWindow))
	return prior > 0 && prior+taps > r.MaxTapsPerSecond
}
