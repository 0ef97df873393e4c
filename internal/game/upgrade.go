package game

import (
	"fmt"
	"math"
	"time"
)

var upgradeLeagueGate = map[UpgradeType]League{
	UpgradeAutoTap:         LeagueSilver,
	UpgradeCriticalTap:     LeagueGold,
	UpgradeComboMultiplier: LeagueGold,
	UpgradeOfflineEarnings: LeaguePlatinum,
}

// RequiredLeague is the lowest league allowed to buy t.
func RequiredLeague(t UpgradeType) League {
	if l, ok := upgradeLeagueGate[t]; ok {
		return l
	}
	return LeagueBronze
}

type UpgradeResult struct {
	Type      UpgradeType
	NewLevel  int
	Price     int64
	NextPrice *int64 // nil at max level
	State     PlayerState
}

// PriceAt returns floor(base * growth^level), saturating at MaxInt64.
func (e *Engine) PriceAt(t UpgradeType, level int) (int64, error) {
	return priceAt(e.src.Current(), t, level)
}

func priceAt(s Settings, t UpgradeType, level int) (int64, error) {
	if !t.Valid() || level < 0 {
		return 0, fmt.Errorf("%w: upgrade %q level %d", ErrInvalidInput, t, level)
	}
	base, ok := s.UpgradeBasePrice[t]
	if !ok {
		return 0, fmt.Errorf("%w: no price for upgrade %q", ErrNotFound, t)
	}
	price := math.Floor(float64(base) * math.Pow(s.UpgradeGrowthFactor, float64(level)))
	if price >= math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(price), nil
}

// BuyUpgrade debits the price of the next level and applies its effect.
func (e *Engine) BuyUpgrade(p PlayerState, t UpgradeType, now time.Time) (UpgradeResult, error) {
	s := e.src.Current()
	res := UpgradeResult{Type: t, State: p}

	if !t.Valid() {
		return res, fmt.Errorf("%w: unknown upgrade %q", ErrInvalidInput, t)
	}
	if p.League.Rank() < RequiredLeague(t).Rank() {
		return res, fmt.Errorf("%w: %s requires %s", ErrLeagueLocked, t, RequiredLeague(t))
	}
	level := p.UpgradeLevel(t)
	res.NewLevel = level
	if level >= s.MaxUpgradeLevel {
		return res, ErrAtMaxLevel
	}
	price, err := priceAt(s, t, level)
	if err != nil {
		return res, err
	}
	res.Price = price
	if p.Balance < price {
		return res, &BalanceError{Price: price, Balance: p.Balance}
	}

	next := p.Clone()
	next.Balance -= price
	level++
	next.Upgrades[t] = level

	switch t {
	case UpgradeMultitap:
		next.TapPower = s.BaseTapValue * int64(1+level)
	case UpgradeEnergyLimit:
		// regen accrued under the old ceiling is banked before it moves
		next.Energy = CurrentEnergy(p, s, now)
		next.LastEnergyUpdate = now
		next.MaxEnergy = s.MaxEnergyBase + int64(level)*s.EnergyLimitStep
		next.Energy = clampEnergy(next.Energy, next.MaxEnergy)
	case UpgradeRegenSpeed:
		next.Energy = CurrentEnergy(p, s, now)
		next.LastEnergyUpdate = now
		next.EnergyRegenRate = s.EnergyRegenRate + int64(level)
	}

	res.NewLevel = level
	if level < s.MaxUpgradeLevel {
		if np, err := priceAt(s, t, level); err == nil {
			res.NextPrice = &np
		}
	}
	res.State = next
	return res, nil
}
