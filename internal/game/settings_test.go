package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValid(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
}

func TestSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	s.BaseTapValue = 0
	s.UpgradeGrowthFactor = 0.5
	delete(s.UpgradeBasePrice, UpgradeAutoTap)

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_tap_value")
	assert.Contains(t, err.Error(), "upgrade_growth_factor")
	assert.Contains(t, err.Error(), "auto_tap")
}

func TestSettingsCloneIsDeep(t *testing.T) {
	s := DefaultSettings()
	c := s.Clone()
	c.UpgradeBasePrice[UpgradeMultitap] = 1
	c.Leagues.Tiers[1].MinScore = 1

	assert.Equal(t, int64(500), s.UpgradeBasePrice[UpgradeMultitap])
	assert.Equal(t, int64(5_000), s.Leagues.Tiers[1].MinScore)
}

func TestSnapshot(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	p := testPlayer(100, 500)
	p.TotalEarned = 30_000
	p.League = LeagueGold
	p.TurboExpiresAt = t0.Add(5 * time.Second)

	snap := e.Snapshot(p, t0.Add(20*time.Second))
	assert.Equal(t, int64(120), snap.Energy)
	assert.Equal(t, int64(380), snap.TimeToFull)
	assert.Equal(t, LeagueGold, snap.League)
	require.NotNil(t, snap.NextLeague)
	assert.Equal(t, LeaguePlatinum, snap.NextLeague.League)
	assert.False(t, snap.TurboActive)
	assert.True(t, snap.DailyAvailable)
	assert.Equal(t, int64(100), p.Energy)

	require.Len(t, snap.Upgrades, len(UpgradeTypes))
	for _, u := range snap.Upgrades {
		if u.Type == UpgradeOfflineEarnings {
			assert.True(t, u.Locked)
		}
		if u.Type == UpgradeComboMultiplier {
			assert.False(t, u.Locked)
			require.NotNil(t, u.Price)
			assert.Equal(t, int64(3000), *u.Price)
		}
	}
}
