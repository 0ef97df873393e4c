package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessTapScenario(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	p := testPlayer(500, 500)

	res, err := e.ProcessTap(p, 20, t0, TapHistory{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Reward)
	assert.Equal(t, int64(480), res.State.Energy)
	assert.Equal(t, int64(20), res.State.Balance)
	assert.Equal(t, int64(20), res.State.TotalEarned)
	assert.True(t, res.Admitted)

	later := t0.Add(100 * time.Second)
	assert.Equal(t, int64(500), CurrentEnergy(res.State, e.Settings(), later))
}

func TestProcessTapRewardArithmetic(t *testing.T) {
	s := DefaultSettings()
	e := NewEngine(StaticSettings(s))

	cases := []struct {
		name     string
		tapPower int64
		turbo    bool
		taps     int64
		want     int64
	}{
		{"base", 1, false, 10, 10},
		{"multitap", 4, false, 7, 28},
		{"turbo", 1, true, 10, 50},
		{"turbo and multitap compose", 3, true, 20, 300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testPlayer(500, 500)
			p.TapPower = tc.tapPower
			if tc.turbo {
				p.TurboExpiresAt = t0.Add(5 * time.Second)
			}
			res, err := e.ProcessTap(p, tc.taps, t0, TapHistory{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Reward)
			assert.Equal(t, tc.turbo, res.TurboActive)
		})
	}
}

func TestProcessTapRepeatedBatchesNoDrift(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	tracker := NewTapTracker(time.Second, time.Minute)
	p := testPlayer(500, 500)
	p.TapPower = 3

	now := t0
	for i := 0; i < 20; i++ {
		res, err := e.ProcessTap(p, 5, now, tracker.History(p.UserID, now))
		require.NoError(t, err)
		tracker.Record(p.UserID, now, res.Taps)
		p = res.State
		now = now.Add(time.Second)
	}
	assert.Equal(t, int64(20*5*3), p.Balance)
	assert.Equal(t, p.Balance, p.TotalEarned)
}

func TestProcessTapRejections(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))

	t.Run("restricted", func(t *testing.T) {
		p := testPlayer(500, 500)
		p.Restricted = true
		p.Balance = 1000
		_, err := e.ProcessTap(p, 1, t0, TapHistory{})
		assert.ErrorIs(t, err, ErrRestricted)
	})

	t.Run("zero taps", func(t *testing.T) {
		_, err := e.ProcessTap(testPlayer(500, 500), 0, t0, TapHistory{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("insufficient energy is atomic", func(t *testing.T) {
		p := testPlayer(5, 500)
		p.Balance = 77
		p.TotalEarned = 77
		res, err := e.ProcessTap(p, 6, t0, TapHistory{})

		var energyErr *EnergyError
		require.ErrorAs(t, err, &energyErr)
		assert.ErrorIs(t, err, ErrInsufficientEnergy)
		assert.Equal(t, int64(5), energyErr.Current)
		assert.Equal(t, int64(6), energyErr.Required)
		assert.Equal(t, p, res.State)
		assert.True(t, res.Admitted)
		assert.False(t, res.Changed())
	})
}

func TestProcessTapClampsBatch(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	res, err := e.ProcessTap(testPlayer(500, 500), 1000, t0, TapHistory{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Taps)
	assert.Equal(t, int64(20), res.Reward)
	assert.Nil(t, res.Penalty)
}

func TestProcessTapExcessivePenalty(t *testing.T) {
	s := DefaultSettings()
	s.Rate.ExcessiveTapPenalty = 5
	e := NewEngine(StaticSettings(s))

	res, err := e.ProcessTap(testPlayer(500, 500), 50, t0, TapHistory{})
	require.NoError(t, err)
	require.NotNil(t, res.Penalty)
	assert.Equal(t, FlagExcessiveTaps, res.Penalty.Reason)
	assert.Equal(t, int64(5), res.State.FraudScore)
	assert.Equal(t, int64(20), res.Reward)
}

func TestProcessTapMinInterval(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	p := testPlayer(500, 500)
	hist := TapHistory{LastRequest: t0.Add(-50 * time.Millisecond)}

	res, err := e.ProcessTap(p, 1, t0, hist)
	require.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, res.Admitted)
	assert.Equal(t, int64(1), res.State.FraudScore)
	assert.Equal(t, int64(0), res.State.Balance)
	assert.Equal(t, int64(500), res.State.Energy)
	assert.True(t, res.Changed())

	hist.LastRequest = t0.Add(-100 * time.Millisecond)
	_, err = e.ProcessTap(p, 1, t0, hist)
	assert.NoError(t, err)
}

func TestProcessTapSlidingWindow(t *testing.T) {
	s := DefaultSettings()
	s.Rate.MinInterRequest = 0
	e := NewEngine(StaticSettings(s))
	p := testPlayer(500, 500)

	recent := make([]time.Time, 10)
	for i := range recent {
		recent[i] = t0.Add(-500 * time.Millisecond)
	}
	hist := TapHistory{LastRequest: recent[0], Recent: recent}

	_, err := e.ProcessTap(p, 5, t0, hist)
	require.NoError(t, err)

	res, err := e.ProcessTap(p, 6, t0, hist)
	require.ErrorIs(t, err, ErrRateLimited)
	require.NotNil(t, res.Penalty)
	assert.Equal(t, FlagRateAbuse, res.Penalty.Reason)

	// taps from before the window no longer count
	_, err = e.ProcessTap(p, 15, t0.Add(600*time.Millisecond), hist)
	assert.NoError(t, err)
}

func TestProcessTapWindowWithDefaultGap(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	tracker := NewTapTracker(time.Second, time.Minute)
	p := testPlayer(500, 500)

	var admitted int64
	limited := 0
	now := t0
	for i := 0; i < 10; i++ {
		res, err := e.ProcessTap(p, 20, now, tracker.History(p.UserID, now))
		if res.Admitted {
			tracker.Record(p.UserID, now, res.Taps)
		}
		if err == nil {
			admitted += res.Taps
		} else {
			require.ErrorIs(t, err, ErrRateLimited, "request %d", i)
			limited++
		}
		if i == 1 {
			require.ErrorIs(t, err, ErrRateLimited)
			assert.Equal(t, int64(1), res.State.FraudScore)
		}
		p = res.State
		now = now.Add(100 * time.Millisecond)
	}

	assert.Equal(t, int64(20), admitted, "only the first batch fits the second")
	assert.Equal(t, 9, limited)
	assert.Equal(t, int64(9), p.FraudScore)
	assert.Equal(t, int64(20), p.Balance)

	// once the first batch leaves the window the next one is admitted again
	res, err := e.ProcessTap(p, 15, t0.Add(time.Second), tracker.History(p.UserID, t0.Add(time.Second)))
	require.NoError(t, err)
	assert.Equal(t, int64(15), res.Reward)
}

func TestProcessTapFraudEscalation(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	p := testPlayer(500, 500)
	p.FraudScore = 49
	p.Balance = 1_000_000

	res, err := e.ProcessTap(p, 1, t0, TapHistory{LastRequest: t0})
	require.ErrorIs(t, err, ErrRateLimited)
	require.NotNil(t, res.Penalty)
	assert.True(t, res.Penalty.Restricted)
	require.NotNil(t, res.Penalty.Flag)
	assert.Equal(t, int64(50), res.Penalty.Flag.Score)
	assert.Equal(t, p.UserID, res.Penalty.Flag.UserID)
	assert.True(t, res.State.Restricted)

	restricted := res.State
	res, err = e.ProcessTap(restricted, 1, t0.Add(time.Hour), TapHistory{})
	assert.ErrorIs(t, err, ErrRestricted)
	assert.Nil(t, res.Penalty)
	assert.False(t, errors.Is(err, ErrRateLimited))
}

func TestProcessTapFlagEmittedOnce(t *testing.T) {
	s := DefaultSettings()
	s.FraudScoreThreshold = 2
	s.Rate.ExcessiveTapPenalty = 1
	e := NewEngine(StaticSettings(s))
	p := testPlayer(500, 500)
	p.FraudScore = 1

	res, err := e.ProcessTap(p, 100, t0, TapHistory{})
	require.ErrorIs(t, err, ErrRestricted)
	require.NotNil(t, res.Penalty)
	require.NotNil(t, res.Penalty.Flag)
	assert.False(t, res.Admitted)

	next := res.State
	pen := penalize(&next, s, FlagRateAbuse, 1, t0)
	require.NotNil(t, pen)
	assert.Nil(t, pen.Flag)
	assert.Equal(t, int64(3), next.FraudScore)
}

func TestProcessTapLeaguePromotion(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	p := testPlayer(500, 500)
	p.TotalEarned = 4_990
	p.TapPower = 1

	res, err := e.ProcessTap(p, 10, t0, TapHistory{})
	require.NoError(t, err)
	assert.True(t, res.LeagueChanged)
	assert.Equal(t, LeagueSilver, res.State.League)
}

func TestProcessTapSquadContribution(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	p := testPlayer(500, 500)

	res, err := e.ProcessTap(p, 4, t0, TapHistory{})
	require.NoError(t, err)
	assert.Zero(t, res.SquadContribution)

	squad := int64(9)
	p.SquadID = &squad
	res, err = e.ProcessTap(p, 4, t0, TapHistory{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.SquadContribution)
}

func TestProcessTapDoesNotMutateInput(t *testing.T) {
	e := NewEngine(StaticSettings(DefaultSettings()))
	p := testPlayer(500, 500)
	p.Upgrades[UpgradeMultitap] = 2
	before := p.Clone()

	_, err := e.ProcessTap(p, 3, t0, TapHistory{})
	require.NoError(t, err)
	assert.Equal(t, before, p)
}
