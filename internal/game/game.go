// Package game implements the tap economy engine: energy regeneration, tap
// batches, upgrade pricing, boost cooldowns and fraud scoring.
//
// Every operation takes a PlayerState snapshot plus the current time and
// returns the next state. Nothing here touches the database; callers load the
// state, run one operation and persist the result while holding a per-user
// lock.
package game

import "time"

// SettingsSource hands the engine the tunables for a single operation.
type SettingsSource interface {
	Current() Settings
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings Settings

func (s StaticSettings) Current() Settings { return Settings(s) }

// Engine applies player actions against the settings of its source.
type Engine struct {
	src SettingsSource
}

func NewEngine(src SettingsSource) *Engine {
	return &Engine{src: src}
}

// Settings returns the snapshot the next operation would use.
func (e *Engine) Settings() Settings {
	return e.src.Current()
}

// NewPlayer builds the state of a freshly registered player.
func (e *Engine) NewPlayer(userID int64, now time.Time) PlayerState {
	return NewPlayerState(userID, e.src.Current(), now)
}

// RefreshEnergy materializes regenerated energy and moves the watermark to now.
func (e *Engine) RefreshEnergy(p PlayerState, now time.Time) PlayerState {
	s := e.src.Current()
	next := p.Clone()
	next.Energy = CurrentEnergy(p, s, now)
	next.LastEnergyUpdate = now
	return next
}

// credit adds an earning to balance and lifetime total and re-derives the league.
func credit(p *PlayerState, s Settings, amount int64) bool {
	if amount <= 0 {
		return false
	}
	p.Balance += amount
	p.TotalEarned += amount
	prev := p.League
	p.League = s.Leagues.For(p.TotalEarned)
	return prev != p.League
}
