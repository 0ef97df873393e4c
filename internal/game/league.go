package game

import (
	"errors"
	"fmt"
	"strings"
)

type League string

const (
	LeagueBronze   League = "bronze"
	LeagueSilver   League = "silver"
	LeagueGold     League = "gold"
	LeaguePlatinum League = "platinum"
	LeagueDiamond  League = "diamond"
	LeagueMaster   League = "master"
)

var leagueOrder = []League{
	LeagueBronze,
	LeagueSilver,
	LeagueGold,
	LeaguePlatinum,
	LeagueDiamond,
	LeagueMaster,
}

// Rank is the 1-based position of the league; 0 for unknown names.
func (l League) Rank() int {
	for i, o := range leagueOrder {
		if o == l {
			return i + 1
		}
	}
	return 0
}

func (l League) Valid() bool { return l.Rank() > 0 }

// ParseLeague accepts any casing of a league name.
func ParseLeague(s string) (League, error) {
	for _, l := range leagueOrder {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown league %q", ErrInvalidInput, s)
}

type LeagueTier struct {
	League   League `json:"league" toml:"name"`
	MinScore int64  `json:"min_score" toml:"min_score"`
}

// LeagueTable maps lifetime earnings to a league. Tiers are sorted by
// MinScore ascending; Version is bumped when a reload changes the tiers.
type LeagueTable struct {
	Version int64        `json:"version"`
	Tiers   []LeagueTier `json:"tiers"`
}

func DefaultLeagueTable() LeagueTable {
	return LeagueTable{
		Version: 1,
		Tiers: []LeagueTier{
			{League: LeagueBronze, MinScore: 0},
			{League: LeagueSilver, MinScore: 5_000},
			{League: LeagueGold, MinScore: 25_000},
			{League: LeaguePlatinum, MinScore: 100_000},
			{League: LeagueDiamond, MinScore: 500_000},
			{League: LeagueMaster, MinScore: 2_000_000},
		},
	}
}

// For returns the highest league whose threshold totalEarned has reached.
func (t LeagueTable) For(totalEarned int64) League {
	league := LeagueBronze
	for _, tier := range t.Tiers {
		if totalEarned < tier.MinScore {
			break
		}
		league = tier.League
	}
	return league
}

// Next returns the tier after l, if any.
func (t LeagueTable) Next(l League) (LeagueTier, bool) {
	for i, tier := range t.Tiers {
		if tier.League == l && i+1 < len(t.Tiers) {
			return t.Tiers[i+1], true
		}
	}
	return LeagueTier{}, false
}

func (t LeagueTable) Validate() error {
	if len(t.Tiers) == 0 {
		return errors.New("league table is empty")
	}
	if t.Tiers[0].MinScore != 0 {
		return fmt.Errorf("first league must start at 0, got %d", t.Tiers[0].MinScore)
	}
	for i, tier := range t.Tiers {
		if !tier.League.Valid() {
			return fmt.Errorf("unknown league %q", tier.League)
		}
		if i == 0 {
			continue
		}
		prev := t.Tiers[i-1]
		if tier.MinScore <= prev.MinScore {
			return fmt.Errorf("league %s threshold %d must exceed %s threshold %d",
				tier.League, tier.MinScore, prev.League, prev.MinScore)
		}
		if tier.League.Rank() <= prev.League.Rank() {
			return fmt.Errorf("league %s listed after %s", tier.League, prev.League)
		}
	}
	return nil
}
