package game

import (
	"errors"
	"fmt"
)

const (
	NumPlayers  = 5
	NumSpies    = 2
	NumMissions = 5
	NumTries    = 5
	WinsNeeded  = 3
)

var (
	ErrInvalidTeam   = errors.New("invalid_team")
	ErrInvalidRoster = errors.New("invalid_roster")
)

var teamSizes = [NumMissions]int{2, 3, 2, 3, 3}

func TeamSize(mission int) int {
	if mission < 1 || mission > NumMissions {
		return 0
	}
	return teamSizes[mission-1]
}

// ValidateTeam checks a leader's selection: exact size, distinct seats, all
// seated at this table.
func ValidateTeam(players, team []Player, count int) error {
	if len(team) != count {
		return fmt.Errorf("%w: expected %d players, got %d", ErrInvalidTeam, count, len(team))
	}
	seen := map[int]bool{}
	for _, p := range team {
		if p.Index < 1 || p.Index > len(players) || players[p.Index-1] != p {
			return fmt.Errorf("%w: unknown player %s", ErrInvalidTeam, p)
		}
		if seen[p.Index] {
			return fmt.Errorf("%w: duplicate player %s", ErrInvalidTeam, p)
		}
		seen[p.Index] = true
	}
	return nil
}

// Approved reports whether a strict majority voted yes.
func Approved(votes []bool) bool {
	yes := 0
	for _, v := range votes {
		if v {
			yes++
		}
	}
	return yes*2 > len(votes)
}

func OnTeam(team []Player, p Player) bool {
	for _, m := range team {
		if m.Index == p.Index {
			return true
		}
	}
	return false
}
