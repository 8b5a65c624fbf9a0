package game

import (
	"context"
	"sort"
)

type scriptTable struct {
	spies       map[int]bool
	approve     bool
	sabotage    bool
	revealed    map[int][]Player
	sabotageAsk map[int]int
	completed   map[int]bool
	missionLog  []int
}

func newScriptTable(approve, sabotage bool) *scriptTable {
	return &scriptTable{
		spies:       map[int]bool{},
		approve:     approve,
		sabotage:    sabotage,
		revealed:    map[int][]Player{},
		sabotageAsk: map[int]int{},
		completed:   map[int]bool{},
	}
}

func (t *scriptTable) factory() SeatFactory {
	return func(p Player, spy bool) (Seat, error) {
		t.spies[p.Index] = spy
		return &scriptSeat{table: t, me: p}, nil
	}
}

type scriptSeat struct {
	table *scriptTable
	me    Player
}

func (s *scriptSeat) OnGameRevealed(_ context.Context, _ []Player, spies []Player) error {
	s.table.revealed[s.me.Index] = spies
	return nil
}

func (s *scriptSeat) OnMissionAttempt(context.Context, int, int, Player) error { return nil }

// Select puts the spies first so sabotage paths are exercised.
func (s *scriptSeat) Select(_ context.Context, players []Player, count int) ([]Player, error) {
	ordered := append([]Player(nil), players...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return s.table.spies[ordered[i].Index] && !s.table.spies[ordered[j].Index]
	})
	return ordered[:count], nil
}

func (s *scriptSeat) OnTeamSelected(context.Context, Player, []Player) error { return nil }

func (s *scriptSeat) Vote(context.Context, []Player) (bool, error) { return s.table.approve, nil }

func (s *scriptSeat) OnVoteComplete(context.Context, []bool) error { return nil }

func (s *scriptSeat) Sabotage(context.Context) (bool, error) {
	s.table.sabotageAsk[s.me.Index]++
	return s.table.sabotage, nil
}

func (s *scriptSeat) OnMissionComplete(_ context.Context, sabotaged int) error {
	if s.me.Index == 1 {
		s.table.missionLog = append(s.table.missionLog, sabotaged)
	}
	return nil
}

func (s *scriptSeat) OnGameComplete(context.Context, bool, []Player) error {
	s.table.completed[s.me.Index] = true
	return nil
}
