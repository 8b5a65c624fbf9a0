package game

import (
	"context"
	"fmt"
	"math/rand"
)

// Seat is the callback contract the engine drives. Calls into one seat are
// strictly serialized; the engine never asks a seat a second question before
// the first returned.
type Seat interface {
	OnGameRevealed(ctx context.Context, players, spies []Player) error
	OnMissionAttempt(ctx context.Context, mission, tries int, leader Player) error
	Select(ctx context.Context, players []Player, count int) ([]Player, error)
	OnTeamSelected(ctx context.Context, leader Player, team []Player) error
	Vote(ctx context.Context, team []Player) (bool, error)
	OnVoteComplete(ctx context.Context, votes []bool) error
	Sabotage(ctx context.Context) (bool, error)
	OnMissionComplete(ctx context.Context, sabotaged int) error
	OnGameComplete(ctx context.Context, resistanceWon bool, spies []Player) error
}

// SeatFactory builds the seat for player once its role is known.
type SeatFactory func(p Player, spy bool) (Seat, error)

type Engine struct {
	State *State
	seats []Seat
	spy   []bool
	lead  int
}

func NewEngine(names []string, build SeatFactory, rng *rand.Rand) (*Engine, error) {
	if len(names) != NumPlayers {
		return nil, fmt.Errorf("%w: need %d players, got %d", ErrInvalidRoster, NumPlayers, len(names))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	roles := make([]bool, NumPlayers)
	for i := 0; i < NumSpies; i++ {
		roles[i] = true
	}
	rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	e := &Engine{
		State: &State{Mission: 1, Tries: 1},
		spy:   roles,
		lead:  rng.Intn(NumPlayers),
	}
	for i, name := range names {
		e.State.Players = append(e.State.Players, Player{Name: name, Index: i + 1})
	}
	for i, p := range e.State.Players {
		seat, err := build(p, roles[i])
		if err != nil {
			return nil, err
		}
		e.seats = append(e.seats, seat)
	}
	return e, nil
}

func (e *Engine) Spies() []Player {
	var out []Player
	for i, p := range e.State.Players {
		if e.spy[i] {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) Run(ctx context.Context) (Result, error) {
	s := e.State
	spies := e.Spies()
	for i, seat := range e.seats {
		known := []Player{}
		if e.spy[i] {
			known = spies
		}
		if err := seat.OnGameRevealed(ctx, s.Players, known); err != nil {
			return Result{}, err
		}
	}

	for s.Wins < WinsNeeded && s.Losses < WinsNeeded {
		approved, err := e.attempt(ctx)
		if err != nil {
			return Result{}, err
		}
		if !approved {
			s.Tries++
			if s.Tries > NumTries {
				// Too many rejected teams hands the game to the spies.
				s.Losses = WinsNeeded
				break
			}
			continue
		}
		if err := e.mission(ctx); err != nil {
			return Result{}, err
		}
		s.Mission++
		s.Tries = 1
	}

	res := Result{
		ResistanceWon: s.Wins >= WinsNeeded,
		Players:       s.Players,
		Spies:         spies,
		Wins:          s.Wins,
		Losses:        s.Losses,
	}
	for _, seat := range e.seats {
		if err := seat.OnGameComplete(ctx, res.ResistanceWon, spies); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Engine) attempt(ctx context.Context) (bool, error) {
	s := e.State
	s.Leader = s.Players[e.lead]
	e.lead = (e.lead + 1) % NumPlayers
	s.Team = nil
	s.Votes = nil

	for _, seat := range e.seats {
		if err := seat.OnMissionAttempt(ctx, s.Mission, s.Tries, s.Leader); err != nil {
			return false, err
		}
	}

	count := TeamSize(s.Mission)
	team, err := e.seats[s.Leader.Index-1].Select(ctx, s.Players, count)
	if err != nil {
		return false, err
	}
	if err := ValidateTeam(s.Players, team, count); err != nil {
		return false, err
	}
	s.Team = team

	for _, seat := range e.seats {
		if err := seat.OnTeamSelected(ctx, s.Leader, team); err != nil {
			return false, err
		}
	}
	votes := make([]bool, 0, NumPlayers)
	for _, seat := range e.seats {
		v, err := seat.Vote(ctx, team)
		if err != nil {
			return false, err
		}
		votes = append(votes, v)
	}
	s.Votes = votes
	for _, seat := range e.seats {
		if err := seat.OnVoteComplete(ctx, append([]bool(nil), votes...)); err != nil {
			return false, err
		}
	}
	return Approved(votes), nil
}

func (e *Engine) mission(ctx context.Context) error {
	s := e.State
	sabotaged := 0
	for _, member := range s.Team {
		if !e.spy[member.Index-1] {
			continue
		}
		yes, err := e.seats[member.Index-1].Sabotage(ctx)
		if err != nil {
			return err
		}
		if yes {
			sabotaged++
		}
	}
	for _, seat := range e.seats {
		if err := seat.OnMissionComplete(ctx, sabotaged); err != nil {
			return err
		}
	}
	if sabotaged == 0 {
		s.Wins++
	} else {
		s.Losses++
	}
	return nil
}
