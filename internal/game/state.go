package game

import "fmt"

type Player struct {
	Name  string
	Index int
}

// String renders the player the way the chat protocol lists them.
func (p Player) String() string {
	return fmt.Sprintf("%d-%s", p.Index, p.Name)
}

type State struct {
	Players []Player
	Mission int
	Tries   int
	Leader  Player
	Team    []Player
	Votes   []bool
	Wins    int
	Losses  int
}

type Result struct {
	ResistanceWon bool
	Players       []Player
	Spies         []Player
	Wins          int
	Losses        int
}
