package main

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"resistance-moderator/internal/game"
	"resistance-moderator/internal/protocol"
)

// bot answers the moderator at random. It keeps one seat per private channel.
type bot struct {
	rnd   *rand.Rand
	seats map[string]*seatState
}

type seatState struct {
	spy bool
}

// action is what the bot does in response to one line.
type action struct {
	join  string
	part  string
	reply string
}

func newBot(rnd *rand.Rand) *bot {
	return &bot{rnd: rnd, seats: map[string]*seatState{}}
}

// invitation reads "JOIN #game-0001-player-3." sent privately to the bot.
func (b *bot) invitation(text string) (string, bool) {
	words := strings.Fields(text)
	if len(words) != 2 || words[0] != "JOIN" {
		return "", false
	}
	channel := strings.TrimSuffix(words[1], ".")
	if !strings.HasPrefix(channel, "#") {
		return "", false
	}
	b.seats[channel] = &seatState{}
	return channel, true
}

// respond handles a line the moderator wrote on a seat channel.
func (b *bot) respond(channel, text string) action {
	st, ok := b.seats[channel]
	if !ok {
		return action{}
	}
	switch {
	case strings.HasPrefix(text, "REVEAL "):
		st.spy = strings.Contains(text, "ROLE Spy")
	case strings.HasPrefix(text, "SELECT "):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(text, "SELECT "), "!"))
		if err != nil || n < 1 || n > game.NumPlayers {
			return action{}
		}
		return action{reply: protocol.ReplySelected + " " + b.pick(n)}
	case strings.HasPrefix(text, "VOTE "):
		return action{reply: protocol.ReplyVoted + " " + protocol.YesNo(b.rnd.Intn(10) < 7) + "."}
	case text == protocol.SabotageQuestion():
		sabotage := st.spy && b.rnd.Intn(2) == 0
		return action{reply: protocol.ReplySabotaged + " " + protocol.YesNo(sabotage) + "."}
	case strings.HasPrefix(text, "RESULT "):
		delete(b.seats, channel)
		return action{part: channel}
	}
	return action{}
}

func (b *bot) pick(n int) string {
	perm := b.rnd.Perm(game.NumPlayers)[:n]
	sort.Ints(perm)
	parts := make([]string, 0, n)
	for _, i := range perm {
		parts = append(parts, strconv.Itoa(i+1))
	}
	return strings.Join(parts, ", ")
}
