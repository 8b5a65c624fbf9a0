// Package protocol renders and parses the line-oriented chat sub-protocol
// spoken between the moderator and the seat occupants. The token spellings
// are part of the wire contract with existing bots and must not change.
package protocol

import (
	"fmt"
	"strings"

	"resistance-moderator/internal/game"
)

const (
	CmdPlay = "PLAY"

	ReplySelected  = "SELECTED"
	ReplyVoted     = "VOTED"
	ReplySabotaged = "SABOTAGED"

	ReportSabotages = "SABOTAGES"

	HumanTag = "@"
)

const punctuation = "\t,.!;?"

func SessionChannel(slot int) string {
	return fmt.Sprintf("#game-%04d", slot)
}

func SeatChannel(session string, index int) string {
	return fmt.Sprintf("%s-player-%d", session, index)
}

func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func Team(players []game.Player) string {
	parts := make([]string, 0, len(players))
	for _, p := range players {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ", ")
}

func Join(channel string) string {
	return fmt.Sprintf("JOIN %s.", channel)
}

func Reveal(session string, spy bool, players, spies []game.Player) string {
	role := "Resistance"
	extra := ""
	if spy {
		role = "Spy"
		extra = "; SPIES " + Team(spies)
	}
	return fmt.Sprintf("REVEAL %s; ROLE %s; PLAYERS %s%s.", session, role, Team(players), extra)
}

func Mission(mission, tries int, leader game.Player) string {
	return fmt.Sprintf("MISSION %d.%d; LEADER %s.", mission, tries, leader)
}

func Select(count int) string {
	return fmt.Sprintf("SELECT %d!", count)
}

func Vote(team []game.Player) string {
	return fmt.Sprintf("VOTE %s?", Team(team))
}

func Votes(votes []bool) string {
	parts := make([]string, 0, len(votes))
	for _, v := range votes {
		parts = append(parts, YesNo(v))
	}
	return fmt.Sprintf("VOTES %s.", strings.Join(parts, ", "))
}

func SabotageQuestion() string {
	return "SABOTAGE?"
}

func Sabotages(n int) string {
	return fmt.Sprintf("%s %d.", ReportSabotages, n)
}

func Result(resistanceWon bool, spies []game.Player) string {
	return fmt.Sprintf("RESULT %s; SPIES %s.", YesNo(resistanceWon), Team(spies))
}

func Error(reason string) string {
	return fmt.Sprintf("ERROR %s.", reason)
}
