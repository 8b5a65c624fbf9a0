package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"resistance-moderator/internal/game"
)

var (
	ErrParse  = errors.New("parse_error")
	ErrLookup = errors.New("player_not_found")
)

// Normalize turns the protocol punctuation into spaces.
func Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, text)
}

func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// ParseYesNo accepts free text; a negative word wins over a positive one.
func ParseYesNo(text string) (bool, error) {
	text = strings.ToLower(text)
	found := false
	result := false
	for _, t := range []string{"yes", "true"} {
		if strings.Contains(text, t) {
			found, result = true, true
		}
	}
	for _, t := range []string{"no", "false"} {
		if strings.Contains(text, t) {
			found, result = true, false
		}
	}
	if !found {
		return false, fmt.Errorf("%w: can't read yes or no from %q", ErrParse, text)
	}
	return result, nil
}

// ParseTeam resolves every token of text to a seated player, keeping order.
func ParseTeam(text string, players []game.Player) ([]game.Player, error) {
	var team []game.Player
	for _, tok := range Tokens(text) {
		p, err := LookupPlayer(tok, players)
		if err != nil {
			return nil, err
		}
		team = append(team, p)
	}
	return team, nil
}

// LookupPlayer resolves a token by exact index or rendering first, across
// all players, and only then by name substring.
func LookupPlayer(token string, players []game.Player) (game.Player, error) {
	for _, p := range players {
		if token == strconv.Itoa(p.Index) || token == p.String() {
			return p, nil
		}
	}
	for _, p := range players {
		if strings.Contains(p.Name, token) {
			return p, nil
		}
	}
	return game.Player{}, fmt.Errorf("%w: can't find player for input name %q", ErrLookup, token)
}

// ParseSelection reads a SELECT reply. The leading reply word is optional.
func ParseSelection(words []string, players []game.Player, count int) ([]game.Player, error) {
	if len(words) > 0 && strings.Contains(strings.ToLower(words[0]), "select") {
		words = words[1:]
	}
	team, err := ParseTeam(strings.Join(words, " "), players)
	if err != nil {
		return nil, err
	}
	if len(team) != count {
		return nil, fmt.Errorf("%w: expected %d players, got %d", ErrParse, count, len(team))
	}
	seen := make(map[int]bool, len(team))
	for _, p := range team {
		if seen[p.Index] {
			return nil, fmt.Errorf("%w: %s selected twice", ErrParse, p)
		}
		seen[p.Index] = true
	}
	return team, nil
}

// ParseReply reads a VOTE or SABOTAGE reply, skipping the reply word.
func ParseReply(words []string) (bool, error) {
	if len(words) > 0 && IsReplyWord(words[0]) {
		words = words[1:]
	}
	return ParseYesNo(strings.Join(words, " "))
}

func IsReplyWord(word string) bool {
	switch strings.ToUpper(word) {
	case ReplySelected, ReplyVoted, ReplySabotaged:
		return true
	}
	return false
}

// ParseSabotageReport reads "SABOTAGES n" typed on a session channel.
func ParseSabotageReport(words []string) (int, bool, error) {
	if len(words) == 0 || strings.ToUpper(words[0]) != ReportSabotages {
		return 0, false, nil
	}
	if len(words) < 2 {
		return 0, true, fmt.Errorf("%w: missing sabotage count", ErrParse)
	}
	n, err := strconv.Atoi(strings.Trim(words[1], ".,!;"))
	if err != nil || n < 0 {
		return 0, true, fmt.Errorf("%w: bad sabotage count %q", ErrParse, words[1])
	}
	return n, true, nil
}

// ParsePlay splits a PLAY directive body into its replay count and
// candidates. A missing count means one game.
func ParsePlay(text string) (int, []string, error) {
	tokens := Tokens(text)
	count := 1
	if len(tokens) > 0 && isDigits(tokens[0]) {
		n, err := strconv.Atoi(tokens[0])
		if err != nil {
			return 0, nil, fmt.Errorf("%w: bad game count %q", ErrParse, tokens[0])
		}
		count = n
		tokens = tokens[1:]
	}
	return count, tokens, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsHuman reports whether candidate carries the human tag.
func IsHuman(candidate string) bool {
	return strings.HasPrefix(candidate, HumanTag)
}

func StripTag(candidate string) string {
	return strings.TrimLeft(candidate, HumanTag)
}
