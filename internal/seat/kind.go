package seat

import (
	"strings"

	"resistance-moderator/internal/protocol"
)

// Kind names the single reply a seat is waiting for.
type Kind int

const (
	KindNone Kind = iota
	KindJoin
	KindSelect
	KindVote
	KindSabotage
	KindPart
)

func (k Kind) String() string {
	switch k {
	case KindJoin:
		return "join"
	case KindSelect:
		return "select"
	case KindVote:
		return "vote"
	case KindSabotage:
		return "sabotage"
	case KindPart:
		return "part"
	default:
		return "none"
	}
}

// answeredByMessage reports whether a chat line, rather than a join or part
// event, resolves k.
func (k Kind) answeredByMessage() bool {
	return k == KindSelect || k == KindVote || k == KindSabotage
}

func kindForReplyWord(word string) Kind {
	switch strings.ToUpper(word) {
	case protocol.ReplySelected:
		return KindSelect
	case protocol.ReplyVoted:
		return KindVote
	case protocol.ReplySabotaged:
		return KindSabotage
	default:
		return KindNone
	}
}
