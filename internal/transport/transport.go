// Package transport defines the chat events the moderator consumes and the
// commands it issues, independent of the wire protocol underneath.
package transport

import "strings"

type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventPing
	EventNames
	EventJoin
	EventPart
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventPing:
		return "ping"
	case EventNames:
		return "names"
	case EventJoin:
		return "join"
	case EventPart:
		return "part"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind    EventKind
	Channel string
	User    string
	Members []string
	Words   []string
	Token   string
}

func (e Event) Text() string {
	return strings.Join(e.Words, " ")
}

type Client interface {
	Nick() string
	Join(channel string) error
	Part(channel string) error
	Say(target, text string) error
	Pong(token string) error
	Quit(reason string) error
}

// StripModes removes channel mode prefixes from a nick in a roster listing.
func StripModes(nick string) string {
	return strings.TrimLeft(nick, "+@")
}
