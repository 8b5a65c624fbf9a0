package seat

import (
	"fmt"
	"time"

	"resistance-moderator/internal/future"
	"resistance-moderator/internal/game"
	"resistance-moderator/internal/protocol"
	"resistance-moderator/internal/transport"

	"github.com/rs/zerolog/log"
)

type Options struct {
	ReplyTimeout      time.Duration
	HumanReplyTimeout time.Duration
	TeardownTimeout   time.Duration
	Reprompt          bool
}

// Builder carries what is known about a seat before the engine deals roles.
// Build produces the adapter once index and role are fixed.
type Builder struct {
	Name    string
	Human   bool
	Session string
	Client  transport.Client
	Options Options

	// Register is called with the armed adapter before the occupant is told
	// to join, so the router can already see it.
	Register func(*Adapter)
	// Record receives every line the seat sends.
	Record func(channel, text string)
}

func (b Builder) Build(p game.Player, spy bool) (*Adapter, error) {
	if b.Client == nil {
		return nil, fmt.Errorf("seat %s: nil client", b.Name)
	}
	timeout := b.Options.ReplyTimeout
	if b.Human && b.Options.HumanReplyTimeout > 0 {
		timeout = b.Options.HumanReplyTimeout
	}
	a := &Adapter{
		name:            b.Name,
		human:           b.Human,
		index:           p.Index,
		spy:             spy,
		session:         b.Session,
		channel:         protocol.SeatChannel(b.Session, p.Index),
		client:          b.Client,
		record:          b.Record,
		replyTimeout:    timeout,
		teardownTimeout: b.Options.TeardownTimeout,
		reprompt:        b.Options.Reprompt,
	}
	a.handlers = map[Kind]replyHandler{
		KindSelect:   a.onSelected,
		KindVote:     a.onYesNo,
		KindSabotage: a.onYesNo,
	}

	a.pending = future.New[reply]()
	a.pendingKind = KindJoin
	if b.Register != nil {
		b.Register(a)
	}

	if err := a.client.Join(a.channel); err != nil {
		return nil, err
	}
	if err := a.client.Join(a.session); err != nil {
		return nil, err
	}
	a.say(a.name, protocol.Join(a.channel))
	log.Debug().
		Str("seat", a.name).
		Int("index", a.index).
		Bool("human", a.human).
		Str("channel", a.channel).
		Msg("seat waiting for occupant")
	return a, nil
}
