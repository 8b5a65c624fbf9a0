package transport

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/irc.v4"
)

const (
	rplWelcome    = "001"
	rplNamReply   = "353"
	rplEndOfNames = "366"
)

type IRCOptions struct {
	Addr string
	Nick string
	User string
	Name string
	TLS  bool
}

// IRC adapts an IRC connection to the moderator's event stream.
type IRC struct {
	client *irc.Client
	conn   net.Conn
	events chan Event
	done   chan struct{}
	once   sync.Once
	names  *namesCollector

	writeMu sync.Mutex
}

func DialIRC(ctx context.Context, opts IRCOptions) (*IRC, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", opts.Addr)
	if err != nil {
		return nil, err
	}
	if opts.TLS {
		host, _, _ := net.SplitHostPort(opts.Addr)
		conn = tls.Client(conn, &tls.Config{ServerName: host})
	}
	if opts.User == "" {
		opts.User = opts.Nick
	}
	if opts.Name == "" {
		opts.Name = opts.Nick
	}
	c := &IRC{conn: conn, events: make(chan Event, 256), done: make(chan struct{}), names: newNamesCollector()}
	c.client = irc.NewClient(conn, irc.ClientConfig{
		Nick:    opts.Nick,
		User:    opts.User,
		Name:    opts.Name,
		Handler: irc.HandlerFunc(c.handle),
	})
	return c, nil
}

// Events delivers translated events in arrival order. Delivery stops once
// Run returned; the channel itself stays open.
func (c *IRC) Events() <-chan Event {
	return c.events
}

func (c *IRC) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, c.stopDelivery)
	defer stop()
	defer c.stopDelivery()
	err := c.client.RunContext(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *IRC) stopDelivery() {
	c.once.Do(func() { close(c.done) })
}

func (c *IRC) handle(client *irc.Client, m *irc.Message) {
	ev, ok := c.names.collect(m, client.CurrentNick())
	if !ok {
		return
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// namesCollector joins the 353 chunks of a NAMES reply and emits a single
// names event on 366. It is only used from the client's read loop.
type namesCollector struct {
	pending map[string][]string
}

func newNamesCollector() *namesCollector {
	return &namesCollector{pending: map[string][]string{}}
}

func (n *namesCollector) collect(m *irc.Message, self string) (Event, bool) {
	switch m.Command {
	case rplNamReply:
		if ev, ok := Translate(m, self); ok {
			n.pending[ev.Channel] = append(n.pending[ev.Channel], ev.Members...)
		}
		return Event{}, false
	case rplEndOfNames:
		if len(m.Params) < 2 {
			return Event{}, false
		}
		channel := m.Params[1]
		members := n.pending[channel]
		delete(n.pending, channel)
		return Event{Kind: EventNames, Channel: channel, Members: members}, true
	default:
		return Translate(m, self)
	}
}

// Translate maps an IRC message onto an Event. A 353 line yields one chunk
// of a NAMES reply; namesCollector assembles the full listing. PING is
// answered by the client library and never surfaces here.
func Translate(m *irc.Message, self string) (Event, bool) {
	user := ""
	if m.Prefix != nil {
		user = StripModes(m.Prefix.Name)
	}
	switch m.Command {
	case rplWelcome:
		return Event{Kind: EventConnected}, true
	case rplNamReply:
		if len(m.Params) < 3 {
			return Event{}, false
		}
		var members []string
		for _, n := range strings.Fields(m.Trailing()) {
			members = append(members, StripModes(n))
		}
		return Event{Kind: EventNames, Channel: m.Params[2], Members: members}, true
	case "JOIN", "PART":
		if len(m.Params) < 1 || user == "" {
			return Event{}, false
		}
		kind := EventJoin
		if m.Command == "PART" {
			kind = EventPart
		}
		return Event{Kind: kind, Channel: strings.TrimPrefix(m.Params[0], ":"), User: user}, true
	case "PRIVMSG":
		if len(m.Params) < 2 || user == "" || user == self {
			return Event{}, false
		}
		return Event{
			Kind:    EventMessage,
			Channel: m.Params[0],
			User:    user,
			Words:   strings.Fields(m.Trailing()),
		}, true
	default:
		return Event{}, false
	}
}

func (c *IRC) Nick() string {
	return c.client.CurrentNick()
}

func (c *IRC) Join(channel string) error {
	return c.write("JOIN", channel)
}

func (c *IRC) Part(channel string) error {
	return c.write("PART", channel)
}

func (c *IRC) Say(target, text string) error {
	return c.write("PRIVMSG", target, text)
}

func (c *IRC) Pong(token string) error {
	return c.write("PONG", token)
}

func (c *IRC) Quit(reason string) error {
	err := c.write("QUIT", reason)
	if cerr := c.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (c *IRC) write(command string, params ...string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	err := c.client.WriteMessage(&irc.Message{Command: command, Params: params})
	if err != nil {
		log.Warn().Err(err).Str("command", command).Msg("irc write failed")
	}
	return err
}
