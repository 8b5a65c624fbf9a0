package moderator

import (
	"context"
	"fmt"
	"strings"

	"resistance-moderator/internal/protocol"
	"resistance-moderator/internal/seat"
	"resistance-moderator/internal/transport"

	"github.com/rs/zerolog/log"
)

type eventHandler func(ctx context.Context, ev transport.Event) error

// Router consumes transport events one at a time, in arrival order.
type Router struct {
	orch   *Orchestrator
	client transport.Client
	lobby  string
	rounds int

	autoStarted bool
	handlers    map[transport.EventKind]eventHandler
}

// NewRouter builds the dispatcher. With rounds > 0 an automatic competition
// starts as soon as the lobby roster is known.
func NewRouter(orch *Orchestrator, client transport.Client, rounds int) *Router {
	r := &Router{
		orch:   orch,
		client: client,
		lobby:  orch.Lobby(),
		rounds: rounds,
	}
	r.handlers = map[transport.EventKind]eventHandler{
		transport.EventConnected: r.onConnected,
		transport.EventPing:      r.onPing,
		transport.EventNames:     r.onNames,
		transport.EventJoin:      r.onJoin,
		transport.EventPart:      r.onPart,
		transport.EventMessage:   r.onMessage,
	}
	return r
}

// Serve routes events until the stream closes, ctx ends or a fatal error
// occurs.
func (r *Router) Serve(ctx context.Context, events <-chan transport.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.Handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

// Handle routes a single event. Only errors that leave the moderator out of
// sync with the chat are returned.
func (r *Router) Handle(ctx context.Context, ev transport.Event) error {
	metricEventsRouted.Add(1)
	if ev.User != "" && ev.User == r.client.Nick() {
		return nil
	}
	h, ok := r.handlers[ev.Kind]
	if !ok {
		return nil
	}
	err := h(ctx, ev)
	if err != nil && !IsFatal(err) {
		log.Warn().Err(err).Str("kind", ev.Kind.String()).Str("channel", ev.Channel).Msg("event dropped")
		return nil
	}
	return err
}

func (r *Router) onConnected(context.Context, transport.Event) error {
	log.Info().Str("lobby", r.lobby).Msg("connected")
	return r.client.Join(r.lobby)
}

// onPing serves transports that surface PING. The IRC client answers PING
// itself, so over IRC this handler never runs.
func (r *Router) onPing(_ context.Context, ev transport.Event) error {
	return r.client.Pong(ev.Token)
}

func (r *Router) onNames(ctx context.Context, ev transport.Event) error {
	if ev.Channel == r.lobby {
		r.orch.Competitors().Reset(ev.Members, r.client.Nick())
		log.Info().Int("competitors", r.orch.Competitors().Len()).Msg("lobby roster")
		if r.rounds > 0 && !r.autoStarted {
			r.autoStarted = true
			go func() {
				if err := r.orch.RunCompetition(ctx, r.rounds); err != nil {
					log.Error().Err(err).Msg("competition failed")
				}
			}()
		}
		return nil
	}

	// The occupant may already sit in the seat channel when we join it.
	s, ok := r.orch.Registry().ForChannel(ev.Channel)
	if !ok {
		return nil
	}
	a, ok := s.SeatByChannel(ev.Channel)
	if !ok || a.Expecting() != seat.KindJoin {
		return nil
	}
	for _, m := range ev.Members {
		if transport.StripModes(m) == a.Name() {
			a.ResolveJoin()
			log.Debug().Str("seat", a.Name()).Str("channel", ev.Channel).Msg("occupant already present")
			return nil
		}
	}
	return nil
}

func (r *Router) onJoin(_ context.Context, ev transport.Event) error {
	if ev.Channel == r.lobby {
		r.orch.Competitors().Add(ev.User)
		return nil
	}
	s, ok := r.orch.Registry().ForChannel(ev.Channel)
	if !ok || ev.Channel == s.Channel {
		log.Debug().Str("user", ev.User).Str("channel", ev.Channel).Msg("join outside any seat")
		return nil
	}
	a, ok := s.SeatByChannel(ev.Channel)
	if ok && transport.StripModes(ev.User) != a.Name() {
		log.Info().Str("user", ev.User).Str("seat", a.Name()).Str("channel", ev.Channel).Msg("join by someone other than the occupant ignored")
		return nil
	}
	if !ok || !a.ResolveJoin() {
		return fmt.Errorf("%w: %s joined %s but no seat is waiting there", ErrRouting, ev.User, ev.Channel)
	}
	return nil
}

// onPart acknowledges teardown. A part from the session channel is matched
// by occupant name, any other by seat channel.
func (r *Router) onPart(_ context.Context, ev transport.Event) error {
	if ev.Channel == r.lobby {
		r.orch.Competitors().Remove(ev.User)
		return nil
	}
	s, ok := r.orch.Registry().ForChannel(ev.Channel)
	if !ok {
		log.Debug().Str("user", ev.User).Str("channel", ev.Channel).Msg("part outside any session")
		return nil
	}
	if ev.Channel == s.Channel {
		if a, ok := s.SeatAwaitingPart(ev.User); ok {
			a.ResolvePart()
		}
		return nil
	}
	if a, ok := s.SeatByChannel(ev.Channel); ok && !a.ResolvePart() {
		log.Info().Str("seat", a.Name()).Str("channel", ev.Channel).Msg("occupant left before the game ended")
	}
	return nil
}

func (r *Router) onMessage(ctx context.Context, ev transport.Event) error {
	if len(ev.Words) == 0 {
		return nil
	}
	if ev.Channel == r.lobby {
		if strings.ToUpper(ev.Words[0]) == protocol.CmdPlay {
			text := strings.Join(ev.Words[1:], " ")
			go func() {
				if _, err := r.orch.Submit(ctx, text); err != nil {
					log.Info().Err(err).Str("user", ev.User).Msg("match not played")
				}
			}()
		}
		return nil
	}

	s, ok := r.orch.Registry().ForChannel(ev.Channel)
	if !ok {
		return nil
	}
	if ev.Channel == s.Channel {
		return r.onSabotageReport(s, ev)
	}
	a, ok := s.SeatByChannel(ev.Channel)
	if !ok {
		return nil
	}
	if transport.StripModes(ev.User) != a.Name() {
		log.Info().Str("user", ev.User).Str("seat", a.Name()).Str("channel", ev.Channel).Msg("message by someone other than the occupant ignored")
		return nil
	}
	return a.Deliver(ev.Words)
}

// onSabotageReport lets a human moderator type the mission tally on the
// session channel. Waiting spies take the sabotages in seat order.
func (r *Router) onSabotageReport(s *Session, ev transport.Event) error {
	remaining, ok, err := protocol.ParseSabotageReport(ev.Words)
	if !ok {
		return nil
	}
	if err != nil {
		r.orch.say(s.Channel, protocol.Error(err.Error()))
		return err
	}
	for _, a := range s.Seats() {
		if !a.PendingSabotage() {
			continue
		}
		a.Send(protocol.Sabotages(remaining))
		yes := false
		if a.Spy() {
			yes = remaining > 0
			remaining--
		}
		if err := a.ResolveSabotage(yes); err != nil {
			return err
		}
	}
	return nil
}
