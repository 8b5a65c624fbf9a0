// Package seat bridges the synchronous game engine and asynchronous chat.
// Every engine question becomes a prompt on the seat's private channel and a
// wait on a reply future that the router resolves when the answer arrives.
package seat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"resistance-moderator/internal/future"
	"resistance-moderator/internal/game"
	"resistance-moderator/internal/protocol"
	"resistance-moderator/internal/transport"

	"github.com/rs/zerolog/log"
)

var _ game.Seat = (*Adapter)(nil)

type reply struct {
	team []game.Player
	yes  bool
}

type replyHandler func(words []string) (resend string, err error)

type Adapter struct {
	name    string
	human   bool
	index   int
	spy     bool
	session string
	channel string

	client          transport.Client
	record          func(channel, text string)
	replyTimeout    time.Duration
	teardownTimeout time.Duration
	reprompt        bool
	handlers        map[Kind]replyHandler

	mu          sync.Mutex
	players     []game.Player
	team        []game.Player
	pending     *future.Future[reply]
	pendingKind Kind
	selectCount int
	prompt      string
}

type Info struct {
	Name      string `json:"name"`
	Index     int    `json:"index"`
	Human     bool   `json:"human"`
	Channel   string `json:"channel"`
	Expecting string `json:"expecting"`
}

func (a *Adapter) Name() string    { return a.name }
func (a *Adapter) Index() int      { return a.index }
func (a *Adapter) Spy() bool       { return a.spy }
func (a *Adapter) Human() bool     { return a.human }
func (a *Adapter) Channel() string { return a.channel }

func (a *Adapter) Info() Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	expecting := KindNone
	if a.pending != nil && !a.pending.Ready() {
		expecting = a.pendingKind
	}
	return Info{
		Name:      a.name,
		Index:     a.index,
		Human:     a.human,
		Channel:   a.channel,
		Expecting: expecting.String(),
	}
}

// Expecting returns the kind of the unresolved reply, or KindNone.
func (a *Adapter) Expecting() Kind {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expectingLocked()
}

func (a *Adapter) expectingLocked() Kind {
	if a.pending == nil || a.pending.Ready() {
		return KindNone
	}
	return a.pendingKind
}

// Send writes text to the seat's private channel.
func (a *Adapter) Send(text string) {
	a.say(a.channel, text)
}

func (a *Adapter) say(target, text string) {
	if a.record != nil {
		a.record(target, text)
	}
	if err := a.client.Say(target, text); err != nil {
		log.Warn().Err(err).Str("seat", a.name).Str("target", target).Msg("seat send failed")
	}
}

// ask arms a new reply slot. A seat holds one outstanding question at most.
func (a *Adapter) ask(kind Kind, prompt string) (*future.Future[reply], error) {
	a.mu.Lock()
	if a.pending != nil {
		held := a.pendingKind
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: seat %s asked for %s while %s is outstanding", ErrReplyPending, a.name, kind, held)
	}
	f := future.New[reply]()
	a.pending = f
	a.pendingKind = kind
	a.prompt = prompt
	a.mu.Unlock()
	if prompt != "" {
		a.Send(prompt)
	}
	return f, nil
}

// current returns the armed slot for kind without creating one.
func (a *Adapter) current(kind Kind) (*future.Future[reply], error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil || a.pendingKind != kind {
		return nil, fmt.Errorf("%w: seat %s has no %s outstanding", ErrProtocol, a.name, kind)
	}
	return a.pending, nil
}

func (a *Adapter) consume(f *future.Future[reply]) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == f {
		a.pending = nil
		a.pendingKind = KindNone
		a.prompt = ""
	}
}

func (a *Adapter) wait(ctx context.Context, f *future.Future[reply], kind Kind, timeout time.Duration) (reply, error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	r, err := f.Get(waitCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			metricReplyTimeouts.Add(1)
			return reply{}, fmt.Errorf("%w: %s gave no %s reply within %s", ErrDisconnected, a.name, kind, timeout)
		}
		return reply{}, err
	}
	a.consume(f)
	return r, nil
}

func (a *Adapter) OnGameRevealed(ctx context.Context, players, spies []game.Player) error {
	a.mu.Lock()
	a.players = players
	a.mu.Unlock()

	f, err := a.current(KindJoin)
	if err != nil {
		return err
	}
	if _, err := a.wait(ctx, f, KindJoin, a.replyTimeout); err != nil {
		return err
	}
	a.Send(protocol.Reveal(a.session, a.spy, players, spies))
	return nil
}

func (a *Adapter) OnMissionAttempt(_ context.Context, mission, tries int, leader game.Player) error {
	a.Send(protocol.Mission(mission, tries, leader))
	return nil
}

func (a *Adapter) Select(ctx context.Context, players []game.Player, count int) ([]game.Player, error) {
	a.mu.Lock()
	a.players = players
	a.selectCount = count
	a.mu.Unlock()

	f, err := a.ask(KindSelect, protocol.Select(count))
	if err != nil {
		return nil, err
	}
	r, err := a.wait(ctx, f, KindSelect, a.replyTimeout)
	if err != nil {
		return nil, err
	}
	return r.team, nil
}

func (a *Adapter) OnTeamSelected(_ context.Context, _ game.Player, team []game.Player) error {
	a.mu.Lock()
	a.team = team
	a.mu.Unlock()
	_, err := a.ask(KindVote, protocol.Vote(team))
	return err
}

func (a *Adapter) Vote(ctx context.Context, _ []game.Player) (bool, error) {
	f, err := a.current(KindVote)
	if err != nil {
		return false, err
	}
	r, err := a.wait(ctx, f, KindVote, a.replyTimeout)
	if err != nil {
		return false, err
	}
	return r.yes, nil
}

// OnVoteComplete asks every team member about sabotage when the team passed,
// whatever their role, so a resistance seat looks exactly like a spy seat.
func (a *Adapter) OnVoteComplete(_ context.Context, votes []bool) error {
	a.Send(protocol.Votes(votes))

	yes := 0
	for _, v := range votes {
		if v {
			yes++
		}
	}
	if yes <= 2 || !a.onTeam() {
		return nil
	}
	_, err := a.ask(KindSabotage, protocol.SabotageQuestion())
	return err
}

func (a *Adapter) onTeam() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return game.OnTeam(a.team, game.Player{Name: a.name, Index: a.index})
}

func (a *Adapter) Sabotage(ctx context.Context) (bool, error) {
	f, err := a.current(KindSabotage)
	if err != nil {
		return false, err
	}
	r, err := a.wait(ctx, f, KindSabotage, a.replyTimeout)
	if err != nil {
		return false, err
	}
	return r.yes, nil
}

// OnMissionComplete applies forced synchronization: a sabotage question the
// engine never consumed is still waited on until someone answers it, and the
// answer must be no.
func (a *Adapter) OnMissionComplete(ctx context.Context, sabotaged int) error {
	a.mu.Lock()
	f := a.pending
	held := a.pendingKind
	a.mu.Unlock()

	if f != nil && held == KindSabotage {
		blocked := !f.Ready()
		r, err := a.wait(ctx, f, KindSabotage, a.replyTimeout)
		if err != nil {
			return err
		}
		if blocked && r.yes {
			return fmt.Errorf("%w: %s answered yes to a sabotage that was handled automatically", ErrProtocol, a.name)
		}
	}

	a.Send(protocol.Sabotages(sabotaged))
	return nil
}

// OnGameComplete announces the result and arms the teardown acknowledgement.
// The session leaves the shared channel once every seat is armed, then calls
// AwaitPart on each seat.
func (a *Adapter) OnGameComplete(_ context.Context, resistanceWon bool, spies []game.Player) error {
	_, err := a.ask(KindPart, protocol.Result(resistanceWon, spies))
	return err
}

// AwaitPart blocks until the occupant left, then leaves the seat channel.
func (a *Adapter) AwaitPart(ctx context.Context) error {
	f, err := a.current(KindPart)
	if err != nil {
		return err
	}
	if _, err := a.wait(ctx, f, KindPart, a.teardownTimeout); err != nil {
		return err
	}
	return a.client.Part(a.channel)
}

// Leave drops the seat channel without waiting for the occupant.
func (a *Adapter) Leave() {
	if err := a.client.Part(a.channel); err != nil {
		log.Warn().Err(err).Str("seat", a.name).Msg("seat part failed")
	}
}

// ResolveJoin acknowledges the occupant's arrival. It reports whether this
// seat was waiting for one.
func (a *Adapter) ResolveJoin() bool {
	return a.resolveEvent(KindJoin)
}

// ResolvePart acknowledges the occupant leaving during teardown.
func (a *Adapter) ResolvePart() bool {
	return a.resolveEvent(KindPart)
}

func (a *Adapter) resolveEvent(kind Kind) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil || a.pendingKind != kind {
		return false
	}
	if !a.pending.Ready() {
		_ = a.pending.Set(reply{})
	}
	return true
}

// PendingSabotage reports whether a sabotage question is still unanswered.
func (a *Adapter) PendingSabotage() bool {
	return a.Expecting() == KindSabotage
}

// ResolveSabotage answers the outstanding sabotage question on the
// occupant's behalf.
func (a *Adapter) ResolveSabotage(yes bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.expectingLocked() != KindSabotage {
		return fmt.Errorf("%w: seat %s has no sabotage outstanding", ErrProtocol, a.name)
	}
	if err := a.pending.Set(reply{yes: yes}); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}

// Deliver routes a chat line from the seat channel to the outstanding reply.
// A line naming a reply kind must match what the seat is waiting for.
func (a *Adapter) Deliver(words []string) error {
	a.mu.Lock()
	expecting := a.expectingLocked()
	if len(words) > 0 {
		if named := kindForReplyWord(words[0]); named != KindNone && named != expecting {
			a.mu.Unlock()
			return fmt.Errorf("%w: seat %s sent %s while expecting %s", ErrProtocol, a.name, named, expecting)
		}
	}
	if !expecting.answeredByMessage() {
		a.mu.Unlock()
		return fmt.Errorf("%w: seat %s sent %q while nothing was expected", ErrProtocol, a.name, strings.Join(words, " "))
	}
	resend, err := a.handlers[expecting](words)
	a.mu.Unlock()

	if resend != "" {
		a.Send(resend)
	}
	return err
}

// Handlers run with a.mu held.

func (a *Adapter) onSelected(words []string) (string, error) {
	team, err := protocol.ParseSelection(words, a.players, a.selectCount)
	if err != nil {
		return a.rejectLocked(err)
	}
	return "", a.setLocked(reply{team: team})
}

func (a *Adapter) onYesNo(words []string) (string, error) {
	yes, err := protocol.ParseReply(words)
	if err != nil {
		return a.rejectLocked(err)
	}
	return "", a.setLocked(reply{yes: yes})
}

func (a *Adapter) setLocked(r reply) error {
	if err := a.pending.Set(r); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}

// rejectLocked handles an unreadable reply: either the occupant is prompted
// again or the waiting engine call fails with the parse error.
func (a *Adapter) rejectLocked(cause error) (string, error) {
	log.Info().Err(cause).Str("seat", a.name).Str("kind", a.pendingKind.String()).Msg("unreadable reply")
	if a.reprompt {
		return protocol.Error(cause.Error()) + " " + a.prompt, nil
	}
	_ = a.pending.Fail(cause)
	return "", nil
}
