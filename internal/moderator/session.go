package moderator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"resistance-moderator/internal/game"
	"resistance-moderator/internal/ids"
	"resistance-moderator/internal/protocol"
	"resistance-moderator/internal/seat"
	"resistance-moderator/internal/transport"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	sessionStatusStarting = "starting"
	sessionStatusPlaying  = "playing"
	sessionStatusClosing  = "closing"
	sessionStatusFinished = "finished"
	sessionStatusFailed   = "failed"
)

var ErrSessionPanic = errors.New("session_panic")

// Outcome is what a finished session reports to its request.
type Outcome struct {
	SessionID string
	Slot      int
	Result    game.Result
	Err       error
}

// Session is one game bound to a pool slot. Its seats register themselves
// while the engine builds them so the router can route the join events.
type Session struct {
	ID      string
	Slot    int
	Channel string
	Roster  []Candidate
	Started time.Time

	client     transport.Client
	opts       seat.Options
	transcript *Transcript

	mu       sync.Mutex
	seats    []*seat.Adapter
	status   string
	err      error
	finished time.Time
	parted   bool
}

type SessionInfo struct {
	ID         string      `json:"id"`
	Slot       int         `json:"slot"`
	Channel    string      `json:"channel"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Started    time.Time   `json:"started"`
	Finished   *time.Time  `json:"finished,omitempty"`
	Seats      []seat.Info `json:"seats"`
	Transcript int         `json:"transcript_lines"`
}

func newSession(slot int, roster []Candidate, client transport.Client, opts seat.Options) *Session {
	return &Session{
		ID:         ids.Prefixed("game"),
		Slot:       slot,
		Channel:    protocol.SessionChannel(slot),
		Roster:     roster,
		Started:    time.Now(),
		client:     client,
		opts:       opts,
		transcript: NewTranscript(defaultTranscriptSize),
		status:     sessionStatusStarting,
	}
}

func (s *Session) Transcript() *Transcript { return s.transcript }

func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	seats := slices.Clone(s.seats)
	info := SessionInfo{
		ID:      s.ID,
		Slot:    s.Slot,
		Channel: s.Channel,
		Status:  s.status,
		Started: s.Started,
	}
	if s.err != nil {
		info.Error = s.err.Error()
	}
	if !s.finished.IsZero() {
		finished := s.finished
		info.Finished = &finished
	}
	s.mu.Unlock()

	info.Seats = lo.Map(seats, func(a *seat.Adapter, _ int) seat.Info { return a.Info() })
	info.Transcript = len(s.transcript.ReplayAfter(""))
	return info
}

func (s *Session) Seats() []*seat.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.seats)
}

// SeatByChannel finds the seat owning a private channel.
func (s *Session) SeatByChannel(channel string) (*seat.Adapter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Find(s.seats, func(a *seat.Adapter) bool { return a.Channel() == channel })
}

// SeatAwaitingPart finds the first seat of user still waiting for a
// teardown acknowledgement.
func (s *Session) SeatAwaitingPart(user string) (*seat.Adapter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Find(s.seats, func(a *seat.Adapter) bool {
		return a.Name() == user && a.Expecting() == seat.KindPart
	})
}

// Owns reports whether channel is the session channel or one of its seats.
func (s *Session) Owns(channel string) bool {
	return channel == s.Channel || strings.HasPrefix(channel, s.Channel+"-")
}

func (s *Session) addSeat(a *seat.Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats = append(s.seats, a)
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

const hiddenLine = "[hidden until the game ends]"

func (s *Session) record(channel, text string) {
	if strings.HasPrefix(text, "REVEAL ") {
		s.transcript.AppendSecret(channel, text)
		return
	}
	s.transcript.Append(channel, text)
}

// Public returns l as outsiders may see it: role reveals stay hidden until
// the session is over.
func (s *Session) Public(l Line) Line {
	if !l.Secret || s.done() {
		return l
	}
	l.Text = hiddenLine
	return l
}

// TranscriptAfter is the public view of the transcript after lastID.
func (s *Session) TranscriptAfter(lastID string) []Line {
	return lo.Map(s.transcript.ReplayAfter(lastID), func(l Line, _ int) Line { return s.Public(l) })
}

func (s *Session) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == sessionStatusFinished || s.status == sessionStatusFailed
}

func (s *Session) factory() game.SeatFactory {
	return func(p game.Player, spy bool) (game.Seat, error) {
		c := s.Roster[p.Index-1]
		a, err := seat.Builder{
			Name:     c.Name,
			Human:    c.Human,
			Session:  s.Channel,
			Client:   s.client,
			Options:  s.opts,
			Register: s.addSeat,
			Record:   s.record,
		}.Build(p, spy)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

// run plays the game to the end. Every exit path, including a panic, leaves
// the session closed and its channels parted.
func (s *Session) run(ctx context.Context) (out Outcome) {
	out = Outcome{SessionID: s.ID, Slot: s.Slot}
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("%w: %v", ErrSessionPanic, r)
		}
		if out.Err != nil {
			s.abort()
		}
		s.finish(out.Err)
	}()

	names := lo.Map(s.Roster, func(c Candidate, _ int) string { return c.Name })
	engine, err := game.NewEngine(names, s.factory(), nil)
	if err != nil {
		out.Err = err
		return out
	}
	s.setStatus(sessionStatusPlaying)
	log.Info().Int("slot", s.Slot).Str("session", s.ID).Strs("roster", names).Msg("session started")

	res, err := engine.Run(ctx)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res
	out.Err = s.teardown(ctx)
	return out
}

// teardown leaves the session channel once, then waits for each occupant
// to leave its seat channel before leaving it too.
func (s *Session) teardown(ctx context.Context) error {
	s.setStatus(sessionStatusClosing)
	s.partSession()
	for _, a := range s.Seats() {
		if err := a.AwaitPart(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) abort() {
	s.partSession()
	for _, a := range s.Seats() {
		a.Leave()
	}
}

func (s *Session) partSession() {
	s.mu.Lock()
	if s.parted {
		s.mu.Unlock()
		return
	}
	s.parted = true
	s.mu.Unlock()
	if err := s.client.Part(s.Channel); err != nil {
		log.Warn().Err(err).Str("channel", s.Channel).Msg("session part failed")
	}
}

func (s *Session) finish(err error) {
	s.transcript.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = time.Now()
	s.err = err
	s.status = sessionStatusFinished
	if err != nil {
		s.status = sessionStatusFailed
	}
}
