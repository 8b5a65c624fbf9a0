// Package moderator runs Resistance sessions over chat: it owns the lobby
// roster, turns PLAY requests into sessions bound to pool slots and routes
// every inbound chat event to the seat waiting for it.
package moderator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"resistance-moderator/internal/game"
	"resistance-moderator/internal/pool"
	"resistance-moderator/internal/seat"
	"resistance-moderator/internal/stats"
	"resistance-moderator/internal/transport"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var ErrNoCompetitors = errors.New("no_competitors")

type Options struct {
	Lobby     string
	Capacity  int
	QueueSize int
	Seat      seat.Options
	// Output receives the statistics table after an automatic competition.
	Output io.Writer
}

type job struct {
	roster  []Candidate
	results chan<- Outcome
}

// Summary aggregates the outcomes of one request.
type Summary struct {
	Games         int
	ResistanceWon int
	Failed        int
	Elapsed       time.Duration
}

func (s Summary) String() string {
	seconds := s.Elapsed.Seconds()
	var line string
	if s.Games > 1 {
		gps := 0.0
		if seconds > 0 {
			gps = float64(s.Games) / seconds
		}
		line = fmt.Sprintf("PLAYED %d games in %.2fs, at %.2f GPS.", s.Games, seconds, gps)
	} else {
		line = fmt.Sprintf("PLAYED game in %.2fs.", seconds)
	}
	line += fmt.Sprintf(" RESISTANCE WON %d.", s.ResistanceWon)
	if s.Failed > 0 {
		line += fmt.Sprintf(" FAILED %d.", s.Failed)
	}
	return line
}

type Orchestrator struct {
	client      transport.Client
	opts        Options
	pool        *pool.Pool
	competitors *Competitors
	registry    *Registry
	stats       *stats.Table

	upcoming   chan job
	fatal      chan error
	finished   chan struct{}
	finishOnce sync.Once
	sessions   sync.WaitGroup
}

func NewOrchestrator(client transport.Client, opts Options) *Orchestrator {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Orchestrator{
		client:      client,
		opts:        opts,
		pool:        pool.New(opts.Capacity),
		competitors: NewCompetitors(),
		registry:    NewRegistry(),
		stats:       stats.NewTable(),
		upcoming:    make(chan job, opts.QueueSize),
		fatal:       make(chan error, 1),
		finished:    make(chan struct{}),
	}
}

func (o *Orchestrator) Competitors() *Competitors { return o.competitors }
func (o *Orchestrator) Registry() *Registry       { return o.registry }
func (o *Orchestrator) Pool() *pool.Pool          { return o.pool }
func (o *Orchestrator) Stats() *stats.Table       { return o.stats }
func (o *Orchestrator) Lobby() string             { return o.opts.Lobby }

// Fatal delivers the first error that must stop the process: the moderator
// is out of sync with the chat, or an automatic competition could not run.
func (o *Orchestrator) Fatal() <-chan error { return o.fatal }

// Finished is closed once an automatic competition completed.
func (o *Orchestrator) Finished() <-chan struct{} { return o.finished }

// Run takes queued games, binds each to a free slot and plays it in its own
// goroutine. It returns when ctx ends, after every session has stopped.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.sessions.Wait()
	for {
		var j job
		select {
		case <-ctx.Done():
			return nil
		case j = <-o.upcoming:
		}
		slot, err := o.pool.Acquire(ctx)
		if err != nil {
			j.results <- Outcome{Err: err}
			return nil
		}
		o.sessions.Add(1)
		go o.play(ctx, slot, j)
	}
}

func (o *Orchestrator) play(ctx context.Context, slot int, j job) {
	defer o.sessions.Done()
	s := newSession(slot, j.roster, o.client, o.opts.Seat)
	o.registry.Add(s)
	metricSessionsTotal.Add(1)

	var out Outcome
	defer func() {
		o.registry.Remove(s)
		if err := o.pool.Release(slot); err != nil {
			out.Err = errors.Join(out.Err, err)
		}
		if out.Err != nil {
			metricSessionsFailed.Add(1)
			log.Warn().Err(out.Err).Int("slot", slot).Str("session", s.ID).Msg("session failed")
			if IsFatal(out.Err) {
				o.reportFatal(out.Err)
			}
		} else {
			o.stats.Add(out.Result)
			log.Info().
				Int("slot", slot).
				Str("session", s.ID).
				Bool("resistance_won", out.Result.ResistanceWon).
				Msg("session finished")
		}
		j.results <- out
	}()
	out = s.run(ctx)
}

func (o *Orchestrator) reportFatal(err error) {
	select {
	case o.fatal <- err:
	default:
	}
}

// Submit runs a PLAY directive to completion and reports on the lobby.
// Roster problems are answered on the lobby and returned; nothing is queued.
func (o *Orchestrator) Submit(ctx context.Context, text string) (Summary, error) {
	req, err := o.Accept(text)
	if err != nil {
		return Summary{}, err
	}
	return o.Complete(ctx, req)
}

// Accept resolves a PLAY directive and announces it on the lobby.
func (o *Orchestrator) Accept(text string) (MatchRequest, error) {
	metricMatchesTotal.Add(1)
	req, err := Resolve(text, o.competitors)
	if err != nil {
		metricMatchesRefused.Add(1)
		o.say(o.opts.Lobby, Report(err))
		return MatchRequest{}, err
	}
	o.say(o.opts.Lobby, req.Announce())
	log.Info().Str("match", req.ID).Int("count", req.Count).Strs("roster", req.Names()).Msg("match accepted")
	return req, nil
}

// Complete plays an accepted request and posts the aggregate on the lobby.
func (o *Orchestrator) Complete(ctx context.Context, req MatchRequest) (Summary, error) {
	sum, err := o.Play(ctx, req)
	if err != nil {
		return sum, err
	}
	o.say(o.opts.Lobby, sum.String())
	log.Info().Str("match", req.ID).Int("failed", sum.Failed).Msg(sum.String())
	return sum, nil
}

// Play queues every replay of req and waits for all of them.
func (o *Orchestrator) Play(ctx context.Context, req MatchRequest) (Summary, error) {
	rosters := lo.Times(req.Count, func(int) []Candidate { return req.Roster })
	return o.playAll(ctx, rosters)
}

func (o *Orchestrator) playAll(ctx context.Context, rosters [][]Candidate) (Summary, error) {
	start := time.Now()
	results := make(chan Outcome, len(rosters))
	for _, roster := range rosters {
		select {
		case o.upcoming <- job{roster: roster, results: results}:
		case <-ctx.Done():
			return Summary{}, ctx.Err()
		}
	}

	sum := Summary{Games: len(rosters)}
	for range rosters {
		select {
		case out := <-results:
			switch {
			case out.Err != nil:
				sum.Failed++
			case out.Result.ResistanceWon:
				sum.ResistanceWon++
			}
		case <-ctx.Done():
			return sum, ctx.Err()
		}
	}
	sum.Elapsed = time.Since(start)
	return sum, nil
}

// RunCompetition plays rounds games between random lobby competitors,
// prints the statistics table and leaves the server. An empty lobby is
// reported on Fatal; Finished is closed only when the competition ran.
func (o *Orchestrator) RunCompetition(ctx context.Context, rounds int) error {
	names := o.competitors.List()
	if len(names) == 0 {
		o.reportFatal(ErrNoCompetitors)
		return ErrNoCompetitors
	}
	rosters := lo.Times(rounds, func(int) []Candidate { return pickRound(names) })
	log.Info().Int("rounds", rounds).Int("competitors", len(names)).Msg("competition started")

	sum, err := o.playAll(ctx, rosters)
	if err != nil {
		return err
	}
	log.Info().Int("failed", sum.Failed).Msg(sum.String())
	o.stats.Render(o.opts.Output)
	o.finish()
	if err := o.client.Quit("competition finished"); err != nil {
		log.Warn().Err(err).Msg("quit failed")
	}
	return nil
}

func (o *Orchestrator) finish() {
	o.finishOnce.Do(func() { close(o.finished) })
}

// pickRound seats five competitors, repeating names when the lobby is short.
func pickRound(names []string) []Candidate {
	var picked []string
	if len(names) < game.NumPlayers {
		picked = lo.Times(game.NumPlayers, func(int) string { return lo.Sample(names) })
	} else {
		picked = lo.Samples(names, game.NumPlayers)
	}
	return lo.Map(picked, func(n string, _ int) Candidate { return Candidate{Name: n} })
}

func (o *Orchestrator) say(target, text string) {
	if err := o.client.Say(target, text); err != nil {
		log.Warn().Err(err).Str("target", target).Msg("send failed")
	}
}
