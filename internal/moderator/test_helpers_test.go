package moderator

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"resistance-moderator/internal/seat"
	"resistance-moderator/internal/testutil"
	"resistance-moderator/internal/transport"
)

const testLobby = "#resistance"

var selectPrompt = regexp.MustCompile(`^SELECT (\d+)!$`)

// harness wires an orchestrator and router to an in-memory chat whose
// occupants answer every prompt like a cooperative bot.
type harness struct {
	t      *testing.T
	chat   *testutil.Chat
	orch   *Orchestrator
	router *Router
	events chan transport.Event
	out    *bytes.Buffer

	mu       sync.Mutex
	occupant map[string]string
	// silent occupants never answer SELECT.
	silent map[string]bool
}

func newHarness(t *testing.T, opts Options, rounds int) *harness {
	t.Helper()
	if opts.Lobby == "" {
		opts.Lobby = testLobby
	}
	if opts.Capacity == 0 {
		opts.Capacity = 4
	}
	if opts.Seat.ReplyTimeout == 0 {
		opts.Seat.ReplyTimeout = 5 * time.Second
	}
	if opts.Seat.TeardownTimeout == 0 {
		opts.Seat.TeardownTimeout = 5 * time.Second
	}
	h := &harness{
		t:        t,
		chat:     testutil.NewChat("aigamedev"),
		events:   make(chan transport.Event, 4096),
		out:      &bytes.Buffer{},
		occupant: map[string]string{},
		silent:   map[string]bool{},
	}
	opts.Output = h.out
	h.orch = NewOrchestrator(h.chat, opts)
	h.router = NewRouter(h.orch, h.chat, rounds)
	h.chat.OnSay = h.react
	return h
}

func (h *harness) start() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	routed := make(chan error, 1)
	go func() { _ = h.orch.Run(ctx) }()
	go func() { routed <- h.router.Serve(ctx, h.events) }()
	h.t.Cleanup(func() {
		cancel()
		select {
		case err := <-routed:
			if err != nil {
				h.t.Errorf("router stopped with %v", err)
			}
		case <-time.After(time.Second):
			h.t.Errorf("router did not stop")
		}
	})
	return ctx
}

func (h *harness) lobby(names ...string) {
	members := append([]string{"@aigamedev"}, names...)
	h.events <- transport.Event{Kind: transport.EventNames, Channel: testLobby, Members: members}
}

func (h *harness) silence(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.silent[name] = true
}

func (h *harness) reply(channel, text string) {
	h.mu.Lock()
	user := h.occupant[channel]
	h.mu.Unlock()
	h.events <- transport.Event{Kind: transport.EventMessage, Channel: channel, User: user, Words: strings.Fields(text)}
}

func (h *harness) react(target, text string) {
	if strings.HasPrefix(text, "JOIN ") && !strings.HasPrefix(target, "#") {
		channel := strings.TrimSuffix(strings.TrimPrefix(text, "JOIN "), ".")
		h.mu.Lock()
		h.occupant[channel] = target
		h.mu.Unlock()
		h.events <- transport.Event{Kind: transport.EventJoin, Channel: channel, User: target}
		return
	}
	if !strings.Contains(target, "-player-") {
		return
	}
	h.mu.Lock()
	user := h.occupant[target]
	silent := h.silent[user]
	h.mu.Unlock()

	switch {
	case selectPrompt.MatchString(text):
		if silent {
			return
		}
		n, _ := strconv.Atoi(selectPrompt.FindStringSubmatch(text)[1])
		picks := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			picks = append(picks, strconv.Itoa(i))
		}
		h.reply(target, "SELECTED "+strings.Join(picks, ", "))
	case strings.HasPrefix(text, "VOTE "):
		h.reply(target, "VOTED Yes.")
	case text == "SABOTAGE?":
		h.reply(target, "SABOTAGED No.")
	case strings.HasPrefix(text, "RESULT "):
		h.events <- transport.Event{Kind: transport.EventPart, Channel: target, User: user}
	}
}

func testSeatOptionsWithReply(d time.Duration) seat.Options {
	return seat.Options{ReplyTimeout: d, TeardownTimeout: 2 * time.Second}
}
