package moderator

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"resistance-moderator/internal/transport"
)

func waitPoolIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for o.Pool().InUse() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("pool still has %d slots in use", o.Pool().InUse())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestPlayTwoGamesEndToEnd(t *testing.T) {
	h := newHarness(t, Options{}, 0)
	h.start()
	h.lobby("alice", "bob", "carol", "dave", "eve")
	before := h.orch.Pool().Available()

	h.events <- transport.Event{
		Kind:    transport.EventMessage,
		Channel: testLobby,
		User:    "tester",
		Words:   strings.Fields("PLAY 2 alice bob carol dave eve"),
	}

	line := h.chat.WaitForLine(t, testLobby, "PLAYED", 10*time.Second)
	if !strings.Contains(line, "PLAYED 2 games") {
		t.Fatalf("unexpected aggregate %q", line)
	}
	if !strings.Contains(line, "RESISTANCE WON 2.") || strings.Contains(line, "FAILED") {
		t.Fatalf("unexpected outcome in %q", line)
	}
	lobby := h.chat.Lines(testLobby)
	if lobby[0] != "PLAYING alice bob carol dave eve!" {
		t.Fatalf("unexpected announcement %q", lobby[0])
	}

	sessions := h.orch.Registry().List()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Slot == sessions[1].Slot {
		t.Fatalf("sessions shared slot %d", sessions[0].Slot)
	}
	for _, s := range sessions {
		if s.Status != sessionStatusFinished {
			t.Fatalf("session %d ended as %s (%s)", s.Slot, s.Status, s.Error)
		}
		if len(s.Seats) != 5 {
			t.Fatalf("session %d had %d seats", s.Slot, len(s.Seats))
		}
	}

	waitPoolIdle(t, h.orch)
	after := h.orch.Pool().Available()
	sort.Ints(before)
	sort.Ints(after)
	if len(before) != len(after) {
		t.Fatalf("pool changed from %v to %v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("pool changed from %v to %v", before, after)
		}
	}
	if h.orch.Stats().Games() != 2 {
		t.Fatalf("expected 2 scored games, got %d", h.orch.Stats().Games())
	}
}

func TestSessionProtocolLines(t *testing.T) {
	h := newHarness(t, Options{}, 0)
	ctx := h.start()
	h.lobby("alice", "bob", "carol", "dave", "eve")
	waitRoster(t, h.orch, 5)

	if _, err := h.orch.Submit(ctx, "alice bob carol dave eve"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	lines := h.chat.Lines("#game-0001-player-1")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "REVEAL #game-0001; ROLE ") {
		t.Fatalf("unexpected first seat line %v", lines)
	}
	if !strings.HasPrefix(lines[1], "MISSION 1.1; LEADER ") {
		t.Fatalf("unexpected mission line %q", lines[1])
	}
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "RESULT Yes; SPIES ") {
		t.Fatalf("unexpected last line %q", last)
	}
	lobby := h.chat.Lines(testLobby)
	if got := lobby[len(lobby)-1]; !strings.HasPrefix(got, "PLAYED game in ") {
		t.Fatalf("unexpected single game aggregate %q", got)
	}

	parted := h.chat.Parted()
	if len(parted) != 6 || parted[0] != "#game-0001" {
		t.Fatalf("expected the session channel first then 5 seat channels, got %v", parted)
	}
	s, ok := h.orch.Registry().BySlot(1)
	if !ok {
		t.Fatalf("finished session not kept")
	}
	if len(s.Transcript().ReplayAfter("")) == 0 {
		t.Fatalf("empty transcript")
	}
}

func waitRoster(t *testing.T, o *Orchestrator, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for o.Competitors().Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("roster has %v", o.Competitors().List())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRosterErrorConsumesNoSlot(t *testing.T) {
	h := newHarness(t, Options{}, 0)
	ctx := h.start()
	h.lobby("alice", "bob")
	waitRoster(t, h.orch, 2)

	_, err := h.orch.Submit(ctx, "alice zed")
	var re *RosterError
	if !errors.As(err, &re) {
		t.Fatalf("expected RosterError, got %v", err)
	}
	got := h.chat.Lines(testLobby)
	if len(got) != 1 || got[0] != "ERROR. zed was not found in [alice, bob]." {
		t.Fatalf("unexpected lobby lines %v", got)
	}
	if h.orch.Pool().InUse() != 0 || h.orch.Registry().Live() != 0 {
		t.Fatalf("rejected request touched the pool")
	}
}

func TestSilentOccupantFailsSessionAndReleasesSlot(t *testing.T) {
	h := newHarness(t, Options{Seat: testSeatOptionsWithReply(50 * time.Millisecond)}, 0)
	ctx := h.start()
	h.lobby("alice", "bob", "carol", "dave", "eve")
	waitRoster(t, h.orch, 5)
	for _, n := range []string{"alice", "bob", "carol", "dave", "eve"} {
		h.silence(n)
	}

	sum, err := h.orch.Submit(ctx, "alice bob carol dave eve")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sum.Failed != 1 {
		t.Fatalf("expected one failed game, got %+v", sum)
	}
	lobby := h.chat.Lines(testLobby)
	if got := lobby[len(lobby)-1]; !strings.HasSuffix(got, "FAILED 1.") {
		t.Fatalf("unexpected aggregate %q", got)
	}
	waitPoolIdle(t, h.orch)
	s, _ := h.orch.Registry().BySlot(1)
	if info := s.Info(); info.Status != sessionStatusFailed || !strings.Contains(info.Error, "occupant_disconnected") {
		t.Fatalf("unexpected session state %+v", info)
	}
}

func TestMoreGamesThanSlots(t *testing.T) {
	h := newHarness(t, Options{Capacity: 1}, 0)
	ctx := h.start()
	h.lobby("alice", "bob", "carol", "dave", "eve")
	waitRoster(t, h.orch, 5)

	sum, err := h.orch.Submit(ctx, "3 alice bob carol dave eve")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sum.Games != 3 || sum.ResistanceWon != 3 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	for _, s := range h.orch.Registry().List() {
		if s.Slot != 1 {
			t.Fatalf("single slot pool handed out slot %d", s.Slot)
		}
	}
}

func TestAutomaticCompetition(t *testing.T) {
	h := newHarness(t, Options{}, 3)
	h.start()
	h.lobby("alice", "bob")

	select {
	case <-h.orch.Finished():
	case <-time.After(10 * time.Second):
		t.Fatalf("competition did not finish")
	}
	if !h.chat.Quitted() {
		t.Fatalf("moderator did not quit after the competition")
	}
	if h.orch.Stats().Games() != 3 {
		t.Fatalf("expected 3 scored games, got %d", h.orch.Stats().Games())
	}
	table := h.out.String()
	if !strings.Contains(table, "alice") || !strings.Contains(table, "bob") {
		t.Fatalf("table misses competitors:\n%s", table)
	}
}

func TestSummaryString(t *testing.T) {
	one := Summary{Games: 1, ResistanceWon: 1, Elapsed: 1500 * time.Millisecond}
	if got := one.String(); got != "PLAYED game in 1.50s. RESISTANCE WON 1." {
		t.Fatalf("unexpected %q", got)
	}
	many := Summary{Games: 4, ResistanceWon: 1, Failed: 1, Elapsed: 2 * time.Second}
	if got := many.String(); got != "PLAYED 4 games in 2.00s, at 2.00 GPS. RESISTANCE WON 1. FAILED 1." {
		t.Fatalf("unexpected %q", got)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	h := newHarness(t, Options{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestCompetitionWithEmptyLobbyFails(t *testing.T) {
	h := newHarness(t, Options{}, 3)
	h.start()
	h.lobby()

	select {
	case err := <-h.orch.Fatal():
		if !errors.Is(err, ErrNoCompetitors) {
			t.Fatalf("unexpected fatal error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("empty lobby was not reported")
	}
	select {
	case <-h.orch.Finished():
		t.Fatal("competition marked finished without playing")
	default:
	}
	if h.chat.Quitted() {
		t.Fatal("moderator quit as if the competition had finished")
	}
}
