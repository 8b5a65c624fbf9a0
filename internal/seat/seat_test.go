package seat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resistance-moderator/internal/game"
	"resistance-moderator/internal/protocol"
	"resistance-moderator/internal/testutil"
)

var testPlayers = []game.Player{
	{Name: "alice", Index: 1},
	{Name: "bob", Index: 2},
	{Name: "carol", Index: 3},
	{Name: "dave", Index: 4},
	{Name: "eve", Index: 5},
}

func newTestSeat(t *testing.T, index int, spy bool, opts Options) (*Adapter, *testutil.Chat) {
	t.Helper()
	chat := testutil.NewChat("moderator")
	if opts.ReplyTimeout == 0 {
		opts.ReplyTimeout = 2 * time.Second
	}
	if opts.TeardownTimeout == 0 {
		opts.TeardownTimeout = 2 * time.Second
	}
	var registered *Adapter
	b := Builder{
		Name:     testPlayers[index-1].Name,
		Session:  "#game-0001",
		Client:   chat,
		Options:  opts,
		Register: func(a *Adapter) { registered = a },
	}
	a, err := b.Build(testPlayers[index-1], spy)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if registered != a {
		t.Fatalf("expected adapter to be registered before joining")
	}
	return a, chat
}

func joined(t *testing.T, a *Adapter) {
	t.Helper()
	if !a.ResolveJoin() {
		t.Fatalf("expected seat to wait for a join")
	}
	if err := a.OnGameRevealed(context.Background(), testPlayers, nil); err != nil {
		t.Fatalf("OnGameRevealed: %v", err)
	}
}

type result[T any] struct {
	value T
	err   error
}

func TestBuildJoinsChannelsAndInvitesOccupant(t *testing.T) {
	a, chat := newTestSeat(t, 3, false, Options{})

	if a.Channel() != "#game-0001-player-3" {
		t.Fatalf("unexpected seat channel %s", a.Channel())
	}
	got := chat.Joined()
	if len(got) != 2 || got[0] != "#game-0001-player-3" || got[1] != "#game-0001" {
		t.Fatalf("unexpected joins %v", got)
	}
	lines := chat.Lines("carol")
	if len(lines) != 1 || lines[0] != "JOIN #game-0001-player-3." {
		t.Fatalf("unexpected invite %v", lines)
	}
	if a.Expecting() != KindJoin {
		t.Fatalf("expected join, got %s", a.Expecting())
	}
}

func TestRevealWaitsForJoin(t *testing.T) {
	a, chat := newTestSeat(t, 1, true, Options{})
	done := make(chan error, 1)
	go func() {
		done <- a.OnGameRevealed(context.Background(), testPlayers, testPlayers[:2])
	}()

	select {
	case err := <-done:
		t.Fatalf("reveal returned before join: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	a.ResolveJoin()
	if err := <-done; err != nil {
		t.Fatalf("OnGameRevealed: %v", err)
	}
	line := chat.WaitForLine(t, a.Channel(), "REVEAL", time.Second)
	want := "REVEAL #game-0001; ROLE Spy; PLAYERS 1-alice, 2-bob, 3-carol, 4-dave, 5-eve; SPIES 1-alice, 2-bob."
	if line != want {
		t.Fatalf("got %q, want %q", line, want)
	}
	if a.ResolveJoin() {
		t.Fatalf("join must not be expected after reveal")
	}
}

func TestSelectParsesTeam(t *testing.T) {
	a, chat := newTestSeat(t, 1, false, Options{})
	joined(t, a)

	done := make(chan result[[]game.Player], 1)
	go func() {
		team, err := a.Select(context.Background(), testPlayers, 3)
		done <- result[[]game.Player]{team, err}
	}()
	chat.WaitForLine(t, a.Channel(), "SELECT 3!", time.Second)

	if err := a.Deliver(protocol.Tokens("SELECTED 1, 2, 3")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	r := <-done
	if r.err != nil {
		t.Fatalf("Select: %v", r.err)
	}
	if protocol.Team(r.value) != "1-alice, 2-bob, 3-carol" {
		t.Fatalf("unexpected team %v", r.value)
	}
	if a.Expecting() != KindNone {
		t.Fatalf("seat still expects %s", a.Expecting())
	}
}

func TestVoteIsPromptedBeforeTheEngineWaits(t *testing.T) {
	a, chat := newTestSeat(t, 2, false, Options{})
	joined(t, a)
	ctx := context.Background()

	if err := a.OnTeamSelected(ctx, testPlayers[0], testPlayers[:2]); err != nil {
		t.Fatalf("OnTeamSelected: %v", err)
	}
	if got := chat.Lines(a.Channel()); got[len(got)-1] != "VOTE 1-alice, 2-bob?" {
		t.Fatalf("unexpected prompt %v", got)
	}
	// An early answer is kept until the engine asks for it.
	if err := a.Deliver(protocol.Tokens("VOTED Yes.")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	yes, err := a.Vote(ctx, testPlayers[:2])
	if err != nil || !yes {
		t.Fatalf("Vote = %v, %v", yes, err)
	}
}

func TestSecondQuestionIsRejectedWhileOneIsPending(t *testing.T) {
	a, _ := newTestSeat(t, 2, false, Options{})
	joined(t, a)
	ctx := context.Background()

	if err := a.OnTeamSelected(ctx, testPlayers[0], testPlayers[:2]); err != nil {
		t.Fatalf("OnTeamSelected: %v", err)
	}
	err := a.OnTeamSelected(ctx, testPlayers[0], testPlayers[:2])
	if !errors.Is(err, ErrReplyPending) {
		t.Fatalf("expected ErrReplyPending, got %v", err)
	}
}

func TestDeliverRejectsMismatchedReplies(t *testing.T) {
	a, _ := newTestSeat(t, 2, false, Options{})
	joined(t, a)

	if err := a.Deliver(protocol.Tokens("VOTED Yes")); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected protocol error with nothing pending, got %v", err)
	}
	if err := a.OnTeamSelected(context.Background(), testPlayers[0], testPlayers[:2]); err != nil {
		t.Fatalf("OnTeamSelected: %v", err)
	}
	if err := a.Deliver(protocol.Tokens("SABOTAGED No")); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected protocol error for the wrong reply word, got %v", err)
	}
	if a.Expecting() != KindVote {
		t.Fatalf("vote must still be pending, got %s", a.Expecting())
	}
}

func TestUnreadableReplyFailsTheWait(t *testing.T) {
	a, _ := newTestSeat(t, 2, false, Options{})
	joined(t, a)
	ctx := context.Background()

	if err := a.OnTeamSelected(ctx, testPlayers[0], testPlayers[:2]); err != nil {
		t.Fatalf("OnTeamSelected: %v", err)
	}
	if err := a.Deliver(protocol.Tokens("VOTED maybe")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if _, err := a.Vote(ctx, testPlayers[:2]); !errors.Is(err, protocol.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestUnreadableReplyIsPromptedAgain(t *testing.T) {
	a, chat := newTestSeat(t, 2, false, Options{Reprompt: true})
	joined(t, a)
	ctx := context.Background()

	if err := a.OnTeamSelected(ctx, testPlayers[0], testPlayers[:2]); err != nil {
		t.Fatalf("OnTeamSelected: %v", err)
	}
	if err := a.Deliver(protocol.Tokens("VOTED maybe")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	lines := chat.Lines(a.Channel())
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "ERROR ") || !strings.HasSuffix(last, "VOTE 1-alice, 2-bob?") {
		t.Fatalf("unexpected re-prompt %q", last)
	}
	if err := a.Deliver(protocol.Tokens("VOTED No")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	yes, err := a.Vote(ctx, testPlayers[:2])
	if err != nil || yes {
		t.Fatalf("Vote = %v, %v", yes, err)
	}
}

func TestReplyTimeoutReportsDisconnect(t *testing.T) {
	a, _ := newTestSeat(t, 1, false, Options{ReplyTimeout: 20 * time.Millisecond})
	joined(t, a)

	_, err := a.Select(context.Background(), testPlayers, 2)
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}

func TestHumanSeatUsesLongerTimeout(t *testing.T) {
	chat := testutil.NewChat("moderator")
	a, err := Builder{
		Name:    "@zoe",
		Human:   true,
		Session: "#game-0002",
		Client:  chat,
		Options: Options{ReplyTimeout: time.Millisecond, HumanReplyTimeout: time.Hour},
	}.Build(testPlayers[0], false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if a.replyTimeout != time.Hour {
		t.Fatalf("expected human timeout, got %s", a.replyTimeout)
	}
}

func TestSabotageQuestionOnlyForApprovedTeamMembers(t *testing.T) {
	ctx := context.Background()
	team := testPlayers[:2]
	approved := []bool{true, true, true, false, false}

	member, memberChat := newTestSeat(t, 1, false, Options{})
	joined(t, member)
	outsider, outsiderChat := newTestSeat(t, 4, false, Options{})
	joined(t, outsider)

	for _, s := range []*Adapter{member, outsider} {
		if err := s.OnTeamSelected(ctx, testPlayers[0], team); err != nil {
			t.Fatalf("OnTeamSelected: %v", err)
		}
		if err := s.Deliver(protocol.Tokens("VOTED Yes")); err != nil {
			t.Fatalf("Deliver: %v", err)
		}
		if _, err := s.Vote(ctx, team); err != nil {
			t.Fatalf("Vote: %v", err)
		}
		if err := s.OnVoteComplete(ctx, approved); err != nil {
			t.Fatalf("OnVoteComplete: %v", err)
		}
	}

	if got := memberChat.Lines(member.Channel()); got[len(got)-1] != "SABOTAGE?" {
		t.Fatalf("team member not asked: %v", got)
	}
	if got := outsiderChat.Lines(outsider.Channel()); got[len(got)-1] != "VOTES Yes, Yes, Yes, No, No." {
		t.Fatalf("outsider asked: %v", got)
	}
	if !member.PendingSabotage() || outsider.PendingSabotage() {
		t.Fatalf("unexpected pending sabotage state")
	}

	rejected := []bool{true, true, false, false, false}
	m2, chat2 := newTestSeat(t, 1, false, Options{})
	joined(t, m2)
	if err := m2.OnTeamSelected(ctx, testPlayers[0], team); err != nil {
		t.Fatalf("OnTeamSelected: %v", err)
	}
	if err := m2.Deliver(protocol.Tokens("VOTED No")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if _, err := m2.Vote(ctx, team); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if err := m2.OnVoteComplete(ctx, rejected); err != nil {
		t.Fatalf("OnVoteComplete: %v", err)
	}
	if got := chat2.Lines(m2.Channel()); got[len(got)-1] == "SABOTAGE?" {
		t.Fatalf("rejected team must not be asked to sabotage")
	}
}

func approvedMember(t *testing.T, spy bool) (*Adapter, *testutil.Chat) {
	t.Helper()
	ctx := context.Background()
	a, chat := newTestSeat(t, 1, spy, Options{ReplyTimeout: time.Second})
	joined(t, a)
	team := testPlayers[:2]
	if err := a.OnTeamSelected(ctx, testPlayers[0], team); err != nil {
		t.Fatalf("OnTeamSelected: %v", err)
	}
	if err := a.Deliver(protocol.Tokens("VOTED Yes")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if _, err := a.Vote(ctx, team); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if err := a.OnVoteComplete(ctx, []bool{true, true, true, true, true}); err != nil {
		t.Fatalf("OnVoteComplete: %v", err)
	}
	return a, chat
}

func TestMissionCompleteWaitsForUnconsumedSabotage(t *testing.T) {
	a, chat := approvedMember(t, false)
	done := make(chan error, 1)
	go func() { done <- a.OnMissionComplete(context.Background(), 0) }()

	select {
	case err := <-done:
		t.Fatalf("mission completed before the sabotage answer: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	if err := a.ResolveSabotage(false); err != nil {
		t.Fatalf("ResolveSabotage: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("OnMissionComplete: %v", err)
	}
	chat.WaitForLine(t, a.Channel(), "SABOTAGES 0.", time.Second)
	if a.Expecting() != KindNone {
		t.Fatalf("sabotage must be cleared, got %s", a.Expecting())
	}
}

func TestMissionCompleteRejectsLateYesFromResistance(t *testing.T) {
	a, _ := approvedMember(t, false)
	done := make(chan error, 1)
	go func() { done <- a.OnMissionComplete(context.Background(), 0) }()
	time.Sleep(10 * time.Millisecond)

	if err := a.Deliver(protocol.Tokens("SABOTAGED Yes")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if err := <-done; !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestMissionCompleteConsumesEarlyAnswer(t *testing.T) {
	a, chat := approvedMember(t, false)
	if err := a.Deliver(protocol.Tokens("SABOTAGED No")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if err := a.OnMissionComplete(context.Background(), 1); err != nil {
		t.Fatalf("OnMissionComplete: %v", err)
	}
	chat.WaitForLine(t, a.Channel(), "SABOTAGES 1.", time.Second)
}

func TestSpySabotageIsReadByTheEngine(t *testing.T) {
	a, _ := approvedMember(t, true)
	if err := a.Deliver(protocol.Tokens("SABOTAGED Yes")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	yes, err := a.Sabotage(context.Background())
	if err != nil || !yes {
		t.Fatalf("Sabotage = %v, %v", yes, err)
	}
	if err := a.OnMissionComplete(context.Background(), 1); err != nil {
		t.Fatalf("OnMissionComplete: %v", err)
	}
}

func TestTeardownWaitsForPart(t *testing.T) {
	a, chat := newTestSeat(t, 5, false, Options{})
	joined(t, a)
	ctx := context.Background()

	if err := a.OnGameComplete(ctx, true, testPlayers[:2]); err != nil {
		t.Fatalf("OnGameComplete: %v", err)
	}
	chat.WaitForLine(t, a.Channel(), "RESULT Yes; SPIES 1-alice, 2-bob.", time.Second)

	done := make(chan error, 1)
	go func() { done <- a.AwaitPart(ctx) }()
	if !a.ResolvePart() {
		t.Fatalf("seat must expect a part")
	}
	if err := <-done; err != nil {
		t.Fatalf("AwaitPart: %v", err)
	}
	parted := chat.Parted()
	if len(parted) != 1 || parted[0] != a.Channel() {
		t.Fatalf("unexpected parts %v", parted)
	}
}

func TestTeardownTimeout(t *testing.T) {
	a, _ := newTestSeat(t, 5, false, Options{TeardownTimeout: 20 * time.Millisecond})
	joined(t, a)
	if err := a.OnGameComplete(context.Background(), false, nil); err != nil {
		t.Fatalf("OnGameComplete: %v", err)
	}
	if err := a.AwaitPart(context.Background()); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}

func TestMissionCompleteDoesNotBlockOutsiders(t *testing.T) {
	ctx := context.Background()
	team := testPlayers[:2]
	outsider, chat := newTestSeat(t, 4, false, Options{ReplyTimeout: time.Hour})
	joined(t, outsider)
	if err := outsider.OnTeamSelected(ctx, testPlayers[0], team); err != nil {
		t.Fatalf("OnTeamSelected: %v", err)
	}
	if err := outsider.Deliver(protocol.Tokens("VOTED Yes")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if _, err := outsider.Vote(ctx, team); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if err := outsider.OnVoteComplete(ctx, []bool{true, true, true, true, true}); err != nil {
		t.Fatalf("OnVoteComplete: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- outsider.OnMissionComplete(ctx, 1) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("OnMissionComplete: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("OnMissionComplete blocked a seat that was not on the team")
	}
	if got := chat.Lines(outsider.Channel()); got[len(got)-1] != "SABOTAGES 1." {
		t.Fatalf("outsider not told the tally: %v", got)
	}
}
