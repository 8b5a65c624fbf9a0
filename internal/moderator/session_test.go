package moderator

import (
	"context"
	"strings"
	"testing"
)

func TestSessionHidesRolesUntilFinished(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()
	s, seats := f.liveSession(t, map[int]bool{1: true}, 1)
	a := seats[1]
	a.ResolveJoin()
	if err := a.OnGameRevealed(ctx, players(), players()[:2]); err != nil {
		t.Fatalf("OnGameRevealed: %v", err)
	}

	leaks := func(lines []Line) bool {
		for _, l := range lines {
			if strings.Contains(l.Text, "SPIES") || strings.Contains(l.Text, "ROLE") {
				return true
			}
		}
		return false
	}
	live := s.TranscriptAfter("")
	if leaks(live) {
		t.Fatalf("live transcript reveals roles: %+v", live)
	}
	hidden := false
	for _, l := range live {
		hidden = hidden || l.Text == hiddenLine
	}
	if !hidden {
		t.Fatalf("reveal line missing from the live transcript: %+v", live)
	}

	backlog, ch := s.Transcript().Follow("")
	for _, l := range backlog {
		if p := s.Public(l); strings.Contains(p.Text, "SPIES") {
			t.Fatalf("followed line reveals roles: %q", p.Text)
		}
	}

	s.finish(nil)
	if _, ok := <-ch; ok {
		t.Fatal("follow channel still open after finish")
	}
	if !leaks(s.TranscriptAfter("")) {
		t.Fatalf("finished transcript should show the reveal: %+v", s.TranscriptAfter(""))
	}
}
