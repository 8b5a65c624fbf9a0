// Package testutil provides an in-memory chat client for tests that need to
// observe what the moderator says and react to it like an occupant would.
package testutil

import (
	"strings"
	"sync"
	"testing"
	"time"
)

type Line struct {
	Target string
	Text   string
}

type Chat struct {
	nick string

	mu     sync.Mutex
	joined []string
	parted []string
	lines  []Line
	pongs  []string
	quit   bool

	// Hooks run synchronously after the command is recorded.
	OnJoin func(channel string)
	OnPart func(channel string)
	OnSay  func(target, text string)
}

func NewChat(nick string) *Chat {
	return &Chat{nick: nick}
}

func (c *Chat) Nick() string { return c.nick }

func (c *Chat) Join(channel string) error {
	c.mu.Lock()
	c.joined = append(c.joined, channel)
	hook := c.OnJoin
	c.mu.Unlock()
	if hook != nil {
		hook(channel)
	}
	return nil
}

func (c *Chat) Part(channel string) error {
	c.mu.Lock()
	c.parted = append(c.parted, channel)
	hook := c.OnPart
	c.mu.Unlock()
	if hook != nil {
		hook(channel)
	}
	return nil
}

func (c *Chat) Say(target, text string) error {
	c.mu.Lock()
	c.lines = append(c.lines, Line{Target: target, Text: text})
	hook := c.OnSay
	c.mu.Unlock()
	if hook != nil {
		hook(target, text)
	}
	return nil
}

func (c *Chat) Pong(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pongs = append(c.pongs, token)
	return nil
}

func (c *Chat) Quit(string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quit = true
	return nil
}

// Lines returns the texts sent to target, in order.
func (c *Chat) Lines(target string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, l := range c.lines {
		if l.Target == target {
			out = append(out, l.Text)
		}
	}
	return out
}

func (c *Chat) Joined() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.joined...)
}

func (c *Chat) Parted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.parted...)
}

func (c *Chat) Pongs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.pongs...)
}

func (c *Chat) Quitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quit
}

// WaitForLine polls until target received a line starting with prefix.
func (c *Chat) WaitForLine(t *testing.T, target, prefix string, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, l := range c.Lines(target) {
			if strings.HasPrefix(l, prefix) {
				return l
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("no line with prefix %q sent to %s; got %v", prefix, target, c.Lines(target))
	return ""
}
