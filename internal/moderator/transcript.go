package moderator

import (
	"strconv"
	"sync"
	"time"
)

const defaultTranscriptSize = 500

// Line is one protocol line the moderator sent during a session.
type Line struct {
	ID       string `json:"id"`
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ServerTS int64  `json:"server_ts"`
	// Secret lines carry hidden roles and are redacted while the game runs.
	Secret bool `json:"-"`
}

// Transcript is a bounded buffer of the lines sent in one session.
type Transcript struct {
	mu     sync.Mutex
	nextID int64
	max    int
	lines  []Line
	closed bool

	watchers map[chan Line]struct{}
}

func NewTranscript(max int) *Transcript {
	if max <= 0 {
		max = defaultTranscriptSize
	}
	return &Transcript{max: max, watchers: map[chan Line]struct{}{}}
}

func (t *Transcript) Append(channel, text string) Line {
	return t.append(channel, text, false)
}

func (t *Transcript) AppendSecret(channel, text string) Line {
	return t.append(channel, text, true)
}

func (t *Transcript) append(channel, text string, secret bool) Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return Line{}
	}
	t.nextID++
	l := Line{
		ID:       strconv.FormatInt(t.nextID, 10),
		Channel:  channel,
		Text:     text,
		ServerTS: time.Now().UnixMilli(),
		Secret:   secret,
	}
	t.lines = append(t.lines, l)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
	for ch := range t.watchers {
		select {
		case ch <- l:
		default:
		}
	}
	return l
}

// ReplayAfter returns the lines after lastID, or everything when lastID is
// empty or unreadable.
func (t *Transcript) ReplayAfter(lastID string) []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.replayLocked(lastID)
}

// Follow returns the backlog after lastID and a channel carrying every later
// line. The channel is closed when the transcript closes or on Unfollow.
func (t *Transcript) Follow(lastID string) ([]Line, chan Line) {
	ch := make(chan Line, 32)
	t.mu.Lock()
	defer t.mu.Unlock()
	backlog := t.replayLocked(lastID)
	if t.closed {
		close(ch)
		return backlog, ch
	}
	t.watchers[ch] = struct{}{}
	return backlog, ch
}

func (t *Transcript) Unfollow(ch chan Line) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.watchers[ch]; ok {
		delete(t.watchers, ch)
		close(ch)
	}
}

func (t *Transcript) replayLocked(lastID string) []Line {
	if len(t.lines) == 0 {
		return nil
	}
	last, err := strconv.ParseInt(lastID, 10, 64)
	if lastID == "" || err != nil {
		out := make([]Line, len(t.lines))
		copy(out, t.lines)
		return out
	}
	out := make([]Line, 0, len(t.lines))
	for _, l := range t.lines {
		id, _ := strconv.ParseInt(l.ID, 10, 64)
		if id > last {
			out = append(out, l)
		}
	}
	return out
}

// Close freezes the transcript; later appends are dropped.
func (t *Transcript) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for ch := range t.watchers {
		close(ch)
		delete(t.watchers, ch)
	}
}
