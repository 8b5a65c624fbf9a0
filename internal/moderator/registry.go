package moderator

import (
	"sort"
	"sync"
)

const recentSessions = 32

// Registry tracks live sessions by slot and keeps the last few finished
// ones around for the status surface.
type Registry struct {
	mu     sync.RWMutex
	live   map[int]*Session
	recent []*Session
}

func NewRegistry() *Registry {
	return &Registry{live: map[int]*Session{}}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[s.Slot] = s
	metricSessionsLive.Set(int64(len(r.live)))
}

func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live[s.Slot] == s {
		delete(r.live, s.Slot)
	}
	r.recent = append(r.recent, s)
	if len(r.recent) > recentSessions {
		r.recent = r.recent[len(r.recent)-recentSessions:]
	}
	metricSessionsLive.Set(int64(len(r.live)))
}

// ForChannel returns the live session owning channel.
func (r *Registry) ForChannel(channel string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.live {
		if s.Owns(channel) {
			return s, true
		}
	}
	return nil, false
}

// BySlot prefers the live session and falls back to the latest finished one.
func (r *Registry) BySlot(slot int) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.live[slot]; ok {
		return s, true
	}
	for i := len(r.recent) - 1; i >= 0; i-- {
		if r.recent[i].Slot == slot {
			return r.recent[i], true
		}
	}
	return nil, false
}

func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// List returns live sessions by slot followed by recent ones, newest first.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	live := make([]*Session, 0, len(r.live))
	for _, s := range r.live {
		live = append(live, s)
	}
	recent := make([]*Session, 0, len(r.recent))
	for i := len(r.recent) - 1; i >= 0; i-- {
		recent = append(recent, r.recent[i])
	}
	r.mu.RUnlock()

	sort.Slice(live, func(i, j int) bool { return live[i].Slot < live[j].Slot })
	out := make([]SessionInfo, 0, len(live)+len(recent))
	for _, s := range append(live, recent...) {
		out = append(out, s.Info())
	}
	return out
}
