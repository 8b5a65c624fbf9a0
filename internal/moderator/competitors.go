package moderator

import (
	"slices"
	"sync"

	"resistance-moderator/internal/transport"

	"github.com/samber/lo"
)

// Competitors is the live lobby roster. The router mutates it; requests and
// the status surface read it.
type Competitors struct {
	mu    sync.RWMutex
	names []string
}

func NewCompetitors() *Competitors {
	return &Competitors{}
}

// Reset replaces the roster with members, dropping self and mode prefixes.
func (c *Competitors) Reset(members []string, self string) {
	names := lo.FilterMap(members, func(m string, _ int) (string, bool) {
		name := transport.StripModes(m)
		return name, name != "" && name != self
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = names
}

func (c *Competitors) Add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
}

// Remove drops one entry for name and reports whether it was present.
func (c *Competitors) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.names, name)
	if i < 0 {
		return false
	}
	c.names = slices.Delete(c.names, i, i+1)
	return true
}

func (c *Competitors) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.names, name)
}

func (c *Competitors) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.names)
}

func (c *Competitors) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

// Missing returns the names that are not in the roster, in input order.
func (c *Competitors) Missing(names []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Filter(names, func(n string, _ int) bool {
		return !slices.Contains(c.names, n)
	})
}
