// Package pool hands out the fixed set of session slots [1..N]. Acquire
// blocks while every slot is taken; that is the moderator's back pressure.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDoubleRelease = errors.New("slot_already_released")
	ErrUnknownSlot   = errors.New("slot_unknown")
)

type Pool struct {
	capacity int
	free     chan int

	mu     sync.Mutex
	inPool map[int]bool
}

func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	p := &Pool{
		capacity: capacity,
		free:     make(chan int, capacity),
		inPool:   make(map[int]bool, capacity),
	}
	for i := 1; i <= capacity; i++ {
		p.free <- i
		p.inPool[i] = true
	}
	return p
}

func (p *Pool) Acquire(ctx context.Context) (int, error) {
	select {
	case slot := <-p.free:
		p.mu.Lock()
		delete(p.inPool, slot)
		p.mu.Unlock()
		metricSlotsInUse.Add(1)
		return slot, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Release returns slot to the pool. Releasing a slot that is already free is
// an invariant violation and is reported, never ignored.
func (p *Pool) Release(slot int) error {
	if slot < 1 || slot > p.capacity {
		return fmt.Errorf("%w: %d", ErrUnknownSlot, slot)
	}
	p.mu.Lock()
	if p.inPool[slot] {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrDoubleRelease, slot)
	}
	p.inPool[slot] = true
	p.mu.Unlock()
	metricSlotsInUse.Add(-1)
	p.free <- slot
	return nil
}

func (p *Pool) Capacity() int {
	return p.capacity
}

func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity - len(p.inPool)
}

// Available returns the free slots in ascending order.
func (p *Pool) Available() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, len(p.inPool))
	for i := 1; i <= p.capacity; i++ {
		if p.inPool[i] {
			out = append(out, i)
		}
	}
	return out
}
