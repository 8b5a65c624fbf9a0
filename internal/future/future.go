// Package future holds single-assignment reply slots. A seat parks the engine
// on Get while the router resolves the slot from a later chat line.
package future

import (
	"context"
	"errors"
	"sync"
)

var ErrAlreadySet = errors.New("future_already_set")

type Future[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	set   bool
	value T
	err   error
}

func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) Set(v T) error {
	return f.resolve(v, nil)
}

// Fail resolves the future with an error. It counts as the single assignment.
func (f *Future[T]) Fail(err error) error {
	var zero T
	return f.resolve(zero, err)
}

func (f *Future[T]) resolve(v T, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set {
		return ErrAlreadySet
	}
	f.set = true
	f.value = v
	f.err = err
	close(f.done)
	return nil
}

// Get blocks until the future is resolved or ctx ends.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
