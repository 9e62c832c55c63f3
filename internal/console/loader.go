package console

import (
	"context"
	"sync"
)

// LoadState is the lifecycle of an asynchronously loaded view value.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Loader tracks one view value that is reloaded whenever its inputs
// change. Each Load bumps a generation counter; a load that finishes
// after a newer one started is discarded, so overlapping reloads can
// never publish a stale value over a fresh one.
type Loader[T any] struct {
	mu    sync.Mutex
	gen   uint64
	state LoadState
	value T
	err   error
}

func NewLoader[T any]() *Loader[T] {
	return &Loader[T]{}
}

// Load runs fn and publishes its result unless a newer Load started in
// the meantime. It returns fn's result either way.
func (l *Loader[T]) Load(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.state = StateLoading
	l.mu.Unlock()

	v, err := fn(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		// A newer load owns the slot now.
		return v, err
	}
	if err != nil {
		l.state = StateFailed
		l.err = err
		return v, err
	}
	l.state = StateLoaded
	l.value = v
	l.err = nil
	return v, nil
}

// Get returns the last published value with its state. The error is
// non-nil only in StateFailed.
func (l *Loader[T]) Get() (T, LoadState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.state, l.err
}

// Reset returns the loader to StateIdle and invalidates any load still
// in flight.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	var zero T
	l.value = zero
	l.err = nil
	l.state = StateIdle
}
